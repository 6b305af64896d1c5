/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Feeding is one journaled dispense attempt.
type Feeding struct {
	ID         string `gorm:"type:varchar(36);primaryKey"`
	EventType  string `gorm:"type:varchar(32);index"`
	Occasion   string `gorm:"type:varchar(5)"`
	Servo      string `gorm:"type:varchar(16);index"`
	DurationMS int64
	Simulated  bool
	Error      string    `gorm:"type:text"`
	FedAt      time.Time `gorm:"index"`
	CreatedAt  time.Time
}

// TableName pins the table name independent of naming strategy.
func (Feeding) TableName() string { return "feedings" }
