/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type exportOccasion struct {
	Time      string   `yaml:"time"`
	Weekdays  []string `yaml:"weekdays"`
	OpenTimes []string `yaml:"open_times"`
}

type exportDocument struct {
	Occasions []exportOccasion `yaml:"occasions"`
}

// ExportYAML renders the schedule for humans. The output is informational only;
// the JSON file remains the persisted format.
func ExportYAML(s *Schedule) ([]byte, error) {
	doc := exportDocument{Occasions: make([]exportOccasion, 0, s.Len())}
	for _, o := range s.Occasions() {
		days := make([]string, 0, 7)
		for _, d := range o.Weekdays.Days() {
			days = append(days, d.String())
		}
		opens := make([]string, 0, len(o.OpenTimes))
		for _, d := range o.OpenTimes {
			opens = append(opens, d.String())
		}
		doc.Occasions = append(doc.Occasions, exportOccasion{
			Time:      o.At.String(),
			Weekdays:  days,
			OpenTimes: opens,
		})
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("export schedule: %w", err)
	}
	return out, nil
}
