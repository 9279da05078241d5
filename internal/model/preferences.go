// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sort"

// =============================================================================
// USER PREFERENCES
// =============================================================================

// ResponseLength controls how verbose the assistant should be.
type ResponseLength string

const (
	ResponseConcise  ResponseLength = "concise"
	ResponseMedium   ResponseLength = "medium"
	ResponseDetailed ResponseLength = "detailed"
)

// topicOrder fixes the serialization and display order of topic flags.
var topicOrder = []string{"technology", "science", "arts", "business", "health"}

// Preferences is the persisted user profile that shapes system prompts.
// The zero value means "no preferences set" and produces the default prompt.
type Preferences struct {
	Name           string          `json:"name"`
	Interests      []string        `json:"interests"`
	ResponseLength ResponseLength  `json:"responseLength"`
	Topics         map[string]bool `json:"topics"`
}

// DefaultPreferences returns a profile with every topic present but unselected.
func DefaultPreferences() *Preferences {
	topics := make(map[string]bool, len(topicOrder))
	for _, t := range topicOrder {
		topics[t] = false
	}
	return &Preferences{
		ResponseLength: ResponseMedium,
		Topics:         topics,
	}
}

// IsZero reports whether no preference field carries user-provided data.
func (p *Preferences) IsZero() bool {
	if p == nil {
		return true
	}
	return p.Name == "" && len(p.Interests) == 0 &&
		(p.ResponseLength == "" || p.ResponseLength == ResponseMedium) &&
		len(p.SelectedTopics()) == 0
}

// SelectedTopics returns the enabled topics in a stable order.
func (p *Preferences) SelectedTopics() []string {
	if p == nil || len(p.Topics) == 0 {
		return nil
	}
	var selected []string
	for _, t := range topicOrder {
		if p.Topics[t] {
			selected = append(selected, t)
		}
	}
	// Topics outside the known set still count if enabled.
	var extra []string
	for t, on := range p.Topics {
		if !on {
			continue
		}
		known := false
		for _, k := range topicOrder {
			if t == k {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, t)
		}
	}
	sort.Strings(extra)
	return append(selected, extra...)
}
