// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"
	"strings"

	"github.com/jeranaias/lumen-tui/internal/model"
)

// =============================================================================
// CHAT MODES
// =============================================================================

// Mode selects the assistant persona for a conversation.
type Mode string

const (
	ModeAssistant Mode = "assistant"
	ModeFriend    Mode = "friend"
	ModeAdvisor   Mode = "advisor"
	ModeDoctor    Mode = "doctor"
)

// Modes lists every persona in cycling order.
var Modes = []Mode{ModeAssistant, ModeFriend, ModeAdvisor, ModeDoctor}

// ParseMode maps a string to a known Mode, defaulting to ModeAssistant.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFriend:
		return ModeFriend
	case ModeAdvisor:
		return ModeAdvisor
	case ModeDoctor:
		return ModeDoctor
	default:
		return ModeAssistant
	}
}

// Next returns the mode after m in cycling order.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeAssistant
}

func (m Mode) String() string { return string(m) }

// DisplayName returns the capitalized label shown in the status bar.
func (m Mode) DisplayName() string {
	s := string(m)
	if s == "" {
		return "Assistant"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// =============================================================================
// SYSTEM PROMPT CONSTRUCTION
// =============================================================================

const (
	basePromptPrefix = "You are a helpful AI assistant."
	basePromptSuffix = "Format your responses clearly with proper markdown."
)

// Mode-specific suffixes appended after the base prompt.
const (
	friendSuffix  = "You are a friendly and casual AI companion. Use conversational language and be supportive."
	advisorSuffix = "You are a professional advisor. Provide thoughtful, well-structured advice with a formal tone."
	doctorSuffix  = "You are a medical consultant. Provide health information with appropriate disclaimers. Always recommend consulting with a real doctor."
)

// System builds the system prompt for a mode, folding user preferences into
// the base instruction when present. A nil or empty Preferences produces the
// default prompt for the mode.
func System(mode Mode, prefs *model.Preferences) string {
	parts := []string{basePromptPrefix}

	if prefs != nil {
		if prefs.Name != "" {
			parts = append(parts, fmt.Sprintf("Address the user as %s.", prefs.Name))
		}

		switch prefs.ResponseLength {
		case model.ResponseConcise:
			parts = append(parts, "Keep your responses concise and to the point.")
		case model.ResponseDetailed:
			parts = append(parts, "Provide detailed and comprehensive responses.")
		default:
			parts = append(parts, "Provide moderately detailed responses.")
		}

		if len(prefs.Interests) > 0 {
			parts = append(parts, fmt.Sprintf("The user is interested in: %s.", strings.Join(prefs.Interests, ", ")))
		}

		if topics := prefs.SelectedTopics(); len(topics) > 0 {
			parts = append(parts, fmt.Sprintf("The user is particularly interested in these topics: %s.", strings.Join(topics, ", ")))
		}
	}

	parts = append(parts, basePromptSuffix)

	switch mode {
	case ModeFriend:
		parts = append(parts, friendSuffix)
	case ModeAdvisor:
		parts = append(parts, advisorSuffix)
	case ModeDoctor:
		parts = append(parts, doctorSuffix)
	}

	return strings.Join(parts, " ")
}
