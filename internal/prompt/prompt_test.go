// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"
	"testing"

	"github.com/jeranaias/lumen-tui/internal/model"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"assistant", ModeAssistant},
		{"friend", ModeFriend},
		{"ADVISOR", ModeAdvisor},
		{"  doctor  ", ModeDoctor},
		{"", ModeAssistant},
		{"banana", ModeAssistant},
	}

	for _, tt := range tests {
		if got := ParseMode(tt.input); got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMode_Next_Cycles(t *testing.T) {
	m := ModeAssistant
	seen := map[Mode]bool{m: true}
	for i := 0; i < len(Modes)-1; i++ {
		m = m.Next()
		if seen[m] {
			t.Fatalf("mode %q repeated before full cycle", m)
		}
		seen[m] = true
	}
	if m.Next() != ModeAssistant {
		t.Error("cycle should wrap back to assistant")
	}
}

func TestSystem_Default(t *testing.T) {
	got := System(ModeAssistant, nil)
	want := "You are a helpful AI assistant. Format your responses clearly with proper markdown."
	if got != want {
		t.Errorf("System = %q, want %q", got, want)
	}
}

func TestSystem_ModeSuffixes(t *testing.T) {
	tests := []struct {
		mode   Mode
		substr string
	}{
		{ModeFriend, "friendly and casual AI companion"},
		{ModeAdvisor, "professional advisor"},
		{ModeDoctor, "Always recommend consulting with a real doctor."},
	}

	for _, tt := range tests {
		got := System(tt.mode, nil)
		if !strings.Contains(got, tt.substr) {
			t.Errorf("System(%q) missing %q: %q", tt.mode, tt.substr, got)
		}
		if !strings.HasPrefix(got, "You are a helpful AI assistant.") {
			t.Errorf("System(%q) missing base prefix", tt.mode)
		}
	}
}

func TestSystem_Preferences(t *testing.T) {
	prefs := &model.Preferences{
		Name:           "Ada",
		Interests:      []string{"compilers", "chess"},
		ResponseLength: model.ResponseConcise,
		Topics:         map[string]bool{"science": true, "arts": false, "technology": true},
	}

	got := System(ModeAssistant, prefs)

	for _, substr := range []string{
		"Address the user as Ada.",
		"Keep your responses concise and to the point.",
		"The user is interested in: compilers, chess.",
		"The user is particularly interested in these topics: technology, science.",
		"Format your responses clearly with proper markdown.",
	} {
		if !strings.Contains(got, substr) {
			t.Errorf("System missing %q in %q", substr, got)
		}
	}
}

func TestSystem_ResponseLengthDefault(t *testing.T) {
	prefs := &model.Preferences{Name: "Ada"}
	got := System(ModeAssistant, prefs)
	if !strings.Contains(got, "Provide moderately detailed responses.") {
		t.Errorf("unset response length should read as medium: %q", got)
	}

	prefs.ResponseLength = model.ResponseDetailed
	got = System(ModeAssistant, prefs)
	if !strings.Contains(got, "Provide detailed and comprehensive responses.") {
		t.Errorf("detailed length instruction missing: %q", got)
	}
}
