package prompt

import (
	"strings"
)

// Role names the author of a dialogue turn.
type Role string

const (
	RoleHuman     Role = "Human"
	RoleAssistant Role = "Assistant"
)

// Turn is one utterance of a dialogue.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// RenderTurn formats a turn as "### <Role>: <text><eos>".
func RenderTurn(t Turn, eosText string) string {
	return TurnPrefix + string(t.Role) + ": " + strings.TrimSpace(t.Text) + eosText
}

// RenderTurns joins rendered turns with newlines.
func RenderTurns(turns []Turn, eosText string) string {
	parts := make([]string, len(turns))
	for i, t := range turns {
		parts[i] = RenderTurn(t, eosText)
	}
	return strings.Join(parts, "\n")
}

// legacy markers embedded in free-text instructions
var legacyMarkers = []Role{RoleHuman, RoleAssistant}

// IsLegacyDialogue reports whether instruction carries both literal
// "Human:" and "Assistant:" markers.
func IsLegacyDialogue(instruction string) bool {
	return strings.Contains(instruction, string(RoleHuman)+":") &&
		strings.Contains(instruction, string(RoleAssistant)+":")
}

// ParseLegacyDialogue splits a marker-annotated instruction into turns.
// Text before the first marker is treated as a human turn when not blank.
// A trailing eosText inside a turn is dropped since rendering adds it back.
func ParseLegacyDialogue(instruction, eosText string) []Turn {
	var turns []Turn
	add := func(role Role, text string) {
		text = strings.TrimSpace(text)
		if eosText != "" {
			text = strings.TrimSpace(strings.TrimSuffix(text, eosText))
		}
		if text == "" && role == RoleHuman && len(turns) == 0 {
			return
		}
		turns = append(turns, Turn{Role: role, Text: text})
	}

	role := RoleHuman
	rest := instruction
	for {
		idx, next := nextMarker(rest)
		if idx < 0 {
			add(role, rest)
			return turns
		}
		add(role, rest[:idx])
		role = next
		rest = rest[idx+len(next)+1:]
	}
}

func nextMarker(s string) (int, Role) {
	best, role := -1, Role("")
	for _, m := range legacyMarkers {
		if i := strings.Index(s, string(m)+":"); i >= 0 && (best < 0 || i < best) {
			best, role = i, m
		}
	}
	return best, role
}
