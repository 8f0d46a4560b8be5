// Package prompt renders raw instruction records into model prompts.
//
// Single-turn records use the Alpaca style "prompt_input" / "prompt_no_input"
// templates. Dialogue records are rendered turn by turn under a multi-round
// header, each turn as "### <Role>: <text><eos>".
package prompt

import (
	"strings"
)

// Template names
const (
	NameWithInput = "prompt_input"
	NameNoInput   = "prompt_no_input"
	NameMultiTurn = "prompt_multirun_input"
)

// TurnPrefix opens every rendered dialogue turn.
const TurnPrefix = "### "

// ResponseMarker precedes the model's answer in single-turn prompts.
const ResponseMarker = "### Response:"

// MultiTurnHeader is the boilerplate paragraph in front of a dialogue.
const MultiTurnHeader = "Below is a multi-round dialogue between human and assistant. " +
	"Write a response as an assistant that appropriately completes the human request in each round " +
	"by incorporating previous chat history.\n\n"

var templates = map[string]string{
	NameWithInput: "Below is an instruction that describes a task, paired with an input that provides further context. " +
		"Write a response that appropriately completes the request.\n\n" +
		"### Instruction:\n{instruction}\n\n### Input:\n{input}\n\n" + ResponseMarker,
	NameNoInput: "Below is an instruction that describes a task. " +
		"Write a response that appropriately completes the request.\n\n" +
		"### Instruction:\n{instruction}\n\n" + ResponseMarker,
	NameMultiTurn: MultiTurnHeader + "{instruction}",
}

// Template returns the raw template text registered under name.
func Template(name string) (string, bool) {
	t, ok := templates[name]
	return t, ok
}

// Example is one raw training record. Turns, when set, is the structured form
// of a dialogue and takes precedence over markers embedded in Instruction.
type Example struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	Turns       []Turn `json:"turns,omitempty"`
}

// Rendered is a prompt ready for tokenization.
type Rendered struct {
	Name  string
	Text  string
	Turns []Turn
}

// MultiTurn reports whether the prompt was rendered as a dialogue.
func (r Rendered) MultiTurn() bool {
	return r.Name == NameMultiTurn
}

// Render selects the template for ex and fills it in. eosText terminates
// dialogue turns.
func Render(ex Example, eosText string) Rendered {
	turns := ex.Turns
	if len(turns) == 0 && IsLegacyDialogue(ex.Instruction) {
		turns = ParseLegacyDialogue(ex.Instruction, eosText)
	}

	if len(turns) > 0 {
		if ex.Output != "" {
			turns = append(turns[:len(turns):len(turns)], Turn{Role: RoleAssistant, Text: ex.Output})
		}
		return Rendered{
			Name:  NameMultiTurn,
			Text:  fill(NameMultiTurn, RenderTurns(turns, eosText), ""),
			Turns: turns,
		}
	}

	name := NameNoInput
	if ex.Input != "" {
		name = NameWithInput
	}
	return Rendered{Name: name, Text: fill(name, ex.Instruction, ex.Input)}
}

// RenderEval builds the generation prompt for an evaluation item.
func RenderEval(instruction, input string) string {
	if input != "" {
		return fill(NameWithInput, instruction, input)
	}
	return fill(NameNoInput, instruction, "")
}

func fill(name, instruction, input string) string {
	return strings.NewReplacer("{instruction}", instruction, "{input}", input).Replace(templates[name])
}
