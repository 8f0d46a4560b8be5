// Package tokenizertest provides a deterministic GLM-shaped tokenizer for tests.
package tokenizertest

import (
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/glm-collator/collator/prompt"
	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
)

// Fixed special ids of the GLM test vocabulary.
const (
	PadID     = 0
	UnkID     = 1
	EOSID     = 2
	MaskID    = 3
	GMaskID   = 4
	BOSID     = 5
	NewlineID = 6
	EOSText   = "</s>"
)

var specialTexts = []string{EOSText, "[MASK]", "[gMASK]", "<sop>"}

// Specials returns the special ids of the test vocabulary. Every encoding
// ends with [gMASK] <sop>, as GLM's does.
func Specials() tokenizer.SpecialTokens {
	return tokenizer.SpecialTokens{
		Pad:     PadID,
		BOS:     BOSID,
		EOS:     EOSID,
		Mask:    MaskID,
		GMask:   GMaskID,
		EOSText: EOSText,
		Suffix:  []int{GMaskID, BOSID},
	}
}

// NewGLM builds a word-level tokenizer knowing every word of the prompt
// templates and of texts.
func NewGLM(tb testing.TB, texts ...string) *tokenizer.WordLevel {
	tb.Helper()
	return NewWithSuffix(tb, Specials().Suffix, texts...)
}

// NewWithSuffix is NewGLM with a different set of tokens appended to every
// encoding; nil appends nothing.
func NewWithSuffix(tb testing.TB, suffix []int, texts ...string) *tokenizer.WordLevel {
	tb.Helper()
	specials := Specials()
	specials.Suffix = suffix
	tok, err := tokenizer.NewWordLevel(Vocab(texts...), specialTexts, specials)
	if err != nil {
		tb.Fatalf("build test tokenizer: %v", err)
	}
	return tok
}

// Vocab lists the special tokens followed by the words of the templates and texts.
func Vocab(texts ...string) []string {
	vocab := []string{"<pad>", "[UNK]", EOSText, "[MASK]", "[gMASK]", "<sop>", "\n"}
	sources := []string{prompt.MultiTurnHeader, prompt.TurnPrefix, "Human: Assistant:"}
	for _, name := range []string{prompt.NameWithInput, prompt.NameNoInput, prompt.NameMultiTurn} {
		tmpl, _ := prompt.Template(name)
		sources = append(sources, tmpl)
	}
	sources = append(sources, texts...)

	seen := make(map[string]bool, len(vocab))
	for _, v := range vocab {
		seen[v] = true
	}
	for _, src := range sources {
		for _, special := range specialTexts {
			src = strings.ReplaceAll(src, special, " ")
		}
		for _, word := range strings.Fields(src) {
			if !seen[word] {
				seen[word] = true
				vocab = append(vocab, word)
			}
		}
	}
	return vocab
}
