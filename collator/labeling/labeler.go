package labeling

import (
	"fmt"

	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/ZanzyTHEbar/glm-collator/collator/prompt"
	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
)

// Labeler turns raw records into TokenizedExamples. It holds no mutable state
// and may be shared by any number of goroutines.
type Labeler struct {
	tok       tokenizer.Tokenizer
	cutoffLen int
	eosText   string
	// boundary is the number of suffix tokens every encoding ends with
	// (gMASK and BOS for GLM). They sit between prompt and response once the
	// response is spliced on.
	boundary int
	masker   *SpanMasker
}

// NewLabeler builds a labeler truncating every encoding to cutoffLen tokens.
func NewLabeler(tok tokenizer.Tokenizer, cutoffLen int) (*Labeler, error) {
	if cutoffLen <= 0 {
		return nil, common.NewConfigurationError("cutoffLen", "must be positive")
	}
	specials := tok.Specials()
	if err := specials.Require("eosText"); err != nil {
		return nil, err
	}
	masker, err := NewSpanMasker(prompt.RoleAssistant, specials.EOSText)
	if err != nil {
		return nil, err
	}
	return &Labeler{
		tok:       tok,
		cutoffLen: cutoffLen,
		eosText:   specials.EOSText,
		boundary:  len(specials.Suffix),
		masker:    masker,
	}, nil
}

// Label renders ex, tokenizes it and masks everything but the response.
func (l *Labeler) Label(ex prompt.Example) (TokenizedExample, error) {
	rendered := prompt.Render(ex, l.eosText)
	if rendered.MultiTurn() {
		return l.labelDialogue(rendered)
	}
	return l.labelSingle(rendered, ex.Output)
}

func (l *Labeler) labelSingle(rendered prompt.Rendered, output string) (TokenizedExample, error) {
	promptIDs, _, _, err := l.encode(rendered.Text)
	if err != nil {
		return TokenizedExample{}, fmt.Errorf("encode prompt: %w", err)
	}
	sourceLen := len(promptIDs)

	full, _, truncated, err := l.encode(rendered.Text + " " + output + " " + l.eosText)
	if err != nil {
		return TokenizedExample{}, fmt.Errorf("encode completion: %w", err)
	}

	// full = prompt content, response, eos, suffix. Dropping the suffix and the
	// prompt content leaves the response and eos.
	start := max(sourceLen-l.boundary, 0)
	end := len(full) - l.boundary
	var continuation []int
	if end > start {
		continuation = full[start:end]
	}

	ids := make([]int, 0, sourceLen+len(continuation))
	ids = append(ids, promptIDs...)
	ids = append(ids, continuation...)

	labels := make([]int, 0, len(ids))
	for j := 0; j < sourceLen; j++ {
		labels = append(labels, IgnoreIndex)
	}
	labels = append(labels, continuation...)

	return TokenizedExample{
		IDs:       ids,
		Labels:    labels,
		SourceLen: sourceLen,
		Template:  rendered.Name,
		// the completion contains the prompt, so it overflows whenever the prompt does
		Truncated: truncated,
	}, nil
}

// encode tokenizes text within the cutoff and reports whether the untruncated
// encoding would have exceeded it.
func (l *Labeler) encode(text string) ([]int, []tokenizer.Offset, bool, error) {
	ids, offsets, err := l.tok.EncodeWithOffsets(text, 0)
	if err != nil {
		return nil, nil, false, err
	}
	if len(ids) <= l.cutoffLen {
		return ids, offsets, false, nil
	}
	ids, offsets, err = l.tok.EncodeWithOffsets(text, l.cutoffLen)
	if err != nil {
		return nil, nil, false, err
	}
	return ids, offsets, true, nil
}

func (l *Labeler) labelDialogue(rendered prompt.Rendered) (TokenizedExample, error) {
	ids, offsets, truncated, err := l.encode(rendered.Text)
	if err != nil {
		return TokenizedExample{}, fmt.Errorf("encode dialogue: %w", err)
	}
	header, err := l.tok.Encode(prompt.MultiTurnHeader, 0)
	if err != nil {
		return TokenizedExample{}, fmt.Errorf("encode dialogue header: %w", err)
	}
	sourceLen := min(len(header), len(ids))

	labels, res, err := l.masker.Mask(rendered.Text, ids, offsets, sourceLen)
	if err != nil {
		return TokenizedExample{}, err
	}

	return TokenizedExample{
		IDs:          ids,
		Labels:       labels,
		Offsets:      offsets,
		SourceLen:    sourceLen,
		Template:     rendered.Name,
		Truncated:    truncated,
		SkippedSpans: res.Skipped,
	}, nil
}
