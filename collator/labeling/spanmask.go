package labeling

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring"
	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/ZanzyTHEbar/glm-collator/collator/prompt"
	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
	"github.com/dlclark/regexp2"
)

// Span is a [Start, End) rune range of the rendered prompt.
type Span struct {
	Start int
	End   int
}

// MaskResult summarizes one masking pass.
type MaskResult struct {
	Spans   int
	Skipped int
	Masked  int
}

// SpanMasker finds every dialogue turn not authored by the assistant and
// masks its tokens out of the labels.
type SpanMasker struct {
	re *regexp2.Regexp
}

// NewSpanMasker compiles "### (?!<assistant>:)(.*?)<eos>" with dot matching newlines.
func NewSpanMasker(assistant prompt.Role, eosText string) (*SpanMasker, error) {
	pattern := regexp2.Escape(prompt.TurnPrefix) +
		"(?!" + regexp2.Escape(string(assistant)+":") + ")" +
		"(.*?)" + regexp2.Escape(eosText)
	re, err := regexp2.Compile(pattern, regexp2.Singleline)
	if err != nil {
		return nil, fmt.Errorf("compile turn pattern: %w", err)
	}
	return &SpanMasker{re: re}, nil
}

// Spans returns the rune ranges of all non-assistant turns in text.
func (m *SpanMasker) Spans(text string) ([]Span, error) {
	var spans []Span
	match, err := m.re.FindStringMatch(text)
	for ; match != nil && err == nil; match, err = m.re.FindNextMatch(match) {
		spans = append(spans, Span{Start: match.Index, End: match.Index + match.Length})
	}
	if err != nil {
		return nil, fmt.Errorf("match turns: %w", err)
	}
	return spans, nil
}

// Mask copies ids into labels, then masks the first sourceLen tokens and the
// tokens of every non-assistant turn. A turn covers tokens [start, end-1)
// where end is the token holding the first rune after the match, so the
// turn's last token stays supervised. Turns whose bounds do not resolve to
// tokens are skipped.
func (m *SpanMasker) Mask(text string, ids []int, offsets []tokenizer.Offset, sourceLen int) ([]int, MaskResult, error) {
	if len(offsets) != len(ids) {
		return nil, MaskResult{}, fmt.Errorf("%d ids vs %d offsets: %w", len(ids), len(offsets), common.ErrLengthMismatch)
	}
	spans, err := m.Spans(text)
	if err != nil {
		return nil, MaskResult{}, err
	}

	masked := roaring.New()
	if sourceLen > 0 {
		masked.AddRange(0, uint64(min(sourceLen, len(ids))))
	}

	res := MaskResult{Spans: len(spans)}
	for _, sp := range spans {
		startIdx := tokenAt(offsets, sp.Start)
		endIdx := tokenAt(offsets, sp.End)
		if startIdx < 0 || endIdx < 0 {
			res.Skipped++
			continue
		}
		if endIdx-1 > startIdx {
			masked.AddRange(uint64(startIdx), uint64(endIdx-1))
		}
	}

	labels := slices.Clone(ids)
	it := masked.Iterator()
	for it.HasNext() {
		labels[it.Next()] = IgnoreIndex
	}
	res.Masked = int(masked.GetCardinality())
	return labels, res, nil
}

func tokenAt(offsets []tokenizer.Offset, pos int) int {
	for i, off := range offsets {
		if off.Contains(pos) {
			return i
		}
	}
	return -1
}
