package labeling

import (
	"fmt"

	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
)

// IgnoreIndex marks a label position excluded from the supervised loss.
const IgnoreIndex = -100

// TokenizedExample is the labeled form of one raw record.
// IDs and Labels always have the same length.
type TokenizedExample struct {
	IDs    []int
	Labels []int
	// Offsets is set for dialogue records only, aligned 1:1 with IDs.
	Offsets []tokenizer.Offset

	SourceLen    int
	Template     string
	Truncated    bool
	SkippedSpans int
}

// FullyMasked reports whether no position is supervised.
func (t TokenizedExample) FullyMasked() bool {
	for _, l := range t.Labels {
		if l != IgnoreIndex {
			return false
		}
	}
	return true
}

// Supervised returns the label ids that take part in the loss, in order.
func (t TokenizedExample) Supervised() []int {
	var out []int
	for _, l := range t.Labels {
		if l != IgnoreIndex {
			out = append(out, l)
		}
	}
	return out
}

// Validate checks the ids/labels/offsets alignment.
func (t TokenizedExample) Validate() error {
	if len(t.IDs) != len(t.Labels) {
		return fmt.Errorf("%d ids vs %d labels: %w", len(t.IDs), len(t.Labels), common.ErrLengthMismatch)
	}
	if t.Offsets != nil && len(t.Offsets) != len(t.IDs) {
		return fmt.Errorf("%d ids vs %d offsets: %w", len(t.IDs), len(t.Offsets), common.ErrLengthMismatch)
	}
	return nil
}

