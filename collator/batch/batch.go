// Package batch turns labeled examples into rectangular, model-ready tensors.
//
// Two schemes exist, matching two generations of GLM positional encoding:
//
//	v1: right padding, prefix-causal [B,1,T,T] exclusion mask, two-channel positions
//	v2: left padding (reverse, pad, reverse), flat [B,T] padding mask, flat positions
//
// A Collator is locked to one scheme for its lifetime.
package batch

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrContextMarkerNotFound is returned when a v1 row has no BOS token.
	ErrContextMarkerNotFound = errors.New("context marker (bos) not found in sequence")
	// ErrNoTokens is returned when every sequence in a batch is empty.
	ErrNoTokens = errors.New("batch contains no tokens")
)

// Span is the [Start, End) range of real tokens in a padded row.
type Span struct {
	Start int
	End   int
}

// Len returns the number of real tokens.
func (s Span) Len() int {
	return s.End - s.Start
}

// Padding reports whether column t of the row is padding.
func (s Span) Padding(t int) bool {
	return t < s.Start || t >= s.End
}

// Batch is one collated minibatch. Every tensor shares B and T.
type Batch struct {
	ID            uuid.UUID
	Scheme        SchemeName
	InputIDs      [][]int
	Labels        [][]int
	AttentionMask AttentionMask
	PositionIDs   PositionIDs
	Layout        []Span
}

// Size returns B.
func (b *Batch) Size() int {
	return len(b.InputIDs)
}

// SeqLen returns T.
func (b *Batch) SeqLen() int {
	if len(b.InputIDs) == 0 {
		return 0
	}
	return len(b.InputIDs[0])
}

// PositionIDs holds the position tensor. Block is nil for single-channel
// encodings, giving shape [B,T]; otherwise the shape is [B,2,T].
type PositionIDs struct {
	Position [][]int
	Block    [][]int
}

// Channels returns 1 or 2.
func (p PositionIDs) Channels() int {
	if p.Block != nil {
		return 2
	}
	return 1
}

// Shape returns [B,T] or [B,2,T].
func (p PositionIDs) Shape() []int {
	b, t := len(p.Position), 0
	if b > 0 {
		t = len(p.Position[0])
	}
	if p.Block != nil {
		return []int{b, 2, t}
	}
	return []int{b, t}
}

func indexOf(row []int, id int) int {
	for i, v := range row {
		if v == id {
			return i
		}
	}
	return -1
}
