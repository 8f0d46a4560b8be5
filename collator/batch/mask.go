package batch

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// AttentionMask is the attention tensor of a batch.
type AttentionMask interface {
	// Shape is [B,1,T,T] or [B,T].
	Shape() []int
	// Attends reports whether query position i of row b may attend to key j.
	Attends(b, i, j int) bool
}

// MaskBuilder derives the attention mask from padded ids.
type MaskBuilder interface {
	Build(ids [][]int, layout []Span) (AttentionMask, error)
}

// PrefixMask holds one T×T matrix per row where 1 marks a position excluded
// from attention. The inverted polarity is what GLM v1 expects.
type PrefixMask struct {
	excluded []*mat.Dense
	seqLen   int
}

func (m *PrefixMask) Shape() []int {
	return []int{len(m.excluded), 1, m.seqLen, m.seqLen}
}

// Excluded reports whether query i of row b must not attend to key j.
func (m *PrefixMask) Excluded(b, i, j int) bool {
	return m.excluded[b].At(i, j) != 0
}

func (m *PrefixMask) Attends(b, i, j int) bool {
	return !m.Excluded(b, i, j)
}

// Matrix returns the exclusion matrix of row b.
func (m *PrefixMask) Matrix(b int) mat.Matrix {
	return m.excluded[b]
}

// PrefixMaskBuilder builds the v1 prefix-LM mask. Every position attends to
// the context (everything before the first BOS) and causally to itself and
// earlier positions. Padding rows and columns are fully excluded.
type PrefixMaskBuilder struct {
	BOS int
}

func (mb PrefixMaskBuilder) Build(ids [][]int, layout []Span) (AttentionMask, error) {
	seqLen := len(ids[0])
	m := &PrefixMask{excluded: make([]*mat.Dense, len(ids)), seqLen: seqLen}

	for b, row := range ids {
		contextLen := indexOf(row, mb.BOS)
		if contextLen < 0 {
			return nil, fmt.Errorf("row %d: %w", b, ErrContextMarkerNotFound)
		}

		ex := mat.NewDense(seqLen, seqLen, nil)
		span := layout[b]
		for i := 0; i < seqLen; i++ {
			for j := 0; j < seqLen; j++ {
				attend := j <= i || j < contextLen
				if !attend || span.Padding(i) || span.Padding(j) {
					ex.Set(i, j, 1)
				}
			}
		}
		m.excluded[b] = ex
	}
	return m, nil
}

// PaddingMask is a B×T matrix with 1 on real tokens and 0 on padding.
// Causality is left to the model.
type PaddingMask struct {
	values *mat.Dense
}

func (m *PaddingMask) Shape() []int {
	r, c := m.values.Dims()
	return []int{r, c}
}

func (m *PaddingMask) Attends(b, _, j int) bool {
	return m.values.At(b, j) != 0
}

// Value returns the mask entry for row b, column t.
func (m *PaddingMask) Value(b, t int) float64 {
	return m.values.At(b, t)
}

// Dense exposes the underlying matrix.
func (m *PaddingMask) Dense() *mat.Dense {
	return m.values
}

// PaddingMaskBuilder builds the flat v2 mask.
type PaddingMaskBuilder struct{}

func (PaddingMaskBuilder) Build(ids [][]int, layout []Span) (AttentionMask, error) {
	seqLen := len(ids[0])
	values := mat.NewDense(len(ids), seqLen, nil)
	for b := range ids {
		span := layout[b]
		for t := span.Start; t < span.End; t++ {
			values.Set(b, t, 1)
		}
	}
	return &PaddingMask{values: values}, nil
}
