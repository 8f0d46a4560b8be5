package batch

import (
	"fmt"

	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/ZanzyTHEbar/glm-collator/collator/labeling"
	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Collator assembles labeled examples into batches. It performs no I/O and
// keeps no state between calls.
type Collator struct {
	scheme *Scheme
	logger zerolog.Logger
}

// NewCollator resolves the scheme for opts.
func NewCollator(opts Options, specials tokenizer.SpecialTokens, logger zerolog.Logger) (*Collator, error) {
	scheme, err := NewScheme(opts, specials)
	if err != nil {
		return nil, err
	}
	return &Collator{scheme: scheme, logger: logger}, nil
}

// Scheme returns the scheme the collator is locked to.
func (c *Collator) Scheme() SchemeName {
	return c.scheme.Name
}

// Collate pads examples and derives their mask and position tensors.
func (c *Collator) Collate(examples []labeling.TokenizedExample) (*Batch, error) {
	if len(examples) == 0 {
		return nil, common.ErrEmptyBatch
	}
	ids := make([][]int, len(examples))
	labels := make([][]int, len(examples))
	for i, ex := range examples {
		if err := ex.Validate(); err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		ids[i] = ex.IDs
		labels[i] = ex.Labels
	}
	return c.assemble(ids, labels)
}

// CollateInputs builds a label-free batch, e.g. for generation.
func (c *Collator) CollateInputs(ids [][]int) (*Batch, error) {
	if len(ids) == 0 {
		return nil, common.ErrEmptyBatch
	}
	return c.assemble(ids, nil)
}

func (c *Collator) assemble(ids, labels [][]int) (*Batch, error) {
	padded := c.scheme.Padder.Pad(ids, labels)
	if len(padded.IDs[0]) == 0 {
		return nil, ErrNoTokens
	}

	mask, err := c.scheme.Masks.Build(padded.IDs, padded.Layout)
	if err != nil {
		return nil, fmt.Errorf("attention mask: %w", err)
	}
	positions, err := c.scheme.Positions.Build(padded.IDs, padded.Layout)
	if err != nil {
		return nil, fmt.Errorf("position ids: %w", err)
	}

	b := &Batch{
		ID:            uuid.New(),
		Scheme:        c.scheme.Name,
		InputIDs:      padded.IDs,
		Labels:        padded.Labels,
		AttentionMask: mask,
		PositionIDs:   positions,
		Layout:        padded.Layout,
	}
	c.logger.Debug().
		Str("batch_id", b.ID.String()).
		Str("scheme", string(b.Scheme)).
		Int("size", b.Size()).
		Int("seq_len", b.SeqLen()).
		Msg("Collated batch")
	return b, nil
}
