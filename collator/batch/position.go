package batch

import (
	"fmt"

	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
)

// PositionBuilder derives position ids from padded ids.
type PositionBuilder interface {
	Build(ids [][]int, layout []Span) (PositionIDs, error)
}

// BlockPositionBuilder builds v1 positions.
//
// Channel one counts from the first real token through the context and then
// holds at the mask token's position for every generated token. The mask token
// is gMASK when the row has one, MASK otherwise. Without 2D encoding a row
// carrying gMASK keeps counting instead of holding. Channel two is zero over
// the context and counts 1, 2, ... over generated tokens.
type BlockPositionBuilder struct {
	BOS   int
	Mask  int
	GMask int
	TwoD  bool
}

func (pb BlockPositionBuilder) Build(ids [][]int, layout []Span) (PositionIDs, error) {
	out := PositionIDs{Position: make([][]int, len(ids))}
	if pb.TwoD {
		out.Block = make([][]int, len(ids))
	}

	for b, row := range ids {
		seqLen := len(row)
		contextLen := indexOf(row, pb.BOS)
		if contextLen < 0 {
			return PositionIDs{}, fmt.Errorf("row %d: %w", b, ErrContextMarkerNotFound)
		}
		padLen := layout[b].Start

		hasGMask := pb.GMask != tokenizer.Unset && indexOf(row, pb.GMask) >= 0
		maskToken := pb.Mask
		if hasGMask {
			maskToken = pb.GMask
		}

		position := make([]int, seqLen)
		for t := padLen; t < seqLen; t++ {
			position[t] = t - padLen
		}
		if pb.TwoD || !hasGMask {
			hold := contextLen - 1 - padLen
			if maskToken != tokenizer.Unset {
				if at := indexOf(row, maskToken); at >= 0 {
					hold = at - padLen
				}
			}
			for t := contextLen; t < seqLen; t++ {
				position[t] = hold
			}
		}
		out.Position[b] = position

		if pb.TwoD {
			block := make([]int, seqLen)
			for t := contextLen; t < seqLen; t++ {
				block[t] = t - contextLen + 1
			}
			out.Block[b] = block
		}
	}
	return out, nil
}

// FlatPositionBuilder builds v2 positions: zero over left padding, then 0..n-1.
type FlatPositionBuilder struct{}

func (FlatPositionBuilder) Build(ids [][]int, layout []Span) (PositionIDs, error) {
	out := PositionIDs{Position: make([][]int, len(ids))}
	for b, row := range ids {
		position := make([]int, len(row))
		padLen := layout[b].Start
		for t := padLen; t < len(row); t++ {
			position[t] = t - padLen
		}
		out.Position[b] = position
	}
	return out, nil
}
