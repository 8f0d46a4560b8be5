package batch

import (
	"fmt"

	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
)

// SchemeName selects a mask/position generation.
type SchemeName string

const (
	SchemeV1 SchemeName = "v1"
	SchemeV2 SchemeName = "v2"
)

// PadLongest pads every batch to its longest row; it is the only supported mode.
const PadLongest = "longest"

// Options configures a Scheme.
type Options struct {
	Scheme SchemeName
	PadTo  string
	// PositionEncoding2D emits the two-channel v1 positions. Ignored by v2.
	PositionEncoding2D bool
}

// Scheme is a resolved padder plus mask and position builders. The three
// parts always agree on one padding discipline.
type Scheme struct {
	Name      SchemeName
	Padder    Padder
	Masks     MaskBuilder
	Positions PositionBuilder
}

// NewScheme resolves opts once. Missing special ids are configuration errors.
func NewScheme(opts Options, specials tokenizer.SpecialTokens) (*Scheme, error) {
	if opts.PadTo != "" && opts.PadTo != PadLongest {
		return nil, common.NewConfigurationError("padTo", fmt.Sprintf("unsupported padding %q", opts.PadTo))
	}

	switch opts.Scheme {
	case SchemeV1:
		if err := specials.Require("pad", "bos"); err != nil {
			return nil, err
		}
		return &Scheme{
			Name:   SchemeV1,
			Padder: RightPadder{PadID: specials.Pad},
			Masks:  PrefixMaskBuilder{BOS: specials.BOS},
			Positions: BlockPositionBuilder{
				BOS:   specials.BOS,
				Mask:  specials.Mask,
				GMask: specials.GMask,
				TwoD:  opts.PositionEncoding2D,
			},
		}, nil
	case SchemeV2:
		if err := specials.Require("pad"); err != nil {
			return nil, err
		}
		return &Scheme{
			Name:      SchemeV2,
			Padder:    LeftPadder{PadID: specials.Pad},
			Masks:     PaddingMaskBuilder{},
			Positions: FlatPositionBuilder{},
		}, nil
	default:
		return nil, common.NewConfigurationError("scheme", fmt.Sprintf("unknown scheme %q", opts.Scheme))
	}
}
