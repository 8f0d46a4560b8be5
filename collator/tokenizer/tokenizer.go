package tokenizer

import (
	"fmt"

	"github.com/ZanzyTHEbar/glm-collator/collator/common"
)

// Unset marks a special token id the tokenizer does not define.
const Unset = -1

// Tokenizer converts raw text to token ids and back.
// Implementations are read-only after construction and safe for concurrent use.
type Tokenizer interface {
	// Encode tokenizes text and appends the configured suffix tokens. A positive
	// maxLength truncates the content so the result, suffix included, fits.
	Encode(text string, maxLength int) ([]int, error)
	// EncodeWithOffsets is Encode plus one rune span per id. Suffix tokens carry
	// empty spans.
	EncodeWithOffsets(text string, maxLength int) ([]int, []Offset, error)
	Decode(ids []int) (string, error)
	Specials() SpecialTokens
}

// Offset is the [Start, End) rune span of a token in the encoded text.
type Offset struct {
	Start int
	End   int
}

// Contains reports whether rune position pos falls inside the span.
func (o Offset) Contains(pos int) bool {
	return o.Start <= pos && pos < o.End
}

// SpecialTokens holds the special ids a tokenizer exposes. Ids equal to Unset
// are not defined by the vocabulary.
type SpecialTokens struct {
	Pad   int
	BOS   int
	EOS   int
	Mask  int
	GMask int
	// EOSText is the literal end marker appended to responses and turns.
	EOSText string
	// Suffix is appended after every encoding, e.g. [gMASK, BOS] for GLM.
	Suffix []int
}

// ErrUnsupported indicates the tokenizer could not be initialized
var ErrUnsupported = fmt.Errorf("unsupported tokenizer configuration")

// NoSpecials returns a SpecialTokens value with every id unset.
func NoSpecials() SpecialTokens {
	return SpecialTokens{Pad: Unset, BOS: Unset, EOS: Unset, Mask: Unset, GMask: Unset}
}

// Require fails with a ConfigurationError when any named id is unset.
func (s SpecialTokens) Require(names ...string) error {
	for _, name := range names {
		var id int
		switch name {
		case "pad":
			id = s.Pad
		case "bos":
			id = s.BOS
		case "eos":
			id = s.EOS
		case "mask":
			id = s.Mask
		case "gmask":
			id = s.GMask
		case "eosText":
			if s.EOSText == "" {
				return common.MissingSpecialToken(name)
			}
			continue
		default:
			return common.NewConfigurationError(name, "unknown special token")
		}
		if id == Unset {
			return common.MissingSpecialToken(name)
		}
	}
	return nil
}

// truncate shortens content so content+suffix fits maxLength.
func truncate[T any](content []T, suffixLen, maxLength int) []T {
	if maxLength <= 0 {
		return content
	}
	budget := maxLength - suffixLen
	if budget < 0 {
		budget = 0
	}
	if len(content) > budget {
		return content[:budget]
	}
	return content
}
