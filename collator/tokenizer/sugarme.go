package tokenizer

import (
	"fmt"
	"os"
	"unicode/utf8"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// candidate texts probed when a special id is not configured explicitly
var specialCandidates = map[string][]string{
	"pad":   {"<pad>", "[PAD]"},
	"bos":   {"<sop>", "<s>", "[CLS]"},
	"eos":   {"</s>", "<eop>", "[SEP]"},
	"mask":  {"[MASK]", "<mask>"},
	"gmask": {"[gMASK]"},
}

// Sugar wraps a sugarme/tokenizer loaded from a HuggingFace tokenizer.json.
// Special tokens are added by Sugar itself (the configured Suffix) so that
// truncation can keep them.
type Sugar struct {
	t        *tk.Tokenizer
	specials SpecialTokens
}

// NewSugarFromFile loads tokenizer.json and fills unset special ids from the vocabulary.
func NewSugarFromFile(path string, specials SpecialTokens) (*Sugar, error) {
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return nil, fmt.Errorf("tokenizer file %s: %w", path, ErrUnsupported)
	}
	t, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}

	s := &Sugar{t: t, specials: specials}
	s.specials.Pad = s.discover("pad", specials.Pad)
	s.specials.BOS = s.discover("bos", specials.BOS)
	s.specials.EOS = s.discover("eos", specials.EOS)
	s.specials.Mask = s.discover("mask", specials.Mask)
	s.specials.GMask = s.discover("gmask", specials.GMask)
	if s.specials.EOSText == "" && s.specials.EOS != Unset {
		s.specials.EOSText = s.t.Decode([]int{s.specials.EOS}, false)
	}
	return s, nil
}

func (s *Sugar) discover(name string, configured int) int {
	if configured != Unset {
		return configured
	}
	for _, text := range specialCandidates[name] {
		if id, ok := s.t.TokenToId(text); ok {
			return id
		}
	}
	return Unset
}

func (s *Sugar) Specials() SpecialTokens {
	return s.specials
}

func (s *Sugar) Encode(text string, maxLength int) ([]int, error) {
	ids, _, err := s.EncodeWithOffsets(text, maxLength)
	return ids, err
}

func (s *Sugar) EncodeWithOffsets(text string, maxLength int) ([]int, []Offset, error) {
	enc, err := s.t.EncodeSingle(text, false)
	if err != nil {
		return nil, nil, fmt.Errorf("encode: %w", err)
	}

	ids := truncate(enc.GetIds(), len(s.specials.Suffix), maxLength)
	out := make([]int, 0, len(ids)+len(s.specials.Suffix))
	out = append(out, ids...)

	runeAt := byteToRune(text)
	raw := enc.GetOffsets()
	offsets := make([]Offset, 0, cap(out))
	for i := range ids {
		var off Offset
		if i < len(raw) && len(raw[i]) == 2 {
			off = Offset{Start: runeAt(raw[i][0]), End: runeAt(raw[i][1])}
		}
		offsets = append(offsets, off)
	}
	for _, id := range s.specials.Suffix {
		out = append(out, id)
		offsets = append(offsets, Offset{})
	}
	return out, offsets, nil
}

func (s *Sugar) Decode(ids []int) (string, error) {
	return s.t.Decode(ids, false), nil
}

// byteToRune maps byte offsets reported by the tokenizer to rune offsets.
func byteToRune(text string) func(int) int {
	index := make([]int, len(text)+1)
	pos := 0
	for b := 0; b < len(text); pos++ {
		_, size := utf8.DecodeRuneInString(text[b:])
		for k := 0; k < size; k++ {
			index[b+k] = pos
		}
		b += size
	}
	index[len(text)] = pos
	return func(b int) int {
		if b < 0 {
			return 0
		}
		if b >= len(index) {
			return pos
		}
		return index[b]
	}
}
