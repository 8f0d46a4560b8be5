package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/armon/go-radix"
)

// WordLevel is a deterministic whitespace tokenizer with atomic special tokens.
// Newlines are tokens of their own; other whitespace only separates words.
type WordLevel struct {
	vocab    map[string]int
	inverse  []string
	unkID    int
	specials SpecialTokens
	matcher  *radix.Tree
}

// NewWordLevel builds a tokenizer whose ids are the positions in tokens.
// specialTexts are matched atomically even when glued to a word ("hi</s>").
func NewWordLevel(tokens []string, specialTexts []string, specials SpecialTokens) (*WordLevel, error) {
	vocab := make(map[string]int, len(tokens))
	inverse := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := vocab[tok]; dup {
			continue
		}
		vocab[tok] = len(inverse)
		inverse = append(inverse, tok)
	}

	w := &WordLevel{vocab: vocab, inverse: inverse, unkID: Unset, specials: specials, matcher: radix.New()}
	if id, ok := vocab["[UNK]"]; ok {
		w.unkID = id
	}
	for _, text := range specialTexts {
		id, ok := vocab[text]
		if !ok {
			return nil, fmt.Errorf("special token %q missing from vocab: %w", text, ErrUnsupported)
		}
		w.matcher.Insert(text, id)
	}
	return w, nil
}

// LoadWordLevelFromVocab reads one token per line; the line number is the id.
func LoadWordLevelFromVocab(path string, specialTexts []string, specials SpecialTokens) (*WordLevel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tok := scanner.Text()
		if tok == `\n` {
			tok = "\n"
		}
		if strings.TrimSpace(tok) == "" && tok != "\n" {
			continue
		}
		tokens = append(tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewWordLevel(tokens, specialTexts, specials)
}

// TokenID returns the id of tok.
func (w *WordLevel) TokenID(tok string) (int, bool) {
	id, ok := w.vocab[tok]
	return id, ok
}

func (w *WordLevel) Specials() SpecialTokens {
	return w.specials
}

func (w *WordLevel) Encode(text string, maxLength int) ([]int, error) {
	ids, _, err := w.EncodeWithOffsets(text, maxLength)
	return ids, err
}

func (w *WordLevel) EncodeWithOffsets(text string, maxLength int) ([]int, []Offset, error) {
	ids, offsets, err := w.split(text)
	if err != nil {
		return nil, nil, err
	}

	suffix := w.specials.Suffix
	ids = truncate(ids, len(suffix), maxLength)
	offsets = offsets[:len(ids)]
	for _, id := range suffix {
		ids = append(ids, id)
		offsets = append(offsets, Offset{})
	}
	return ids, offsets, nil
}

func (w *WordLevel) Decode(ids []int) (string, error) {
	var sb strings.Builder
	for i, id := range ids {
		if id < 0 || id >= len(w.inverse) {
			return "", fmt.Errorf("token id out of range: %d", id)
		}
		tok := w.inverse[id]
		if i > 0 && tok != "\n" && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok)
	}
	return sb.String(), nil
}

func (w *WordLevel) split(text string) ([]int, []Offset, error) {
	var ids []int
	var offsets []Offset

	emit := func(tok string, start, end int) error {
		id, ok := w.vocab[tok]
		if !ok {
			if w.unkID == Unset {
				return fmt.Errorf("token %q not in vocab and no [UNK] defined", tok)
			}
			id = w.unkID
		}
		ids = append(ids, id)
		offsets = append(offsets, Offset{Start: start, End: end})
		return nil
	}

	pos := 0 // rune position
	for b := 0; b < len(text); {
		r, size := utf8.DecodeRuneInString(text[b:])
		switch {
		case r == '\n':
			if err := emit("\n", pos, pos+1); err != nil {
				return nil, nil, err
			}
			b += size
			pos++
		case unicode.IsSpace(r):
			b += size
			pos++
		default:
			if special, _, ok := w.matcher.LongestPrefix(text[b:]); ok {
				n := utf8.RuneCountInString(special)
				if err := emit(special, pos, pos+n); err != nil {
					return nil, nil, err
				}
				b += len(special)
				pos += n
				continue
			}
			start, startByte := pos, b
			for b < len(text) {
				r, size = utf8.DecodeRuneInString(text[b:])
				if unicode.IsSpace(r) {
					break
				}
				if b > startByte {
					if _, _, ok := w.matcher.LongestPrefix(text[b:]); ok {
						break
					}
				}
				b += size
				pos++
			}
			if err := emit(text[startByte:b], start, pos); err != nil {
				return nil, nil, err
			}
		}
	}
	return ids, offsets, nil
}
