package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWordLevel(t *testing.T) *WordLevel {
	t.Helper()
	specials := SpecialTokens{Pad: 0, BOS: 5, EOS: 2, Mask: 3, GMask: 4, EOSText: "</s>", Suffix: []int{4, 5}}
	tokens := []string{"<pad>", "[UNK]", "</s>", "[MASK]", "[gMASK]", "<sop>", "\n", "hello", "world", "héllo", "###", "Human:"}
	w, err := NewWordLevel(tokens, []string{"</s>", "[gMASK]", "<sop>", "[MASK]"}, specials)
	require.NoError(t, err)
	return w
}

func TestWordLevelOffsets(t *testing.T) {
	w := newTestWordLevel(t)

	ids, offsets, err := w.EncodeWithOffsets("héllo world</s>\nhello", 0)
	require.NoError(t, err)

	assert.Equal(t, []int{9, 8, 2, 6, 7, 4, 5}, ids)
	assert.Equal(t, []Offset{
		{Start: 0, End: 5},
		{Start: 6, End: 11},
		{Start: 11, End: 15},
		{Start: 15, End: 16},
		{Start: 16, End: 21},
		{}, {},
	}, offsets)
}

func TestWordLevelTruncationKeepsSuffix(t *testing.T) {
	w := newTestWordLevel(t)

	ids, err := w.Encode("hello world hello world", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8, 4, 5}, ids)

	ids, err = w.Encode("hello", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, ids, "suffix survives even when the budget is smaller")
}

func TestWordLevelUnknownWords(t *testing.T) {
	w := newTestWordLevel(t)

	ids, err := w.Encode("hello stranger", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 1, 4, 5}, ids)

	noUnk, err := NewWordLevel([]string{"a"}, nil, NoSpecials())
	require.NoError(t, err)
	_, err = noUnk.Encode("b", 0)
	assert.Error(t, err)
}

func TestWordLevelDecode(t *testing.T) {
	w := newTestWordLevel(t)

	text, err := w.Decode([]int{10, 11, 7, 2, 6, 8})
	require.NoError(t, err)
	assert.Equal(t, "### Human: hello </s>\nworld", text)

	_, err = w.Decode([]int{99})
	assert.Error(t, err)
}

func TestNewWordLevelRejectsUnknownSpecial(t *testing.T) {
	_, err := NewWordLevel([]string{"a"}, []string{"</s>"}, NoSpecials())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoadWordLevelFromVocab(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("<pad>\n[UNK]\n\\n\nhello\n\nworld\n"), 0o644))

	w, err := LoadWordLevelFromVocab(path, nil, NoSpecials())
	require.NoError(t, err)

	id, ok := w.TokenID("world")
	require.True(t, ok)
	assert.Equal(t, 4, id)
	id, ok = w.TokenID("\n")
	require.True(t, ok)
	assert.Equal(t, 2, id)
}

func TestSpecialTokensRequire(t *testing.T) {
	s := NoSpecials()
	s.Pad = 0

	assert.NoError(t, s.Require("pad"))

	err := s.Require("pad", "bos")
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
	assert.ErrorIs(t, err, common.ErrMissingSpecialID)

	assert.Error(t, s.Require("eosText"))
	assert.Error(t, s.Require("nonsense"))
}

func TestByteToRune(t *testing.T) {
	runeAt := byteToRune("héllo")
	assert.Equal(t, 0, runeAt(0))
	assert.Equal(t, 1, runeAt(1))
	assert.Equal(t, 1, runeAt(2))
	assert.Equal(t, 2, runeAt(3))
	assert.Equal(t, 5, runeAt(6))
	assert.Equal(t, 5, runeAt(100))
}
