package batch

import (
	"testing"

	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/ZanzyTHEbar/glm-collator/collator/labeling"
	"github.com/ZanzyTHEbar/glm-collator/collator/prompt"
	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer/tokenizertest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CollatorTestSuite struct {
	suite.Suite
	tok      *tokenizer.WordLevel
	examples []labeling.TokenizedExample
}

func TestCollatorSuite(t *testing.T) {
	suite.Run(t, new(CollatorTestSuite))
}

func (suite *CollatorTestSuite) SetupTest() {
	suite.tok = tokenizertest.NewGLM(suite.T(),
		"Say hi", "hello world", "Translate bonjour", "hello",
		"Human: hi Assistant: hello Human: bye Assistant: goodbye",
	)
	labeler, err := labeling.NewLabeler(suite.tok, 512)
	require.NoError(suite.T(), err)

	suite.examples = nil
	for _, ex := range []prompt.Example{
		{Instruction: "Say hi", Output: "hello world"},
		{Instruction: "Translate", Input: "bonjour", Output: "hello"},
		{Instruction: "Human: hi Assistant: hello Human: bye Assistant: goodbye"},
	} {
		labeled, err := labeler.Label(ex)
		require.NoError(suite.T(), err)
		suite.examples = append(suite.examples, labeled)
	}
}

func (suite *CollatorTestSuite) collator(opts Options) *Collator {
	c, err := NewCollator(opts, tokenizertest.Specials(), zerolog.Nop())
	require.NoError(suite.T(), err)
	return c
}

// assertRectangular checks that every tensor shares B and T.
func (suite *CollatorTestSuite) assertRectangular(b *Batch) {
	size, seqLen := b.Size(), b.SeqLen()
	require.Equal(suite.T(), len(suite.examples), size)
	for i := 0; i < size; i++ {
		assert.Len(suite.T(), b.InputIDs[i], seqLen)
		assert.Len(suite.T(), b.Labels[i], seqLen)
		assert.Len(suite.T(), b.PositionIDs.Position[i], seqLen)
		if b.PositionIDs.Block != nil {
			assert.Len(suite.T(), b.PositionIDs.Block[i], seqLen)
		}
	}
}

func (suite *CollatorTestSuite) TestV1Batch() {
	c := suite.collator(Options{Scheme: SchemeV1, PositionEncoding2D: true})
	assert.Equal(suite.T(), SchemeV1, c.Scheme())

	b, err := c.Collate(suite.examples)
	require.NoError(suite.T(), err)
	suite.assertRectangular(b)

	longest := 0
	for _, ex := range suite.examples {
		longest = max(longest, len(ex.IDs))
	}
	assert.Equal(suite.T(), longest+1, b.SeqLen())
	assert.Equal(suite.T(), []int{3, 1, b.SeqLen(), b.SeqLen()}, b.AttentionMask.Shape())
	assert.Equal(suite.T(), []int{3, 2, b.SeqLen()}, b.PositionIDs.Shape())

	for i, ex := range suite.examples {
		// real tokens keep their order at the front of the row
		assert.Equal(suite.T(), ex.IDs, b.InputIDs[i][:len(ex.IDs)])
		assert.Equal(suite.T(), ex.Labels, b.Labels[i][:len(ex.Labels)])
		for t := len(ex.IDs); t < b.SeqLen(); t++ {
			assert.Equal(suite.T(), tokenizertest.PadID, b.InputIDs[i][t])
			assert.Equal(suite.T(), labeling.IgnoreIndex, b.Labels[i][t])
			assert.False(suite.T(), b.AttentionMask.Attends(i, t, 0))
			assert.False(suite.T(), b.AttentionMask.Attends(i, 0, t))
		}
	}
}

func (suite *CollatorTestSuite) TestV2Batch() {
	c := suite.collator(Options{Scheme: SchemeV2, PadTo: PadLongest})

	b, err := c.Collate(suite.examples)
	require.NoError(suite.T(), err)
	suite.assertRectangular(b)
	assert.Equal(suite.T(), []int{3, b.SeqLen()}, b.AttentionMask.Shape())
	assert.Nil(suite.T(), b.PositionIDs.Block)

	for i, ex := range suite.examples {
		padLen := b.SeqLen() - len(ex.IDs)
		assert.Equal(suite.T(), Span{Start: padLen, End: b.SeqLen()}, b.Layout[i])
		// real tokens keep their order at the end of the row
		assert.Equal(suite.T(), ex.IDs, b.InputIDs[i][padLen:])
		assert.Equal(suite.T(), ex.Labels, b.Labels[i][padLen:])
		for t := 0; t < b.SeqLen(); t++ {
			assert.Equal(suite.T(), t >= padLen, b.AttentionMask.Attends(i, t, t))
			if t < padLen {
				assert.Equal(suite.T(), labeling.IgnoreIndex, b.Labels[i][t])
				assert.Equal(suite.T(), 0, b.PositionIDs.Position[i][t])
			} else {
				assert.Equal(suite.T(), t-padLen, b.PositionIDs.Position[i][t])
			}
		}
	}
}

func (suite *CollatorTestSuite) TestCollateInputs() {
	c := suite.collator(Options{Scheme: SchemeV2})
	b, err := c.CollateInputs([][]int{{7, 8, 9}, {1, 2, 3, 4, 5}})
	require.NoError(suite.T(), err)

	assert.Nil(suite.T(), b.Labels)
	assert.Equal(suite.T(), [][]int{{0, 0, 0, 1, 2}, {0, 1, 2, 3, 4}}, b.PositionIDs.Position)
	assert.NotEqual(suite.T(), b.ID.String(), "")
}

func (suite *CollatorTestSuite) TestCollateErrors() {
	c := suite.collator(Options{Scheme: SchemeV1})

	_, err := c.Collate(nil)
	assert.ErrorIs(suite.T(), err, common.ErrEmptyBatch)

	_, err = c.Collate([]labeling.TokenizedExample{{IDs: []int{7, testBOS}, Labels: []int{7}}})
	assert.ErrorIs(suite.T(), err, common.ErrLengthMismatch)

	_, err = c.Collate([]labeling.TokenizedExample{{IDs: []int{7, 8}, Labels: []int{7, 8}}})
	assert.ErrorIs(suite.T(), err, ErrContextMarkerNotFound)

	v2 := suite.collator(Options{Scheme: SchemeV2})
	_, err = v2.CollateInputs([][]int{{}, {}})
	assert.ErrorIs(suite.T(), err, ErrNoTokens)
}

func TestNewSchemeConfiguration(t *testing.T) {
	specials := tokenizertest.Specials()
	noBOS := specials
	noBOS.BOS = tokenizer.Unset
	noPad := specials
	noPad.Pad = tokenizer.Unset

	tests := []struct {
		name     string
		opts     Options
		specials tokenizer.SpecialTokens
	}{
		{"unknown scheme", Options{Scheme: "v3"}, specials},
		{"unsupported padding", Options{Scheme: SchemeV2, PadTo: "max_length"}, specials},
		{"v1 without bos", Options{Scheme: SchemeV1}, noBOS},
		{"v1 without pad", Options{Scheme: SchemeV1}, noPad},
		{"v2 without pad", Options{Scheme: SchemeV2}, noPad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheme(tt.opts, tt.specials)
			require.Error(t, err)
			assert.True(t, common.IsConfigurationError(err))
		})
	}

	scheme, err := NewScheme(Options{Scheme: SchemeV2}, noBOS)
	require.NoError(t, err)
	assert.Equal(t, SchemeV2, scheme.Name)
}
