package batch

import (
	"testing"

	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func full(n int) []Span {
	return []Span{{Start: 0, End: n}}
}

func TestBlockPositions(t *testing.T) {
	tests := []struct {
		name      string
		builder   BlockPositionBuilder
		ids       []int
		wantPos   []int
		wantBlock []int
	}{
		{
			name:      "2d holds at gmask",
			builder:   BlockPositionBuilder{BOS: testBOS, Mask: testMask, GMask: testGMask, TwoD: true},
			ids:       []int{10, testGMask, 11, testBOS, 13, 14},
			wantPos:   []int{0, 1, 2, 1, 1, 1},
			wantBlock: []int{0, 0, 0, 1, 2, 3},
		},
		{
			name:      "2d prefers gmask over mask",
			builder:   BlockPositionBuilder{BOS: testBOS, Mask: testMask, GMask: testGMask, TwoD: true},
			ids:       []int{testMask, 10, testGMask, testBOS, 13},
			wantPos:   []int{0, 1, 2, 2, 2},
			wantBlock: []int{0, 0, 0, 1, 2},
		},
		{
			name:      "2d without mask tokens holds at last context position",
			builder:   BlockPositionBuilder{BOS: testBOS, Mask: testMask, GMask: testGMask, TwoD: true},
			ids:       []int{10, 11, 12, testBOS, 13},
			wantPos:   []int{0, 1, 2, 2, 2},
			wantBlock: []int{0, 0, 0, 1, 2},
		},
		{
			name:    "1d with gmask keeps counting",
			builder: BlockPositionBuilder{BOS: testBOS, Mask: testMask, GMask: testGMask},
			ids:     []int{10, testGMask, 11, testBOS, 13, 14},
			wantPos: []int{0, 1, 2, 3, 4, 5},
		},
		{
			name:    "1d with mask holds",
			builder: BlockPositionBuilder{BOS: testBOS, Mask: testMask, GMask: testGMask},
			ids:     []int{10, testMask, 11, testBOS, 13},
			wantPos: []int{0, 1, 2, 1, 1},
		},
		{
			name:    "unset gmask falls back to mask",
			builder: BlockPositionBuilder{BOS: testBOS, Mask: testMask, GMask: tokenizer.Unset},
			ids:     []int{10, testMask, testGMask, testBOS, 13},
			wantPos: []int{0, 1, 2, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.builder.Build([][]int{tt.ids}, full(len(tt.ids)))
			require.NoError(t, err)
			assert.Equal(t, tt.wantPos, got.Position[0])
			if tt.builder.TwoD {
				require.NotNil(t, got.Block)
				assert.Equal(t, tt.wantBlock, got.Block[0])
				assert.Equal(t, 2, got.Channels())
				assert.Equal(t, []int{1, 2, len(tt.ids)}, got.Shape())
			} else {
				assert.Nil(t, got.Block)
				assert.Equal(t, 1, got.Channels())
				assert.Equal(t, []int{1, len(tt.ids)}, got.Shape())
			}
		})
	}
}

func TestBlockPositionsRequireBOS(t *testing.T) {
	builder := BlockPositionBuilder{BOS: testBOS, Mask: testMask, GMask: testGMask, TwoD: true}
	_, err := builder.Build([][]int{{10, 11}}, full(2))
	assert.ErrorIs(t, err, ErrContextMarkerNotFound)
}

func TestFlatPositionsSkipLeftPadding(t *testing.T) {
	ids := [][]int{
		{testPad, testPad, 7, 8, 9},
		{1, 2, 3, 4, 5},
	}
	got, err := FlatPositionBuilder{}.Build(ids, []Span{{Start: 2, End: 5}, {Start: 0, End: 5}})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 0, 0, 1, 2}, {0, 1, 2, 3, 4}}, got.Position)
	assert.Nil(t, got.Block)
	assert.Equal(t, []int{2, 5}, got.Shape())
}
