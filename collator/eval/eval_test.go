package eval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ZanzyTHEbar/glm-collator/collator/prompt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoGenerator answers every prompt with a canned reply keyed by instruction.
type echoGenerator struct {
	mu      sync.Mutex
	prompts []string
	replies map[string]string
}

func (g *echoGenerator) Generate(_ context.Context, p string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, p)
	g.mu.Unlock()

	for instruction, reply := range g.replies {
		if strings.Contains(p, instruction) {
			switch reply {
			case "fail":
				return "", errors.New("model unavailable")
			case "panic":
				panic("cuda out of memory")
			}
			return p + " " + reply, nil
		}
	}
	return p, nil
}

func TestEvaluateFillsAnswers(t *testing.T) {
	gen := &echoGenerator{replies: map[string]string{
		"Add one and one": "two</s>",
		"Translate":       "hello </s>",
	}}
	items := []Item{
		{Instruction: "Add one and one", Expected: "two"},
		{Instruction: "Translate", Input: "bonjour", Expected: "hello"},
	}

	got := NewEvaluator(gen, "</s>", 2, zerolog.Nop()).Evaluate(context.Background(), items)

	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Actual)
	assert.Equal(t, "hello", got[1].Actual)
	assert.Empty(t, items[0].Actual, "input items are not modified")

	assert.Contains(t, gen.prompts, prompt.RenderEval("Translate", "bonjour"))
}

func TestEvaluateRecordsSentinelOnFailure(t *testing.T) {
	gen := &echoGenerator{replies: map[string]string{
		"works":   "fine",
		"broken":  "fail",
		"crashes": "panic",
	}}
	items := []Item{
		{Instruction: "works"},
		{Instruction: "broken"},
		{Instruction: "crashes"},
		{Instruction: "silent"},
	}

	e := NewEvaluator(gen, "</s>", 4, zerolog.Nop())
	got := e.Evaluate(context.Background(), items)

	assert.Equal(t, "fine", got[0].Actual)
	assert.Equal(t, ErrorSentinel, got[1].Actual)
	assert.Equal(t, ErrorSentinel, got[2].Actual)
	// the echoed prompt still ends with the response marker
	assert.Equal(t, "", got[3].Actual)

	metrics := e.Metrics().GetMetrics()
	assert.Equal(t, int64(4), metrics["total_operations"])
	assert.Equal(t, int64(2), metrics["failed_ops"])
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := NewEvaluator(&echoGenerator{}, "</s>", 1, zerolog.Nop()).Evaluate(ctx, []Item{{Instruction: "works"}})
	assert.Equal(t, ErrorSentinel, got[0].Actual)
}

func TestExtractResponse(t *testing.T) {
	tests := []struct {
		name    string
		decoded string
		want    string
		wantErr error
	}{
		{"plain", "prompt ### Response: four", "four", nil},
		{"trailing eos", "prompt ### Response:\n four </s>", "four", nil},
		{"stops at next marker", "p ### Response: a ### Response: b", "a", nil},
		{"no marker", "just text", "", ErrNoResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractResponse(tt.decoded, "</s>")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
