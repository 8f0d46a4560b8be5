// Package eval runs a generator over evaluation items and records its
// answers. A failed item gets ErrorSentinel instead of aborting the run.
package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/ZanzyTHEbar/glm-collator/collator/prompt"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// ErrorSentinel replaces the answer of an item whose generation failed.
const ErrorSentinel = "Eval Error"

// ErrNoResponse is returned when the decoded text has no response marker.
var ErrNoResponse = errors.New("generated text has no response marker")

// Generator produces the decoded model output for a prompt, prompt included.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Item is one evaluation record.
type Item struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Expected    string `json:"output"`
	Actual      string `json:"ac_output"`
}

// Evaluator fans items out to a Generator.
type Evaluator struct {
	gen        Generator
	eosText    string
	maxWorkers int
	logger     zerolog.Logger
	metrics    *common.EvalMetrics
}

// NewEvaluator creates an evaluator running at most maxWorkers generations at once.
func NewEvaluator(gen Generator, eosText string, maxWorkers int, logger zerolog.Logger) *Evaluator {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Evaluator{
		gen:        gen,
		eosText:    eosText,
		maxWorkers: maxWorkers,
		logger:     logger,
		metrics:    &common.EvalMetrics{},
	}
}

// Metrics returns the per-item outcome counters.
func (e *Evaluator) Metrics() *common.EvalMetrics {
	return e.metrics
}

// Evaluate fills Actual on a copy of every item.
func (e *Evaluator) Evaluate(ctx context.Context, items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	p := pool.New().WithMaxGoroutines(e.maxWorkers).WithContext(ctx)
	for i := range out {
		i := i
		p.Go(func(ctx context.Context) error {
			out[i].Actual = e.answer(ctx, i, out[i])
			return nil
		})
	}
	_ = p.Wait()

	e.logger.Info().Interface("metrics", e.metrics.GetMetrics()).Msg("Evaluation completed")
	return out
}

func (e *Evaluator) answer(ctx context.Context, i int, item Item) (answer string) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Int("index", i).Interface("panic", r).Msg("Generation panicked")
			answer = ErrorSentinel
		}
		e.metrics.UpdateMetrics(start, answer != ErrorSentinel)
	}()

	resp, err := e.Respond(ctx, item.Instruction, item.Input)
	if err != nil {
		e.logger.Warn().Int("index", i).Err(err).Msg("Generation failed")
		return ErrorSentinel
	}
	return resp
}

// Respond generates the answer for one instruction.
func (e *Evaluator) Respond(ctx context.Context, instruction, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	decoded, err := e.gen.Generate(ctx, prompt.RenderEval(instruction, input))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return ExtractResponse(decoded, e.eosText)
}

// ExtractResponse returns the text between the first response marker and the
// next one (or the end) with surrounding whitespace and a trailing eosText removed.
func ExtractResponse(decoded, eosText string) (string, error) {
	_, after, ok := strings.Cut(decoded, prompt.ResponseMarker)
	if !ok {
		return "", ErrNoResponse
	}
	after, _, _ = strings.Cut(after, prompt.ResponseMarker)
	resp := strings.TrimSpace(after)
	if eosText != "" {
		resp = strings.TrimSpace(strings.TrimSuffix(resp, eosText))
	}
	return resp, nil
}
