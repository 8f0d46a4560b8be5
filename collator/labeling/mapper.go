package labeling

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/ZanzyTHEbar/glm-collator/collator/prompt"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Mapper labels a dataset with a bounded pool of workers. Results keep the
// order of the input.
type Mapper struct {
	labeler    *Labeler
	maxWorkers int
	logger     zerolog.Logger
	metrics    *common.LabelingMetrics
}

// NewMapper creates a mapper running at most maxWorkers labelers at once.
func NewMapper(labeler *Labeler, maxWorkers int, logger zerolog.Logger) *Mapper {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return &Mapper{
		labeler:    labeler,
		maxWorkers: maxWorkers,
		logger:     logger,
		metrics:    &common.LabelingMetrics{},
	}
}

// Metrics returns the data-quality counters accumulated so far.
func (m *Mapper) Metrics() *common.LabelingMetrics {
	return m.metrics
}

// Map labels every example. The first labeling error cancels the remaining work.
func (m *Mapper) Map(ctx context.Context, examples []prompt.Example) ([]TokenizedExample, error) {
	out := make([]TokenizedExample, len(examples))
	p := pool.New().WithMaxGoroutines(m.maxWorkers).WithContext(ctx).WithCancelOnError()

	for i, ex := range examples {
		i, ex := i, ex
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			labeled, err := m.labeler.Label(ex)
			if err != nil {
				m.metrics.UpdateBaseMetrics(start, false)
				return fmt.Errorf("example %d: %w", i, err)
			}
			m.observe(i, start, labeled)
			out[i] = labeled
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	m.logger.Info().
		Int("examples", len(examples)).
		Interface("metrics", m.metrics.GetMetrics()).
		Msg("Labeling completed")
	return out, nil
}

func (m *Mapper) observe(i int, start time.Time, ex TokenizedExample) {
	fullyMasked := ex.FullyMasked()
	m.metrics.Record(start, ex.Truncated, fullyMasked, ex.Template == prompt.NameMultiTurn, ex.SkippedSpans, len(ex.IDs))

	if ex.Truncated {
		m.logger.Debug().Int("index", i).Int("tokens", len(ex.IDs)).Msg("Example hit the length budget")
	}
	if fullyMasked {
		m.logger.Warn().Int("index", i).Int("source_len", ex.SourceLen).Msg("Example has no supervised tokens")
	}
	if ex.SkippedSpans > 0 {
		m.logger.Debug().Int("index", i).Int("skipped", ex.SkippedSpans).Msg("Dialogue turns could not be mapped to tokens")
	}
}
