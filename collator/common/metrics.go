package common

import (
	"sync"
	"time"
)

// PerformanceMetrics defines the interface for performance tracking
type PerformanceMetrics interface {
	GetMetrics() map[string]interface{}
}

// BaseMetrics provides common fields used across different metrics types
type BaseMetrics struct {
	TotalOperations int64
	SuccessfulOps   int64
	FailedOps       int64
	LastOperation   time.Time
	TotalDuration   time.Duration
	Mu              sync.RWMutex
}

// UpdateBaseMetrics updates common metrics fields
func (bm *BaseMetrics) UpdateBaseMetrics(start time.Time, success bool) {
	bm.Mu.Lock()
	defer bm.Mu.Unlock()

	bm.TotalOperations++
	if success {
		bm.SuccessfulOps++
	} else {
		bm.FailedOps++
	}
	bm.TotalDuration += time.Since(start)
	bm.LastOperation = time.Now()
}

// GetBaseMetrics returns the common metrics as a map
func (bm *BaseMetrics) GetBaseMetrics() map[string]interface{} {
	bm.Mu.RLock()
	defer bm.Mu.RUnlock()

	return map[string]interface{}{
		"total_operations": bm.TotalOperations,
		"successful_ops":   bm.SuccessfulOps,
		"failed_ops":       bm.FailedOps,
		"last_operation":   bm.LastOperation,
		"total_duration":   bm.TotalDuration,
	}
}

// LabelingMetrics tracks data-quality signals produced while labeling a dataset
type LabelingMetrics struct {
	BaseMetrics
	Truncated    int64
	FullyMasked  int64
	MultiTurn    int64
	SkippedSpans int64
	Tokens       int64
}

// Record folds the signals of a single labeled example into the metrics
func (lm *LabelingMetrics) Record(start time.Time, truncated, fullyMasked, multiTurn bool, skippedSpans, tokens int) {
	lm.UpdateBaseMetrics(start, true)

	lm.Mu.Lock()
	defer lm.Mu.Unlock()
	if truncated {
		lm.Truncated++
	}
	if fullyMasked {
		lm.FullyMasked++
	}
	if multiTurn {
		lm.MultiTurn++
	}
	lm.SkippedSpans += int64(skippedSpans)
	lm.Tokens += int64(tokens)
}

// GetMetrics returns labeling metrics as a map
func (lm *LabelingMetrics) GetMetrics() map[string]interface{} {
	metrics := lm.GetBaseMetrics()
	lm.Mu.RLock()
	defer lm.Mu.RUnlock()

	metrics["truncated"] = lm.Truncated
	metrics["fully_masked"] = lm.FullyMasked
	metrics["multi_turn"] = lm.MultiTurn
	metrics["skipped_spans"] = lm.SkippedSpans
	metrics["tokens"] = lm.Tokens
	return metrics
}

// EvalMetrics tracks per-item generation outcomes
type EvalMetrics struct {
	BaseMetrics
	AverageTime time.Duration
}

// UpdateMetrics records one evaluated item
func (em *EvalMetrics) UpdateMetrics(start time.Time, success bool) {
	em.UpdateBaseMetrics(start, success)

	em.Mu.Lock()
	defer em.Mu.Unlock()
	if em.TotalOperations > 0 {
		em.AverageTime = em.TotalDuration / time.Duration(em.TotalOperations)
	}
}

// GetMetrics returns eval metrics as a map
func (em *EvalMetrics) GetMetrics() map[string]interface{} {
	metrics := em.GetBaseMetrics()
	em.Mu.RLock()
	defer em.Mu.RUnlock()

	metrics["average_time"] = em.AverageTime
	return metrics
}
