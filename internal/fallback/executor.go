// Package fallback runs an ordered list of equivalent strategies with
// round-robin retry cycles.
package fallback

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/logger"
	"token-intel/internal/observability"
)

// DefaultMaxCycles is the cycle budget used by every call site unless configured otherwise.
const DefaultMaxCycles = 3

// Strategy is one named way of fetching a fact.
type Strategy[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// Outcome is the result of a successful run.
type Outcome[T any] struct {
	Value        T
	StrategyUsed string
	Attempts     int
}

// AggregateFailure is returned when every strategy failed in every cycle.
type AggregateFailure struct {
	Plan     string
	Cycles   int
	Attempts int
	Last     error
}

func (e *AggregateFailure) Error() string {
	return fmt.Sprintf("All strategies failed after %d retry cycles: %v", e.Cycles, e.Last)
}

// Unwrap exposes the last strategy error.
func (e *AggregateFailure) Unwrap() error {
	return e.Last
}

// Executor runs fallback plans. The zero value is usable.
type Executor struct {
	Plan      string // label for logs and metrics
	MaxCycles int    // <= 0 means DefaultMaxCycles
	Log       *logrus.Entry
}

// New returns an executor for the named plan.
func New(plan string, maxCycles int, log *logrus.Entry) *Executor {
	return &Executor{Plan: plan, MaxCycles: maxCycles, Log: log}
}

// Run is a shorthand for New(plan, maxCycles, nil) followed by Execute.
func Run[T any](ctx context.Context, plan string, strategies []Strategy[T], maxCycles int) (Outcome[T], error) {
	return Execute(ctx, New(plan, maxCycles, nil), strategies)
}

// Execute tries strategies in order, one at a time, over (cycle, index) pairs.
// The first success returns immediately. A strategy is never re-attempted
// before every other strategy of the same cycle has been tried.
func Execute[T any](ctx context.Context, e *Executor, strategies []Strategy[T]) (Outcome[T], error) {
	var zero Outcome[T]
	if len(strategies) == 0 {
		return zero, fmt.Errorf("%w: fallback plan %q has no strategies", domain.ErrValidation, e.Plan)
	}

	maxCycles := e.MaxCycles
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	log := logger.OrDiscard(e.Log, "fallback").WithField("plan", e.Plan)

	var lastErr error
	attempts := 0

	for it := newIterator(len(strategies), maxCycles); it.next(); {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		s := strategies[it.index]
		attempts++

		value, err := s.Fetch(ctx)
		observability.RecordFallbackAttempt(e.Plan, s.Name, err)
		if err == nil {
			if attempts > 1 {
				log.WithFields(logrus.Fields{
					"strategy": s.Name,
					"attempts": attempts,
				}).Info("fallback strategy succeeded")
			}
			return Outcome[T]{Value: value, StrategyUsed: s.Name, Attempts: attempts}, nil
		}

		lastErr = err
		log.WithFields(logrus.Fields{
			"strategy": s.Name,
			"cycle":    it.cycle,
		}).WithError(err).Warn("fallback strategy failed")
	}

	observability.RecordFallbackExhausted(e.Plan)
	return zero, &AggregateFailure{Plan: e.Plan, Cycles: maxCycles, Attempts: attempts, Last: lastErr}
}

// iterator walks (cycle, index) pairs: cycle 1..maxCycles, index 0..n-1.
type iterator struct {
	n, maxCycles int
	cycle, index int
}

func newIterator(n, maxCycles int) *iterator {
	return &iterator{n: n, maxCycles: maxCycles, cycle: 1, index: -1}
}

func (it *iterator) next() bool {
	it.index++
	if it.index == it.n {
		it.index = 0
		it.cycle++
	}
	return it.cycle <= it.maxCycles
}
