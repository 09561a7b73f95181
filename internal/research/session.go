// Package research runs the multi-step token research workflow and streams
// its progress to a Sink.
package research

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/logger"
)

// ErrInvalidTransition is returned when a step is moved to a state its
// current state cannot reach.
var ErrInvalidTransition = errors.New("invalid step transition")

// ErrUnknownStep is returned for a step id the session does not hold.
var ErrUnknownStep = errors.New("unknown step")

// Sink receives progress messages in transition order.
type Sink interface {
	Emit(ctx context.Context, msg domain.ProgressMessage) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, msg domain.ProgressMessage) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, msg domain.ProgressMessage) error {
	return f(ctx, msg)
}

// StepDef names and describes a step.
type StepDef struct {
	ID          string
	Title       string
	Description string
}

// Session holds step state for one research run. Every transition emits a
// snapshot of all steps; snapshots never alias session state.
type Session struct {
	mu    sync.Mutex
	steps []domain.ResearchStep
	sink  Sink
	log   *logrus.Entry
	now   func() time.Time
}

// NewSession creates a session with every step waiting. It does not emit;
// call Begin to publish the initial state.
func NewSession(defs []StepDef, sink Sink, log *logrus.Entry) *Session {
	steps := make([]domain.ResearchStep, len(defs))
	for i, d := range defs {
		steps[i] = domain.ResearchStep{ID: d.ID, Title: d.Title, Description: d.Description, Status: domain.StepWaiting}
	}
	return &Session{
		steps: steps,
		sink:  sink,
		log:   logger.OrDiscard(log, "research"),
		now:   time.Now,
	}
}

// Begin emits the initial all-waiting state.
func (s *Session) Begin(ctx context.Context) {
	s.mu.Lock()
	msg := s.messageLocked(nil)
	s.mu.Unlock()
	s.emit(ctx, msg)
}

// Start moves a waiting step to processing.
func (s *Session) Start(ctx context.Context, id string) error {
	return s.transition(ctx, id, domain.StepProcessing, fmt.Sprintf("Processing %s...", id), nil)
}

// Complete moves a processing step to completed and attaches its result.
func (s *Session) Complete(ctx context.Context, id string, result interface{}) error {
	return s.transition(ctx, id, domain.StepCompleted, fmt.Sprintf("Completed %s", id), result)
}

// Fail moves a processing step to failed.
func (s *Session) Fail(ctx context.Context, id string, cause error) error {
	msg := "Failed"
	if cause != nil {
		msg = "Failed: " + cause.Error()
	}
	return s.transition(ctx, id, domain.StepFailed, msg, nil)
}

// Skip moves a waiting step to skipped.
func (s *Session) Skip(ctx context.Context, id, reason string) error {
	msg := "Skipped"
	if reason != "" {
		msg = "Skipped - " + reason
	}
	return s.transition(ctx, id, domain.StepSkipped, msg, nil)
}

// Finish emits the terminal message of a completed run.
func (s *Session) Finish(ctx context.Context, summary domain.ResearchSummary) {
	s.mu.Lock()
	msg := s.messageLocked(nil)
	msg.Completed = true
	msg.Summary = &summary
	s.mu.Unlock()
	s.emit(ctx, msg)
}

// Snapshot returns a copy of the current steps.
func (s *Session) Snapshot() []domain.ResearchStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Progress returns round(100 * (completed + skipped) / total).
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

// CompletedResults maps completed step ids to their results. Skipped and
// failed steps are not included.
func (s *Session) CompletedResults() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]interface{})
	for _, st := range s.steps {
		if st.Status == domain.StepCompleted {
			out[st.ID] = st.Result
		}
	}
	return out
}

func (s *Session) transition(ctx context.Context, id string, to domain.StepStatus, message string, result interface{}) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}
	from := s.steps[idx].Status
	if !allowed(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, id, from, to)
	}

	st := &s.steps[idx]
	st.Status = to
	st.Message = message
	st.Result = result
	st.Timestamp = s.now().UTC().Format(time.RFC3339)

	current := id
	msg := s.messageLocked(&current)
	s.mu.Unlock()

	s.emit(ctx, msg)
	return nil
}

func allowed(from, to domain.StepStatus) bool {
	switch from {
	case domain.StepWaiting:
		return to == domain.StepProcessing || to == domain.StepSkipped
	case domain.StepProcessing:
		return to == domain.StepCompleted || to == domain.StepFailed
	}
	return false
}

func (s *Session) emit(ctx context.Context, msg domain.ProgressMessage) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(ctx, msg); err != nil {
		s.log.WithError(err).Warn("progress emit failed")
	}
}

func (s *Session) messageLocked(current *string) domain.ProgressMessage {
	return domain.ProgressMessage{
		Type:            domain.ProgressMessageType,
		Steps:           s.copyLocked(),
		CurrentStep:     current,
		OverallProgress: s.progressLocked(),
	}
}

func (s *Session) copyLocked() []domain.ResearchStep {
	out := make([]domain.ResearchStep, len(s.steps))
	copy(out, s.steps)
	return out
}

func (s *Session) progressLocked() int {
	if len(s.steps) == 0 {
		return 0
	}
	done := 0
	for _, st := range s.steps {
		if st.Status == domain.StepCompleted || st.Status == domain.StepSkipped {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(s.steps))))
}

func (s *Session) indexLocked(id string) int {
	for i := range s.steps {
		if s.steps[i].ID == id {
			return i
		}
	}
	return -1
}
