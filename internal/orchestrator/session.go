// Package orchestrator owns one generation request from validation to a
// single output artifact, tracking user-visible state along the way.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vidspark/internal/domain"
)

// State names one phase of a generation session.
type State string

const (
	StateIdle           State = "idle"
	StateDispatching    State = "dispatching"
	StatePolling        State = "polling"
	StateRenderingLocal State = "rendering_local"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

// validTransitions is the explicit transition table. Terminal states have no
// exits.
var validTransitions = map[State][]State{
	StateIdle:           {StateDispatching, StateRenderingLocal, StateFailed},
	StateDispatching:    {StatePolling, StateSucceeded, StateFailed},
	StatePolling:        {StateSucceeded, StateFailed},
	StateRenderingLocal: {StateSucceeded, StateFailed},
}

// Session tracks one request's lifecycle. It is mutated only through its
// methods; handlers read point-in-time snapshots.
type Session struct {
	mu sync.Mutex

	id        string
	state     State
	progress  float64
	statusMsg string
	errText   string
	artifact  *domain.OutputArtifact
	request   domain.GenerationRequest
	cancel    context.CancelFunc
	createdAt time.Time
	updatedAt time.Time
}

// Snapshot is the read-only view exposed over the API.
type Snapshot struct {
	ID        string                 `json:"id"`
	State     State                  `json:"state"`
	Progress  float64                `json:"progress"`
	Status    string                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Artifact  *domain.OutputArtifact `json:"artifact,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func newSession(id string, req domain.GenerationRequest, cancel context.CancelFunc) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		state:     StateIdle,
		statusMsg: "queued",
		request:   req,
		cancel:    cancel,
		createdAt: now,
		updatedAt: now,
	}
}

// transition moves the session to a new state, rejecting moves the table does
// not allow. Terminal states absorb: a late transition out of them is a bug.
func (s *Session) transition(to State, statusMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to, statusMsg)
}

func (s *Session) transitionLocked(to State, statusMsg string) error {
	allowed := false
	for _, next := range validTransitions[s.state] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("invalid session transition %s -> %s", s.state, to)
	}
	s.state = to
	s.statusMsg = statusMsg
	s.updatedAt = time.Now()
	return nil
}

func (s *Session) setProgress(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p > s.progress {
		s.progress = p
	}
	s.updatedAt = time.Now()
}

// succeed records the single artifact and enters the terminal success state.
// The transition and the artifact write share one critical section so no
// snapshot ever shows a succeeded session without its artifact.
func (s *Session) succeed(artifact *domain.OutputArtifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(StateSucceeded, "done"); err != nil {
		return
	}
	s.artifact = artifact
	s.progress = 100
}

// fail clears in-progress state and records the user-visible error text.
// Every failure path lands here; nothing is silently swallowed. The error
// text lands in the same critical section as the transition.
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if terr := s.transitionLocked(StateFailed, "failed"); terr != nil {
		return
	}
	s.errText = err.Error()
	s.artifact = nil
}

// Cancel requests cooperative cancellation: in-flight calls finish, no new
// iteration starts.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Snapshot returns a point-in-time copy safe to serialize.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.id,
		State:     s.state,
		Progress:  s.progress,
		Status:    s.statusMsg,
		Error:     s.errText,
		Artifact:  s.artifact,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}
