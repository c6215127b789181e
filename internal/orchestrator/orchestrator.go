package orchestrator

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"vidspark/internal/domain"
	"vidspark/internal/infra"
)

// QueueBackend submits a job and later drives it to a terminal state. The two
// phases are separate so the session can surface dispatching vs polling.
type QueueBackend interface {
	Submit(ctx context.Context, req domain.GenerationRequest) (string, error)
	Wait(ctx context.Context, jobID string) (*domain.OutputArtifact, error)
}

// SyncBackend performs the full degrade-and-retry dance against synchronous
// introspectable services.
type SyncBackend interface {
	Dispatch(ctx context.Context, req domain.GenerationRequest) (*domain.OutputArtifact, error)
}

// LocalBackend renders a video with no external dependency.
type LocalBackend interface {
	Render(ctx context.Context, req domain.GenerationRequest, onProgress func(float64)) (*domain.OutputArtifact, error)
}

// Orchestrator routes validated requests to the selected backend and records
// their lifecycle in the session store.
type Orchestrator struct {
	queue  QueueBackend
	sync   SyncBackend
	local  LocalBackend
	store  *Store
	logger *infra.Logger
}

// New wires the three backends to a session store.
func New(queue QueueBackend, sync SyncBackend, local LocalBackend, store *Store, logger *infra.Logger) *Orchestrator {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Orchestrator{queue: queue, sync: sync, local: local, store: store, logger: logger}
}

// Store exposes the session store for read access.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Start validates the request and launches its dispatch in the background,
// returning the session id. Validation failures never create a running
// session.
func (o *Orchestrator) Start(req domain.GenerationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	ctx, cancel := context.WithCancel(context.Background())
	session := newSession(req.ID, req, cancel)
	o.store.put(session)

	go o.run(ctx, session, req)
	return req.ID, nil
}

// run drives one request to a terminal session state. All steps within one
// request are strictly sequential; there is no speculative dispatch across
// backends.
func (o *Orchestrator) run(ctx context.Context, session *Session, req domain.GenerationRequest) {
	defer session.Cancel()

	artifact, err := o.dispatch(ctx, session, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			err = errors.New("generation canceled")
		}
		o.logger.Warn().Str("session", req.ID).Str("backend", string(req.Backend)).Err(err).Msg("generation failed")
		session.fail(err)
		return
	}
	o.logger.Info().Str("session", req.ID).Str("backend", string(req.Backend)).Str("url", artifact.URL).Msg("generation succeeded")
	session.succeed(artifact)
}

func (o *Orchestrator) dispatch(ctx context.Context, session *Session, req domain.GenerationRequest) (*domain.OutputArtifact, error) {
	switch req.Backend {
	case domain.BackendQueued:
		if err := session.transition(StateDispatching, "submitting job"); err != nil {
			return nil, err
		}
		jobID, err := o.queue.Submit(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := session.transition(StatePolling, "waiting for job "+jobID); err != nil {
			return nil, err
		}
		return o.queue.Wait(ctx, jobID)

	case domain.BackendIntrospect:
		if err := session.transition(StateDispatching, "dispatching to inference services"); err != nil {
			return nil, err
		}
		return o.sync.Dispatch(ctx, req)

	case domain.BackendLocal:
		if err := session.transition(StateRenderingLocal, "rendering locally"); err != nil {
			return nil, err
		}
		return o.local.Render(ctx, req, session.setProgress)

	default:
		return nil, &domain.ValidationError{Field: "backend", Message: "unsupported backend"}
	}
}
