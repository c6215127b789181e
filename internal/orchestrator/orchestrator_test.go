package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"vidspark/internal/domain"
)

type fakeQueue struct {
	submitErr error
	waitErr   error
	artifact  *domain.OutputArtifact
}

func (f *fakeQueue) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "job-1", nil
}

func (f *fakeQueue) Wait(ctx context.Context, jobID string) (*domain.OutputArtifact, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return f.artifact, nil
}

type fakeSync struct {
	artifact *domain.OutputArtifact
	err      error
}

func (f *fakeSync) Dispatch(ctx context.Context, req domain.GenerationRequest) (*domain.OutputArtifact, error) {
	return f.artifact, f.err
}

type fakeLocal struct {
	frames int
}

func (f *fakeLocal) Render(ctx context.Context, req domain.GenerationRequest, onProgress func(float64)) (*domain.OutputArtifact, error) {
	for i := 0; i < f.frames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(100 * float64(i+1) / float64(f.frames))
		}
	}
	return &domain.OutputArtifact{URL: "/static/renders/x.avi", Local: true}, nil
}

func validRequest(backend domain.Backend) domain.GenerationRequest {
	return domain.GenerationRequest{
		ID:              "sess-1",
		Source:          domain.SourceImage{Data: []byte{1, 2, 3}, MIME: "image/png"},
		UserPrompt:      "a lighthouse at dusk",
		CameraMove:      domain.CameraPushIn,
		MotionIntensity: domain.MotionMedium,
		DurationSeconds: 4,
		Style:           domain.StyleCinematic,
		Backend:         backend,
	}
}

func awaitTerminal(t *testing.T, o *Orchestrator, id string) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		session, err := o.Store().Get(id)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		snap := session.Snapshot()
		if snap.State == StateSucceeded || snap.State == StateFailed {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("session never reached a terminal state: %+v", snap)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestStartRejectsInvalidRequests(t *testing.T) {
	o := New(&fakeQueue{}, &fakeSync{}, &fakeLocal{}, NewStore(), nil)

	cases := []struct {
		name  string
		edit  func(*domain.GenerationRequest)
		field string
	}{
		{"short prompt", func(r *domain.GenerationRequest) { r.UserPrompt = "hi" }, "prompt"},
		{"duration too low", func(r *domain.GenerationRequest) { r.DurationSeconds = 1 }, "duration"},
		{"duration too high", func(r *domain.GenerationRequest) { r.DurationSeconds = 10 }, "duration"},
		{"missing image", func(r *domain.GenerationRequest) { r.Source.Data = nil }, "image"},
	}
	for _, tc := range cases {
		req := validRequest(domain.BackendLocal)
		tc.edit(&req)
		_, err := o.Start(req)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: err = %v, want ValidationError", tc.name, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("%s: field = %q, want %q", tc.name, verr.Field, tc.field)
		}
		if _, err := o.Store().Get(req.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s: session created despite validation failure", tc.name)
		}
	}
}

func TestQueuedBackendLifecycle(t *testing.T) {
	queue := &fakeQueue{artifact: &domain.OutputArtifact{URL: "https://x/video.mp4"}}
	o := New(queue, &fakeSync{}, &fakeLocal{}, NewStore(), nil)

	id, err := o.Start(validRequest(domain.BackendQueued))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := awaitTerminal(t, o, id)
	if snap.State != StateSucceeded {
		t.Fatalf("state = %s (error %q), want succeeded", snap.State, snap.Error)
	}
	if snap.Artifact == nil || snap.Artifact.URL != "https://x/video.mp4" {
		t.Fatalf("artifact = %+v", snap.Artifact)
	}
	if snap.Progress != 100 {
		t.Fatalf("progress = %v, want 100", snap.Progress)
	}
}

func TestQueuedBackendSubmitFailure(t *testing.T) {
	queue := &fakeQueue{submitErr: &domain.SchemaIncompleteError{Version: "v1"}}
	o := New(queue, &fakeSync{}, &fakeLocal{}, NewStore(), nil)

	id, err := o.Start(validRequest(domain.BackendQueued))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := awaitTerminal(t, o, id)
	if snap.State != StateFailed {
		t.Fatalf("state = %s, want failed", snap.State)
	}
	if snap.Error == "" || snap.Artifact != nil {
		t.Fatalf("failure did not clear state: %+v", snap)
	}
}

func TestLocalBackendReportsProgress(t *testing.T) {
	o := New(&fakeQueue{}, &fakeSync{}, &fakeLocal{frames: 10}, NewStore(), nil)

	id, err := o.Start(validRequest(domain.BackendLocal))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := awaitTerminal(t, o, id)
	if snap.State != StateSucceeded {
		t.Fatalf("state = %s (error %q)", snap.State, snap.Error)
	}
	if snap.Artifact == nil || !snap.Artifact.Local {
		t.Fatalf("artifact = %+v, want local artifact", snap.Artifact)
	}
}

func TestIntrospectBackendExhaustionSurfacesMitigations(t *testing.T) {
	sync := &fakeSync{err: &domain.AllCandidatesExhaustedError{Attempts: 6, LastErr: errors.New("gpu task aborted")}}
	o := New(&fakeQueue{}, sync, &fakeLocal{}, NewStore(), nil)

	id, err := o.Start(validRequest(domain.BackendIntrospect))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := awaitTerminal(t, o, id)
	if snap.State != StateFailed {
		t.Fatalf("state = %s, want failed", snap.State)
	}
	for _, expect := range []string{"shorter duration", "gpu task aborted"} {
		if !strings.Contains(strings.ToLower(snap.Error), expect) {
			t.Fatalf("error %q missing %q", snap.Error, expect)
		}
	}
}

func TestTerminalSnapshotsCarryTheirPayload(t *testing.T) {
	for i := 0; i < 500; i++ {
		s := newSession("s", domain.GenerationRequest{}, nil)
		if err := s.transition(StateDispatching, "x"); err != nil {
			t.Fatalf("idle -> dispatching: %v", err)
		}
		observed := make(chan Snapshot, 1)
		go func() {
			for {
				snap := s.Snapshot()
				if snap.State == StateSucceeded || snap.State == StateFailed {
					observed <- snap
					return
				}
			}
		}()
		if i%2 == 0 {
			s.succeed(&domain.OutputArtifact{URL: "https://x/video.mp4"})
		} else {
			s.fail(errors.New("boom"))
		}
		snap := <-observed
		switch snap.State {
		case StateSucceeded:
			if snap.Artifact == nil || snap.Artifact.URL == "" {
				t.Fatalf("succeeded snapshot without artifact: %+v", snap)
			}
			if snap.Progress != 100 {
				t.Fatalf("succeeded snapshot with progress %v", snap.Progress)
			}
		case StateFailed:
			if snap.Error == "" {
				t.Fatalf("failed snapshot without error text: %+v", snap)
			}
		}
	}
}

func TestTransitionTableRejectsIllegalMoves(t *testing.T) {
	s := newSession("s", domain.GenerationRequest{}, nil)
	if err := s.transition(StateSucceeded, "x"); err == nil {
		t.Fatalf("idle -> succeeded should be rejected")
	}
	if err := s.transition(StateDispatching, "x"); err != nil {
		t.Fatalf("idle -> dispatching: %v", err)
	}
	if err := s.transition(StatePolling, "x"); err != nil {
		t.Fatalf("dispatching -> polling: %v", err)
	}
	if err := s.transition(StateSucceeded, "x"); err != nil {
		t.Fatalf("polling -> succeeded: %v", err)
	}
	if err := s.transition(StateFailed, "x"); err == nil {
		t.Fatalf("terminal state accepted a transition out")
	}
}
