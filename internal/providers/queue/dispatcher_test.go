package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"vidspark/internal/domain"
)

// scriptedTransport serves canned JSON bodies keyed by URL path. Paths with
// multiple bodies are consumed in order, so a test can walk a job through its
// status transitions.
type scriptedTransport struct {
	responses map[string][]string
	served    map[string]int
	bodies    [][]byte
}

func (t *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		t.bodies = append(t.bodies, raw)
	}
	queue, ok := t.responses[req.URL.Path]
	if !ok || len(queue) == 0 {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader(`{"detail":"no stub for ` + req.URL.Path + `"}`)),
			Header:     http.Header{},
		}, nil
	}
	if t.served == nil {
		t.served = map[string]int{}
	}
	idx := t.served[req.URL.Path]
	if idx >= len(queue) {
		idx = len(queue) - 1
	}
	t.served[req.URL.Path]++
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(queue[idx])),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

func newTestDispatcher(t *testing.T, transport *scriptedTransport) *Dispatcher {
	t.Helper()
	client, err := NewClient(Options{
		APIToken:     "test-token",
		BaseURL:      "https://queue.test",
		HTTPClient:   &http.Client{Transport: transport},
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewDispatcher(client, "ver-1")
}

func testRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		ID:              "req-1",
		Source:          domain.SourceImage{Data: []byte{0x89, 'P', 'N', 'G'}, MIME: "image/png"},
		UserPrompt:      "a lighthouse at dusk",
		CameraMove:      domain.CameraPushIn,
		MotionIntensity: domain.MotionMedium,
		DurationSeconds: 4,
		Style:           domain.StyleCinematic,
		Backend:         domain.BackendQueued,
	}
}

const schemaBody = `{
	"openapi_schema": {"components": {"schemas": {"Input": {
		"properties": {
			"caption": {"type": "string", "title": "Video Prompt"},
			"ref_image": {"type": "string", "format": "uri"},
			"seconds": {"type": "integer"},
			"seed": {"type": "integer"}
		},
		"required": ["caption", "ref_image"]
	}}}}
}`

func TestSubmitAndWaitThroughTerminalSuccess(t *testing.T) {
	transport := &scriptedTransport{responses: map[string][]string{
		"/v1/models/versions/ver-1": {schemaBody},
		"/v1/predictions":           {`{"id": "job-9", "status": "starting"}`},
		"/v1/predictions/job-9": {
			`{"id": "job-9", "status": "starting"}`,
			`{"id": "job-9", "status": "processing", "logs": "step 1\nstep 2"}`,
			`{"id": "job-9", "status": "succeeded", "output": "https://x/video.mp4"}`,
		},
	}}
	d := newTestDispatcher(t, transport)

	jobID, err := d.Submit(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if jobID != "job-9" {
		t.Fatalf("job id = %q, want job-9", jobID)
	}

	artifact, err := d.Wait(context.Background(), jobID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if artifact.URL != "https://x/video.mp4" {
		t.Fatalf("artifact url = %q", artifact.URL)
	}
	if got := transport.served["/v1/predictions/job-9"]; got != 3 {
		t.Fatalf("poll count = %d, want 3 (stop on first terminal status)", got)
	}
}

func TestSubmitResolvesSchemaIntoPayload(t *testing.T) {
	transport := &scriptedTransport{responses: map[string][]string{
		"/v1/models/versions/ver-1": {schemaBody},
		"/v1/predictions":           {`{"id": "job-1", "status": "starting"}`},
	}}
	d := newTestDispatcher(t, transport)

	if _, err := d.Submit(context.Background(), testRequest()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(transport.bodies) == 0 {
		t.Fatalf("no request body captured")
	}
	var sent struct {
		Version string         `json:"version"`
		Input   map[string]any `json:"input"`
	}
	if err := json.Unmarshal(transport.bodies[len(transport.bodies)-1], &sent); err != nil {
		t.Fatalf("decode submit body: %v", err)
	}
	if sent.Version != "ver-1" {
		t.Fatalf("version = %q", sent.Version)
	}
	caption, _ := sent.Input["caption"].(string)
	if !strings.Contains(caption, "a lighthouse at dusk") {
		t.Fatalf("prompt missing user text: %q", caption)
	}
	if !strings.HasPrefix(caption, "[Push in]") {
		t.Fatalf("prompt missing director tag: %q", caption)
	}
	ref, _ := sent.Input["ref_image"].(string)
	if !strings.HasPrefix(ref, "data:image/png;base64,") {
		t.Fatalf("image field not a data uri: %q", ref)
	}
	if sent.Input["seconds"] != 4.0 {
		t.Fatalf("seconds = %v, want 4", sent.Input["seconds"])
	}
	if sent.Input["seed"] != float64(fixedSeed) {
		t.Fatalf("seed = %v, want %d", sent.Input["seed"], fixedSeed)
	}
}

func TestSubmitRejectsSchemaWithoutImageField(t *testing.T) {
	transport := &scriptedTransport{responses: map[string][]string{
		"/v1/models/versions/ver-1": {`{
			"openapi_schema": {"components": {"schemas": {"Input": {
				"properties": {"prompt": {"type": "string"}},
				"required": ["prompt"]
			}}}}
		}`},
	}}
	d := newTestDispatcher(t, transport)

	_, err := d.Submit(context.Background(), testRequest())
	var incomplete *domain.SchemaIncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want SchemaIncompleteError", err)
	}
	if transport.served["/v1/predictions"] != 0 {
		t.Fatalf("submission happened despite incomplete schema")
	}
}

func TestWaitSurfacesRemoteFailureText(t *testing.T) {
	transport := &scriptedTransport{responses: map[string][]string{
		"/v1/predictions/job-2": {`{"id": "job-2", "status": "failed", "error": "CUDA out of memory"}`},
	}}
	d := newTestDispatcher(t, transport)

	_, err := d.Wait(context.Background(), "job-2")
	if err == nil || !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("err = %v, want remote error text", err)
	}
}

func TestWaitSucceededWithoutOutputIsHardFailure(t *testing.T) {
	transport := &scriptedTransport{responses: map[string][]string{
		"/v1/predictions/job-3": {`{"id": "job-3", "status": "succeeded", "output": {"frames": 48}}`},
	}}
	d := newTestDispatcher(t, transport)

	_, err := d.Wait(context.Background(), "job-3")
	if !errors.Is(err, domain.ErrSucceededWithoutOutput) {
		t.Fatalf("err = %v, want ErrSucceededWithoutOutput", err)
	}
}

func TestPollToleratesMissingLogs(t *testing.T) {
	transport := &scriptedTransport{responses: map[string][]string{
		"/v1/predictions/job-4": {`{"id": "job-4", "status": "processing"}`},
	}}
	d := newTestDispatcher(t, transport)

	job, err := d.client.Poll(context.Background(), "job-4")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if job.LogsTail != "" {
		t.Fatalf("logs tail = %q, want empty", job.LogsTail)
	}
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %q", job.Status)
	}
}

func TestWaitStopsOnCancellation(t *testing.T) {
	transport := &scriptedTransport{responses: map[string][]string{
		"/v1/predictions/job-5": {`{"id": "job-5", "status": "processing"}`},
	}}
	d := newTestDispatcher(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Wait(ctx, "job-5")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
