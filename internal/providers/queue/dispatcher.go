package queue

import (
	"context"
	"encoding/base64"
	"fmt"

	"vidspark/internal/domain"
	"vidspark/internal/prompt"
	"vidspark/internal/schema"
)

// fixedSeed keeps remote generations reproducible across retries of the same
// request.
const fixedSeed = 4242

// Dispatcher turns a generation request into a queue job and sees it through
// to a single output artifact.
type Dispatcher struct {
	client  *Client
	version string
}

// NewDispatcher wires a client to a model version identifier.
func NewDispatcher(client *Client, version string) *Dispatcher {
	return &Dispatcher{client: client, version: version}
}

// Submit resolves the model's input schema, builds the payload and enqueues
// the job. A schema without an image-capable field is rejected before any
// submission happens: silently degrading an image-to-video request into a
// text-only one would produce a video unrelated to the upload.
func (d *Dispatcher) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	desc, err := d.client.ModelSchema(ctx, d.version)
	if err != nil {
		return "", &domain.SubmissionError{Err: err}
	}
	mapping := schema.Resolve(desc)
	if mapping.ImageField == "" {
		return "", &domain.SchemaIncompleteError{Version: d.version}
	}
	input := buildInput(req, mapping)
	return d.client.Submit(ctx, input, d.version)
}

// Wait polls the job to a terminal state and translates it into exactly one
// artifact or a typed failure.
func (d *Dispatcher) Wait(ctx context.Context, jobID string) (*domain.OutputArtifact, error) {
	job, err := d.client.Wait(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case domain.JobStatusSucceeded:
		if job.OutputURL == "" {
			return nil, domain.ErrSucceededWithoutOutput
		}
		return &domain.OutputArtifact{URL: job.OutputURL, Format: "video/mp4"}, nil
	case domain.JobStatusCanceled:
		return nil, fmt.Errorf("job %s was canceled remotely", jobID)
	default:
		if job.ErrorMessage != "" {
			return nil, fmt.Errorf("job %s failed: %s", jobID, job.ErrorMessage)
		}
		return nil, fmt.Errorf("job %s failed without an error message", jobID)
	}
}

// buildInput fills the resolved fields. Unresolved optional roles are simply
// omitted; the remote's own defaults apply.
func buildInput(req domain.GenerationRequest, m schema.Mapping) map[string]any {
	input := map[string]any{
		m.PromptField: prompt.ComposeDirector(req.UserPrompt, req.CameraMove, req.Style, req.MotionIntensity, req.DurationSeconds),
		m.ImageField:  dataURI(req.Source),
	}
	if m.DurationField != "" {
		input[m.DurationField] = domain.ClampDuration(req.DurationSeconds)
	}
	if m.SeedField != "" {
		input[m.SeedField] = fixedSeed
	}
	for name, value := range m.ExtraRequiredDefaults {
		input[name] = value
	}
	return input
}

func dataURI(src domain.SourceImage) string {
	mime := src.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(src.Data)
}
