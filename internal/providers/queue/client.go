// Package queue drives a job-based remote prediction service: submit a
// versioned input payload, receive an opaque job id, poll until terminal.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vidspark/internal/domain"
	"vidspark/internal/infra"
	"vidspark/internal/providers/result"
	"vidspark/internal/schema"
)

// ErrMissingAPIToken indicates the client was configured without credentials.
var ErrMissingAPIToken = errors.New("queue: api token is required")

const defaultPollInterval = 1500 * time.Millisecond

// Options configures the job-queue client.
type Options struct {
	APIToken     string
	BaseURL      string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	PollInterval time.Duration
}

// Client performs HTTP calls against the prediction queue.
type Client struct {
	apiToken     string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
}

type submitRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Logs   string          `json:"logs"`
	Output json.RawMessage `json:"output"`
}

type versionResponse struct {
	OpenAPISchema struct {
		Components struct {
			Schemas struct {
				Input struct {
					Properties json.RawMessage `json:"properties"`
					Required   []string        `json:"required"`
				} `json:"Input"`
			} `json:"schemas"`
		} `json:"components"`
	} `json:"openapi_schema"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 45 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com"
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiToken:     strings.TrimSpace(opts.APIToken),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: interval,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiToken != ""
}

// ModelSchema fetches the input schema a model version declares. The mapping
// is re-resolved every request rather than cached; providers rename inputs
// between versions and the call is cheap next to the generation itself.
func (c *Client) ModelSchema(ctx context.Context, version string) (schema.Description, error) {
	var decoded versionResponse
	if err := c.get(ctx, "/v1/models/versions/"+version, &decoded); err != nil {
		return schema.Description{}, fmt.Errorf("queue: fetch model schema: %w", err)
	}
	input := decoded.OpenAPISchema.Components.Schemas.Input
	desc, err := schema.FromOpenAPIInput(input.Properties, input.Required)
	if err != nil {
		return schema.Description{}, fmt.Errorf("queue: %w", err)
	}
	return desc, nil
}

// Submit enqueues one prediction and returns its job id.
func (c *Client) Submit(ctx context.Context, input map[string]any, version string) (string, error) {
	if !c.HasCredentials() {
		return "", &domain.SubmissionError{Err: ErrMissingAPIToken}
	}
	body, err := json.Marshal(submitRequest{Version: version, Input: input})
	if err != nil {
		return "", &domain.SubmissionError{Err: fmt.Errorf("queue: encode request: %w", err)}
	}
	var decoded predictionResponse
	if err := c.post(ctx, "/v1/predictions", body, &decoded); err != nil {
		return "", &domain.SubmissionError{Err: err}
	}
	if decoded.ID == "" {
		return "", &domain.SubmissionError{Err: errors.New("queue: response carried no job id")}
	}
	c.logger.Debug().Str("job_id", decoded.ID).Str("version", version).Msg("queue: job submitted")
	return decoded.ID, nil
}

// Poll reads one status snapshot for a job. A response without structured
// logs yields an empty log tail; an unextractable output yields an empty URL,
// which is only an error once the job claims success.
func (c *Client) Poll(ctx context.Context, jobID string) (domain.Job, error) {
	var decoded predictionResponse
	if err := c.get(ctx, "/v1/predictions/"+jobID, &decoded); err != nil {
		return domain.Job{}, &domain.PollError{JobID: jobID, Err: err}
	}
	job := domain.Job{
		ID:           decoded.ID,
		Status:       mapStatus(decoded.Status),
		ErrorMessage: decoded.Error,
		LogsTail:     logsTail(decoded.Logs),
		UpdatedAt:    time.Now(),
	}
	if len(decoded.Output) > 0 {
		var output any
		if err := json.Unmarshal(decoded.Output, &output); err == nil {
			job.OutputURL = result.URL(output)
		}
	}
	return job, nil
}

// Wait polls on a fixed interval until the job reaches a terminal status.
// The cadence is deliberately flat: job lifetimes are seconds to low minutes,
// so a short fixed interval bounds latency without hammering the service.
// Cancellation is checked at the top of each iteration; an in-flight poll is
// allowed to finish.
func (c *Client) Wait(ctx context.Context, jobID string) (domain.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Job{}, err
		}
		job, err := c.Poll(ctx, jobID)
		if err != nil {
			return domain.Job{}, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return domain.Job{}, ctx.Err()
		}
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("queue: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("queue: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("queue: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil {
			if msg := firstNonEmpty(detail.Detail, detail.Title); msg != "" {
				return fmt.Errorf("queue: %s", msg)
			}
		}
		return fmt.Errorf("queue: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("queue: decode response: %w", err)
	}
	return nil
}

func mapStatus(remote string) domain.JobStatus {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case "starting", "queued", "pending":
		return domain.JobStatusStarting
	case "processing", "running":
		return domain.JobStatusProcessing
	case "succeeded":
		return domain.JobStatusSucceeded
	case "canceled", "cancelled":
		return domain.JobStatusCanceled
	case "failed":
		return domain.JobStatusFailed
	default:
		return domain.JobStatusProcessing
	}
}

func logsTail(logs string) string {
	trimmed := strings.TrimSpace(logs)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	return lines[len(lines)-1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
