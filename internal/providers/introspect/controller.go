package introspect

import (
	"context"
	"encoding/base64"
	"io"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"vidspark/internal/domain"
	"vidspark/internal/infra"
	"vidspark/internal/prompt"
	"vidspark/internal/providers/result"
)

// AttemptProfile is one rung on the degradation ladder: a cap on input
// resolution, a cap on clip duration and a multiplier on generation steps.
// Profiles are consumed in fixed order from best quality to cheapest.
type AttemptProfile struct {
	Name               string
	MaxInputDimension  int
	MaxDurationSeconds float64
	StepMultiplier     float64
}

// EffectiveDuration caps the requested duration at the profile's limit.
func (p AttemptProfile) EffectiveDuration(requested float64) float64 {
	d := domain.ClampDuration(requested)
	if d > p.MaxDurationSeconds {
		return p.MaxDurationSeconds
	}
	return d
}

// DefaultProfiles is the standard ladder.
var DefaultProfiles = []AttemptProfile{
	{Name: "full", MaxInputDimension: 1024, MaxDurationSeconds: domain.MaxDurationSeconds, StepMultiplier: 1.0},
	{Name: "reduced", MaxInputDimension: 768, MaxDurationSeconds: 4, StepMultiplier: 0.75},
	{Name: "minimal", MaxInputDimension: 512, MaxDurationSeconds: domain.MinDurationSeconds, StepMultiplier: 0.5},
}

const (
	baseSteps     = 30
	guidanceScale = 7.5
	fixedSeed     = 4242
	negativeGuard = "low quality, blurry, distorted, deformed, watermark, text artifacts"
)

// Controller walks candidate services and attempt profiles in strict priority
// order until one invocation yields an artifact.
type Controller struct {
	connector Connector
	fallbacks []string
	profiles  []AttemptProfile
	logger    *infra.Logger
}

// NewController wires a connector with a fixed fallback candidate list.
func NewController(connector Connector, fallbacks []string, logger *infra.Logger) *Controller {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Controller{
		connector: connector,
		fallbacks: fallbacks,
		profiles:  DefaultProfiles,
		logger:    logger,
	}
}

// Dispatch tries each candidate service, and within one candidate each
// attempt profile, strictly in order and never concurrently. A failure that
// matches a transient-overload signature moves to the next profile on the
// same candidate; any other failure abandons the candidate so remaining
// profiles are not wasted on a non-transient error. Introspection failures
// also abandon the candidate. Cancellation is checked at the top of every
// iteration.
func (c *Controller) Dispatch(ctx context.Context, req domain.GenerationRequest) (*domain.OutputArtifact, error) {
	candidates := c.candidateOrder(req.Provider)
	attempts := 0
	var lastErr error

	for _, space := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		api, err := c.connector.Connect(ctx, space)
		if err != nil {
			c.logger.Warn().Str("space", space).Err(err).Msg("space: introspection failed, trying next candidate")
			lastErr = err
			continue
		}
		candidate := SelectEndpoint(api)
		c.logger.Debug().Str("space", space).Str("endpoint", candidate.Endpoint.Name).Int("score", candidate.Score).Msg("space: endpoint selected")

		for _, profile := range c.profiles {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			payload := c.buildPayload(candidate.Endpoint, req, profile)
			output, err := c.connector.Invoke(ctx, space, candidate.Endpoint, payload)
			attempts++
			if err == nil {
				if url := result.URL(output); url != "" {
					return &domain.OutputArtifact{URL: url, Format: "video/mp4"}, nil
				}
				lastErr = domain.ErrSucceededWithoutOutput
				break
			}
			lastErr = err
			if !domain.IsTransientOverload(err) {
				c.logger.Warn().Str("space", space).Err(err).Msg("space: non-transient failure, abandoning candidate")
				break
			}
			c.logger.Info().Str("space", space).Str("profile", profile.Name).Err(err).Msg("space: overloaded, degrading to next profile")
		}
	}
	return nil, &domain.AllCandidatesExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// candidateOrder puts the user-selected service first, then the fixed
// fallback list, de-duplicated.
func (c *Controller) candidateOrder(primary string) []string {
	var ordered []string
	seen := map[string]bool{}
	for _, space := range append([]string{primary}, c.fallbacks...) {
		space = strings.TrimSpace(space)
		if space == "" || seen[space] {
			continue
		}
		seen[space] = true
		ordered = append(ordered, space)
	}
	return ordered
}

// buildPayload fills the endpoint's declared parameters positionally from the
// request and profile. Parameters nothing matches keep their declared default.
func (c *Controller) buildPayload(ep Endpoint, req domain.GenerationRequest, profile AttemptProfile) []any {
	effective := profile.EffectiveDuration(req.DurationSeconds)
	var resized *domain.SourceImage

	payload := make([]any, 0, len(ep.Parameters))
	for _, p := range ep.Parameters {
		label := strings.ToLower(p.Label)
		switch {
		case suggestsImage(p):
			if resized == nil {
				img, err := downscale(req.Source, profile.MaxInputDimension)
				if err != nil {
					// Undecodable upload: ship the original bytes and let
					// the remote complain if it must.
					img = req.Source
				}
				resized = &img
			}
			payload = append(payload, encodeImagePayload(*resized))
		case strings.Contains(label, "negative"):
			payload = append(payload, negativeGuard)
		case suggestsPrompt(p):
			payload = append(payload, prompt.ComposeNatural(req.UserPrompt, req.CameraMove, req.Style, req.MotionIntensity, effective))
		case suggestsDuration(p):
			payload = append(payload, effective)
		case suggestsSteps(p):
			payload = append(payload, int(math.Round(baseSteps*profile.StepMultiplier)))
		case strings.Contains(label, "guidance"):
			payload = append(payload, guidanceScale)
		case strings.Contains(label, "randomize") && isBoolean(p):
			payload = append(payload, true)
		case strings.Contains(label, "seed"):
			payload = append(payload, fixedSeed)
		case p.HasDefault:
			payload = append(payload, p.Default)
		default:
			payload = append(payload, nil)
		}
	}
	return payload
}

func isBoolean(p Parameter) bool {
	return strings.EqualFold(p.Component, "checkbox") || p.PythonType == "bool"
}

func encodeImagePayload(src domain.SourceImage) map[string]any {
	mime := src.MIME
	if mime == "" {
		mime = "image/png"
	}
	return map[string]any{
		"url":  "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(src.Data),
		"meta": map[string]any{"_type": "gradio.FileData"},
	}
}
