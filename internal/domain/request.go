package domain

import (
	"fmt"
	"strings"
)

// Backend selects which generation path serves a request.
type Backend string

const (
	BackendQueued     Backend = "queued-remote"
	BackendIntrospect Backend = "introspected-remote"
	BackendLocal      Backend = "local"
)

// CameraMove enumerates the supported procedural camera motions.
type CameraMove string

const (
	CameraPushIn     CameraMove = "push_in"
	CameraPullOut    CameraMove = "pull_out"
	CameraPanLeft    CameraMove = "pan_left"
	CameraPanRight   CameraMove = "pan_right"
	CameraTiltUp     CameraMove = "tilt_up"
	CameraTiltDown   CameraMove = "tilt_down"
	CameraOrbitLeft  CameraMove = "orbit_left"
	CameraOrbitRight CameraMove = "orbit_right"
	CameraCraneUp    CameraMove = "crane_up"
	CameraCraneDown  CameraMove = "crane_down"
	CameraDollyLeft  CameraMove = "dolly_left"
	CameraDollyRight CameraMove = "dolly_right"
	CameraZoomIn     CameraMove = "zoom_in"
	CameraZoomOut    CameraMove = "zoom_out"
	CameraStatic     CameraMove = "static"
)

// CameraMoves lists every supported move in declaration order.
var CameraMoves = []CameraMove{
	CameraPushIn, CameraPullOut,
	CameraPanLeft, CameraPanRight,
	CameraTiltUp, CameraTiltDown,
	CameraOrbitLeft, CameraOrbitRight,
	CameraCraneUp, CameraCraneDown,
	CameraDollyLeft, CameraDollyRight,
	CameraZoomIn, CameraZoomOut,
	CameraStatic,
}

// MotionIntensity scales how much movement the output carries.
type MotionIntensity string

const (
	MotionSubtle MotionIntensity = "subtle"
	MotionMedium MotionIntensity = "medium"
	MotionStrong MotionIntensity = "strong"
)

// Style enumerates supported style/lighting treatments.
type Style string

const (
	StyleCinematic  Style = "cinematic"
	StyleGoldenHour Style = "golden_hour"
	StyleMoody      Style = "moody"
	StyleNeon       Style = "neon"
	StyleNatural    Style = "natural"
)

const (
	// MinDurationSeconds and MaxDurationSeconds bound the clip length.
	MinDurationSeconds = 2.0
	MaxDurationSeconds = 6.0

	minPromptLen = 3
)

// SourceImage is the uploaded still the video is derived from. Data is
// read-only once dispatch begins; per-attempt resizing derives new blobs.
type SourceImage struct {
	Data     []byte
	MIME     string
	Filename string
}

// GenerationRequest captures everything the user chose in the form. It is
// immutable once dispatch begins.
type GenerationRequest struct {
	ID              string
	Source          SourceImage
	UserPrompt      string
	CameraMove      CameraMove
	MotionIntensity MotionIntensity
	DurationSeconds float64
	Style           Style
	Backend         Backend
	Provider        string
}

// OutputArtifact is the single playable video reference a completed request
// resolves to, regardless of backend.
type OutputArtifact struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
	Local  bool   `json:"local"`
}

// ClampDuration forces a requested duration into the supported range.
func ClampDuration(seconds float64) float64 {
	if seconds < MinDurationSeconds {
		return MinDurationSeconds
	}
	if seconds > MaxDurationSeconds {
		return MaxDurationSeconds
	}
	return seconds
}

// NormalizeCameraMove sanitizes free-form input into a supported move.
func NormalizeCameraMove(raw string) (CameraMove, bool) {
	move := CameraMove(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range CameraMoves {
		if move == known {
			return known, true
		}
	}
	return CameraStatic, false
}

// NormalizeIntensity sanitizes free-form input into a supported intensity.
func NormalizeIntensity(raw string) MotionIntensity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(MotionSubtle):
		return MotionSubtle
	case string(MotionStrong):
		return MotionStrong
	default:
		return MotionMedium
	}
}

// NormalizeStyle sanitizes free-form input into a supported style.
func NormalizeStyle(raw string) Style {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(StyleGoldenHour):
		return StyleGoldenHour
	case string(StyleMoody):
		return StyleMoody
	case string(StyleNeon):
		return StyleNeon
	case string(StyleNatural):
		return StyleNatural
	default:
		return StyleCinematic
	}
}

// Validate rejects a request before any dispatch work starts. Each failure
// names the offending field so the UI can attach the message to it.
func (r *GenerationRequest) Validate() error {
	if len(strings.TrimSpace(r.UserPrompt)) < minPromptLen {
		return &ValidationError{Field: "prompt", Message: fmt.Sprintf("prompt must be at least %d characters", minPromptLen)}
	}
	if r.DurationSeconds < MinDurationSeconds || r.DurationSeconds > MaxDurationSeconds {
		return &ValidationError{Field: "duration", Message: fmt.Sprintf("duration must be between %.0f and %.0f seconds", MinDurationSeconds, MaxDurationSeconds)}
	}
	if len(r.Source.Data) == 0 {
		return &ValidationError{Field: "image", Message: "a source image is required"}
	}
	switch r.Backend {
	case BackendQueued, BackendIntrospect, BackendLocal:
	default:
		return &ValidationError{Field: "backend", Message: fmt.Sprintf("unsupported backend %q", r.Backend)}
	}
	return nil
}
