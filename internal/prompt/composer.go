package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidspark/internal/domain"
)

// bracketTags maps each camera move to the director-style tag queue backends
// expect at the head of the prompt.
var bracketTags = map[domain.CameraMove]string{
	domain.CameraPushIn:     "Push in",
	domain.CameraPullOut:    "Pull out",
	domain.CameraPanLeft:    "Pan left",
	domain.CameraPanRight:   "Pan right",
	domain.CameraTiltUp:     "Tilt up",
	domain.CameraTiltDown:   "Tilt down",
	domain.CameraOrbitLeft:  "Orbit left",
	domain.CameraOrbitRight: "Orbit right",
	domain.CameraCraneUp:    "Crane up",
	domain.CameraCraneDown:  "Crane down",
	domain.CameraDollyLeft:  "Truck left",
	domain.CameraDollyRight: "Truck right",
	domain.CameraZoomIn:     "Zoom in",
	domain.CameraZoomOut:    "Zoom out",
	domain.CameraStatic:     "Fixed shot",
}

var styleHints = map[domain.Style]string{
	domain.StyleCinematic:  "cinematic color grade",
	domain.StyleGoldenHour: "warm golden hour lighting",
	domain.StyleMoody:      "moody low-key lighting",
	domain.StyleNeon:       "vivid neon lighting",
	domain.StyleNatural:    "soft natural lighting",
}

var intensityHints = map[domain.MotionIntensity]string{
	domain.MotionSubtle: "subtle gentle motion",
	domain.MotionMedium: "steady moderate motion",
	domain.MotionStrong: "bold dynamic motion",
}

// BracketTag returns the director-style tag for a camera move.
func BracketTag(move domain.CameraMove) string {
	if tag, ok := bracketTags[move]; ok {
		return tag
	}
	return bracketTags[domain.CameraStatic]
}

// ComposeDirector renders the bracket-tagged convention used by queue-based
// "director" style backends:
//
//	[Push in] <prompt>. <style hint>. <intensity hint>. <N>-second shot.
//
// The user's text always appears verbatim and the duration is clamped to the
// supported range before being embedded.
func ComposeDirector(userPrompt string, move domain.CameraMove, style domain.Style, intensity domain.MotionIntensity, durationSeconds float64) string {
	seconds := domain.ClampDuration(durationSeconds)
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "[%s] %s", BracketTag(move), userPrompt)
	if !strings.HasSuffix(strings.TrimSpace(userPrompt), ".") {
		sb.WriteString(".")
	}
	fmt.Fprintf(sb, " %s.", styleHints[style])
	fmt.Fprintf(sb, " %s.", intensityHints[intensity])
	fmt.Fprintf(sb, " %s-second shot.", formatSeconds(seconds))
	return sb.String()
}

// ComposeNatural renders the plain-English convention used by introspected
// synchronous backends:
//
//	<prompt>. <intensity text>. Camera: <camera text>. Duration ~<N>s. Smooth, cinematic animation.
func ComposeNatural(userPrompt string, move domain.CameraMove, style domain.Style, intensity domain.MotionIntensity, durationSeconds float64) string {
	seconds := domain.ClampDuration(durationSeconds)
	c := cases.Title(language.Und)
	sb := &strings.Builder{}
	sb.WriteString(userPrompt)
	if !strings.HasSuffix(strings.TrimSpace(userPrompt), ".") {
		sb.WriteString(".")
	}
	fmt.Fprintf(sb, " %s, %s.", c.String(intensityHints[intensity]), styleHints[style])
	fmt.Fprintf(sb, " Camera: %s.", strings.ToLower(BracketTag(move)))
	fmt.Fprintf(sb, " Duration ~%ss.", formatSeconds(seconds))
	sb.WriteString(" Smooth, cinematic animation.")
	return sb.String()
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
