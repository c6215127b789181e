// Package local synthesizes a short video from the uploaded still alone: a
// procedural camera path over the image, encoded frame by frame. It is the
// one backend with no external dependency and is expected to always succeed.
package local

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/icza/mjpeg"
	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"

	"vidspark/internal/domain"
	"vidspark/internal/infra"
	"vidspark/internal/storage"
)

const (
	fps       = 24
	canvasW   = 640
	canvasH   = 360
	minFrames = 12
)

// intensityScale multiplies pan magnitude and wiggle amplitude.
var intensityScale = map[domain.MotionIntensity]float64{
	domain.MotionSubtle: 0.6,
	domain.MotionMedium: 1.0,
	domain.MotionStrong: 1.6,
}

// Renderer writes procedural camera-path videos into a file store.
type Renderer struct {
	store     *storage.FileStore
	publicURL string
	logger    *infra.Logger
}

// NewRenderer wires the renderer to the store backing the /static mount.
func NewRenderer(store *storage.FileStore, publicURL string, logger *infra.Logger) *Renderer {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Renderer{store: store, publicURL: publicURL, logger: logger}
}

// Render animates the source image along the requested camera path and muxes
// the frames into an MJPEG AVI. onProgress receives a percentage after every
// frame. The renderer fails fast with a CapabilityUnavailableError when the
// encoder cannot be opened; past that point only cancellation stops it.
func (r *Renderer) Render(ctx context.Context, req domain.GenerationRequest, onProgress func(float64)) (*domain.OutputArtifact, error) {
	src := decodeOrSynthesize(req.Source)
	frames := frameCount(req.DurationSeconds)
	mult := intensityScale[req.MotionIntensity]
	if mult == 0 {
		mult = 1.0
	}

	key := "renders/" + req.ID + ".avi"
	path, err := r.store.Path(key)
	if err != nil {
		return nil, &domain.CapabilityUnavailableError{Err: err}
	}
	writer, err := mjpeg.New(path, canvasW, canvasH, fps)
	if err != nil {
		return nil, &domain.CapabilityUnavailableError{Err: err}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))
	var buf bytes.Buffer
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			_ = writer.Close()
			return nil, err
		}
		t := 0.0
		if frames > 1 {
			t = float64(i) / float64(frames-1)
		}
		e := ease(t)
		dx, dy, zoom := cameraPath(req.CameraMove, e, mult)
		wx, wy := wiggle(e, mult)
		composeFrame(canvas, src, dx+wx, dy+wy, zoom)

		buf.Reset()
		if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 88}); err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("local: encode frame %d: %w", i, err)
		}
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("local: mux frame %d: %w", i, err)
		}
		if onProgress != nil {
			onProgress(100 * float64(i+1) / float64(frames))
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("local: finalize video: %w", err)
	}
	r.logger.Debug().Str("key", key).Int("frames", frames).Msg("local: rendered video")
	return &domain.OutputArtifact{
		URL:    r.publicURL + "/" + key,
		Format: "video/x-msvideo",
		Local:  true,
	}, nil
}

// frameCount derives the frame total from a clamped duration, with a floor so
// even degenerate inputs produce a playable clip.
func frameCount(durationSeconds float64) int {
	n := int(math.Round(domain.ClampDuration(durationSeconds) * fps))
	if n < minFrames {
		return minFrames
	}
	return n
}

// ease is a smoothstep over t in [0,1]; camera moves accelerate in and out.
func ease(t float64) float64 {
	return t * t * (3 - 2*t)
}

// cameraPath maps an eased time to a pan offset (as a fraction of the canvas)
// and a zoom factor. Pan magnitude scales with motion intensity; zoom targets
// do not.
func cameraPath(move domain.CameraMove, e, mult float64) (dx, dy, zoom float64) {
	zoom = 1.0
	switch move {
	case domain.CameraPushIn, domain.CameraZoomIn:
		zoom = 1 + 0.10*e
	case domain.CameraPullOut, domain.CameraZoomOut:
		zoom = 1 - 0.08*e
	case domain.CameraPanLeft:
		dx = -0.08 * mult * e
	case domain.CameraPanRight:
		dx = 0.08 * mult * e
	case domain.CameraDollyLeft:
		dx = -0.10 * mult * e
	case domain.CameraDollyRight:
		dx = 0.10 * mult * e
	case domain.CameraTiltUp:
		dy = -0.06 * mult * e
	case domain.CameraTiltDown:
		dy = 0.06 * mult * e
	case domain.CameraCraneUp:
		dy = -0.08 * mult * e
		zoom = 1 + 0.03*e
	case domain.CameraCraneDown:
		dy = 0.08 * mult * e
		zoom = 1 + 0.03*e
	case domain.CameraOrbitLeft:
		dx = -0.06 * mult * math.Sin(2*math.Pi*e)
		zoom = 1 + 0.04*e
	case domain.CameraOrbitRight:
		dx = 0.06 * mult * math.Sin(2*math.Pi*e)
		zoom = 1 + 0.04*e
	}
	return dx, dy, zoom
}

// wiggle adds a low-amplitude handheld drift on top of the main path.
func wiggle(e, mult float64) (wx, wy float64) {
	wx = 0.004 * mult * math.Sin(2*math.Pi*3*e)
	wy = 0.003 * mult * math.Cos(2*math.Pi*2*e)
	return wx, wy
}

// composeFrame scales the source to cover the canvas at the given zoom and
// draws it shifted by the pan offset.
func composeFrame(canvas *image.RGBA, src image.Image, dx, dy, zoom float64) {
	sb := src.Bounds()
	cover := math.Max(float64(canvasW)/float64(sb.Dx()), float64(canvasH)/float64(sb.Dy())) * zoom
	w := float64(sb.Dx()) * cover
	h := float64(sb.Dy()) * cover
	x0 := (float64(canvasW)-w)/2 + dx*canvasW
	y0 := (float64(canvasH)-h)/2 + dy*canvasH
	target := image.Rect(int(x0), int(y0), int(x0+w), int(y0+h))

	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	xdraw.ApproxBiLinear.Scale(canvas, target, src, sb, xdraw.Over, nil)
}

// decodeOrSynthesize keeps the no-external-failure guarantee: an upload that
// cannot be decoded still yields a deterministic placeholder frame instead of
// aborting the render.
func decodeOrSynthesize(src domain.SourceImage) image.Image {
	decoded, _, err := image.Decode(bytes.NewReader(src.Data))
	if err == nil {
		return decoded
	}
	img := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))
	for y := 0; y < canvasH; y++ {
		for x := 0; x < canvasW; x++ {
			shade := uint8(40 + 80*float64(x+y)/float64(canvasW+canvasH))
			img.SetRGBA(x, y, color.RGBA{R: shade / 2, G: shade / 2, B: shade, A: 255})
		}
	}
	return img
}
