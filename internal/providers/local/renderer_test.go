package local

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"vidspark/internal/domain"
	"vidspark/internal/storage"
)

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(4 * x), G: uint8(5 * y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewRenderer(store, "/static", nil)
}

func TestRenderProducesExpectedFrameCountAndProgress(t *testing.T) {
	r := testRenderer(t)
	req := domain.GenerationRequest{
		ID:              "rend-1",
		Source:          domain.SourceImage{Data: testImage(t), MIME: "image/png"},
		UserPrompt:      "test",
		CameraMove:      domain.CameraPushIn,
		MotionIntensity: domain.MotionMedium,
		DurationSeconds: 2,
		Style:           domain.StyleCinematic,
		Backend:         domain.BackendLocal,
	}

	var progress []float64
	artifact, err := r.Render(context.Background(), req, func(p float64) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(progress) != 48 {
		t.Fatalf("frames = %d, want 48 for 2s at 24fps", len(progress))
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] <= progress[i-1] {
			t.Fatalf("progress not strictly increasing at %d: %v <= %v", i, progress[i], progress[i-1])
		}
	}
	if progress[0] <= 0 || progress[len(progress)-1] != 100 {
		t.Fatalf("progress range [%v, %v], want (0, 100]", progress[0], progress[len(progress)-1])
	}

	if artifact.URL != "/static/renders/rend-1.avi" {
		t.Fatalf("artifact url = %q", artifact.URL)
	}
	if !artifact.Local {
		t.Fatalf("artifact not marked local")
	}
	stat, err := os.Stat(filepath.Join(r.store.BasePath(), "renders", "rend-1.avi"))
	if err != nil {
		t.Fatalf("rendered file missing: %v", err)
	}
	if stat.Size() == 0 {
		t.Fatalf("rendered file is empty")
	}
}

func TestPushInZoomIncreasesOverTime(t *testing.T) {
	_, _, zoomStart := cameraPath(domain.CameraPushIn, ease(0), 1.0)
	_, _, zoomEnd := cameraPath(domain.CameraPushIn, ease(1), 1.0)
	if zoomEnd <= zoomStart {
		t.Fatalf("push_in zoom: end %v <= start %v", zoomEnd, zoomStart)
	}
	if zoomEnd != 1.10 {
		t.Fatalf("push_in zoom at t=1 = %v, want 1.10", zoomEnd)
	}
	_, _, pullEnd := cameraPath(domain.CameraPullOut, ease(1), 1.0)
	if pullEnd != 0.92 {
		t.Fatalf("pull_out zoom at t=1 = %v, want 0.92", pullEnd)
	}
}

func TestFrameCountFloor(t *testing.T) {
	if got := frameCount(2); got != 48 {
		t.Fatalf("frameCount(2) = %d, want 48", got)
	}
	// Out-of-range durations clamp before the frame math runs.
	if got := frameCount(0.1); got != 48 {
		t.Fatalf("frameCount(0.1) = %d, want 48 (clamped to 2s)", got)
	}
	if got := frameCount(10); got != 144 {
		t.Fatalf("frameCount(10) = %d, want 144 (clamped to 6s)", got)
	}
}

func TestRenderHonorsCancellation(t *testing.T) {
	r := testRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := domain.GenerationRequest{
		ID:              "rend-2",
		Source:          domain.SourceImage{Data: testImage(t), MIME: "image/png"},
		CameraMove:      domain.CameraStatic,
		MotionIntensity: domain.MotionSubtle,
		DurationSeconds: 2,
		Backend:         domain.BackendLocal,
	}
	_, err := r.Render(ctx, req, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRenderSurvivesUndecodableImage(t *testing.T) {
	r := testRenderer(t)
	req := domain.GenerationRequest{
		ID:              "rend-3",
		Source:          domain.SourceImage{Data: []byte("not an image"), MIME: "image/png"},
		CameraMove:      domain.CameraPanLeft,
		MotionIntensity: domain.MotionStrong,
		DurationSeconds: 2,
		Backend:         domain.BackendLocal,
	}
	artifact, err := r.Render(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("render should synthesize a placeholder, got %v", err)
	}
	if artifact == nil || artifact.URL == "" {
		t.Fatalf("missing artifact")
	}
}
