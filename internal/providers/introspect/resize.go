package introspect

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"vidspark/internal/domain"
)

// downscale derives a copy of the source image whose longest side fits
// maxDim. The original blob is never mutated; an image already small enough
// is returned as-is.
func downscale(src domain.SourceImage, maxDim int) (domain.SourceImage, error) {
	decoded, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return domain.SourceImage{}, fmt.Errorf("decode source image: %w", err)
	}
	bounds := decoded.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return src, nil
	}
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), decoded, bounds, xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return domain.SourceImage{}, fmt.Errorf("encode resized image: %w", err)
	}
	return domain.SourceImage{Data: buf.Bytes(), MIME: "image/jpeg", Filename: src.Filename}, nil
}
