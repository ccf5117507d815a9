package storage

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	_ "image/gif"
	_ "image/png"

	"cumulus/internal/domain/services"
)

const thumbnailMaxDim = 250

// ImageGenerator renders raster thumbnails straight from the content
// store. Video frames need an external extractor and are reported as
// unsupported.
type ImageGenerator struct {
	store services.ContentStore
}

func NewImageGenerator(store services.ContentStore) *ImageGenerator {
	return &ImageGenerator{store: store}
}

var _ Generator = (*ImageGenerator)(nil)

func (g *ImageGenerator) Generate(ctx context.Context, kind, srcKey, dstPath string) error {
	if kind != "image" {
		return fmt.Errorf("no generator for kind %q", kind)
	}

	src, err := g.store.Open(ctx, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("decode %s: %w", srcKey, err)
	}

	thumb := downscale(img, thumbnailMaxDim)

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create thumbnail file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return nil
}

// downscale resizes img so its larger dimension is at most maxDim,
// using nearest-neighbor sampling. Images already small enough pass
// through untouched.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	var newW, newH int
	if w >= h {
		newW = maxDim
		newH = h * maxDim / w
	} else {
		newH = maxDim
		newW = w * maxDim / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := bounds.Min.Y + y*h/newH
		for x := 0; x < newW; x++ {
			srcX := bounds.Min.X + x*w/newW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}
