package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the webp decoder with image.Decode
	"golang.org/x/sync/errgroup"

	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

const (
	DisplayMaxWidth  = 1200
	DisplayMaxHeight = 800
	DisplayQuality   = 90

	ThumbWidth   = 300
	ThumbHeight  = 200
	ThumbQuality = 80

	// Larger sources are refused before decoding the pixel data.
	maxSourcePixels = 50_000_000
)

// decodable formats as reported by image.DecodeConfig
var allowedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// ImageProcessor turns one upload into the display and thumbnail variants.
// Both are baseline JPEG. It holds no state and is safe for concurrent use.
type ImageProcessor struct{}

func New() *ImageProcessor {
	return &ImageProcessor{}
}

func (p *ImageProcessor) Derive(ctx context.Context, data []byte) (dto.Derived, error) {
	if err := ctx.Err(); err != nil {
		return dto.Derived{}, fmt.Errorf("ImageProcessor - Derive: %w: %w", errs.ErrTransform, err)
	}

	img, err := decodeImage(data)
	if err != nil {
		return dto.Derived{}, fmt.Errorf("ImageProcessor - Derive - decodeImage: %w", err)
	}

	var out dto.Derived

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		display := imaging.Fit(img, DisplayMaxWidth, DisplayMaxHeight, imaging.Lanczos)

		b, err := encodeJPEG(gctx, display, DisplayQuality)
		if err != nil {
			return fmt.Errorf("display: %w", err)
		}
		out.Display = b

		return nil
	})

	g.Go(func() error {
		thumb := imaging.Fill(img, ThumbWidth, ThumbHeight, imaging.Center, imaging.Lanczos)

		b, err := encodeJPEG(gctx, thumb, ThumbQuality)
		if err != nil {
			return fmt.Errorf("thumbnail: %w", err)
		}
		out.Thumbnail = b

		return nil
	})

	if err := g.Wait(); err != nil {
		return dto.Derived{}, fmt.Errorf("ImageProcessor - Derive: %w", err)
	}

	return out, nil
}

func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input: %w", errs.ErrUnsupportedImage)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image.DecodeConfig: %w: %w", errs.ErrUnsupportedImage, err)
	}

	if !allowedFormats[format] {
		return nil, fmt.Errorf("format %q: %w", format, errs.ErrUnsupportedImage)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxSourcePixels {
		return nil, fmt.Errorf("dimensions %dx%d: %w", cfg.Width, cfg.Height, errs.ErrUnsupportedImage)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imaging.Decode: %w: %w", errs.ErrUnsupportedImage, err)
	}

	return img, nil
}

// encodeJPEG flattens transparency onto white, since JPEG has no alpha.
func encodeJPEG(ctx context.Context, img image.Image, quality int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrTransform, err)
	}

	b := img.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer

	err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality))
	if err != nil {
		return nil, fmt.Errorf("imaging.Encode: %w: %w", errs.ErrTransform, err)
	}

	return buf.Bytes(), nil
}
