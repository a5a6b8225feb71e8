// Package imaging bounds essay scans before they are sent to OCR and storage.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/snapcheck/constants"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

// ErrUnsupportedImage is returned for bytes that cannot be decoded as an image.
var ErrUnsupportedImage = fmt.Errorf("unsupported image: %w", common.ErrInvalidInput)

type Config struct {
	HeicConverter string // "magick" | "heif-convert" | "sips"; empty disables HEIC
	MaxDimension  int    // longest side in pixels, default constants.MaxImageDimension
	MaxBytes      int    // encoded size cap, default constants.MaxImageBytes
	Quality       int    // starting JPEG quality, default 85
	MinQuality    int    // lowest JPEG quality before downscaling further, default 45
}

// Result is a compressed, display-ready essay image.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	DataURL     string
	Duration    time.Duration
	Warnings    []string
}

// Image converts the result into an entity.Image keeping the original filename.
func (r Result) Image(filename string) *entity.Image {
	return &entity.Image{Data: r.Data, ContentType: r.ContentType, Filename: filename}
}

type Compressor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewCompressor(cfg Config, logger *slog.Logger) *Compressor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = constants.MaxImageDimension
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = constants.MaxImageBytes
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 85
	}
	if cfg.MinQuality <= 0 || cfg.MinQuality > cfg.Quality {
		cfg.MinQuality = 45
	}
	return &Compressor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the external command runner (HEIC conversion).
func (c *Compressor) WithRunner(r Runner) *Compressor {
	c.runner = r
	return c
}

// Compress decodes img, scales it so its longest side fits MaxDimension and
// re-encodes it as JPEG under MaxBytes.
func (c *Compressor) Compress(ctx context.Context, img entity.Image) (Result, error) {
	start := time.Now()
	if len(img.Data) == 0 {
		return Result{}, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	data := img.Data
	var warns []string
	if constants.IsHEICExt(filepath.Ext(img.Filename)) || img.ContentType == "image/heic" || img.ContentType == "image/heif" {
		png, w, err := convertHEICToPNG(ctx, c.runner, c.cfg.HeicConverter, data)
		warns = append(warns, w...)
		if err != nil {
			c.logger.Error("heic conversion failed", "filename", img.Filename, "error", err)
			return Result{Warnings: warns}, err
		}
		data = png
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{Warnings: warns}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	maxDim := c.cfg.MaxDimension
	var out []byte
	var w, h int
	for attempt := 0; attempt < 4; attempt++ {
		scaled := scaleToFit(src, maxDim)
		w, h = scaled.Bounds().Dx(), scaled.Bounds().Dy()

		out, err = c.encodeUnder(scaled)
		if err != nil {
			return Result{Warnings: warns}, err
		}
		if len(out) <= c.cfg.MaxBytes {
			break
		}
		maxDim = maxDim * 3 / 4
		warns = append(warns, fmt.Sprintf("downscaled to %dpx to fit %d bytes", maxDim, c.cfg.MaxBytes))
	}
	if len(out) > c.cfg.MaxBytes {
		warns = append(warns, fmt.Sprintf("compressed image still %d bytes", len(out)))
	}

	res := Result{
		Data:        out,
		ContentType: "image/jpeg",
		Width:       w,
		Height:      h,
		DataURL:     DataURL("image/jpeg", out),
		Duration:    time.Since(start),
		Warnings:    warns,
	}
	c.logger.Debug("imaging.compress.ok",
		"filename", img.Filename,
		"format", format,
		"in_bytes", len(img.Data),
		"out_bytes", len(out),
		"width", w, "height", h,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// encodeUnder steps JPEG quality down until the output fits MaxBytes or the
// quality floor is reached; it returns the last encoding either way.
func (c *Compressor) encodeUnder(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	for q := c.cfg.Quality; ; q -= 10 {
		if q < c.cfg.MinQuality {
			q = c.cfg.MinQuality
		}
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if buf.Len() <= c.cfg.MaxBytes || q == c.cfg.MinQuality {
			return bytes.Clone(buf.Bytes()), nil
		}
	}
}

// scaleToFit returns an opaque RGBA copy of src whose longest side is at most
// maxDim. Transparent pixels are flattened onto white.
func scaleToFit(src image.Image, maxDim int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxDim || h > maxDim {
		if w >= h {
			h = max(1, h*maxDim/w)
			w = maxDim
		} else {
			w = max(1, w*maxDim/h)
			h = maxDim
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// DataURL renders bytes as a data: URL for display.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
