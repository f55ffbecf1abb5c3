// Package overlay draws a club name onto a generated logo.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"logobatch/internal/domain"
	"logobatch/internal/infra"
)

// Options controls font fitting and placement.
type Options struct {
	// StartSize is the font size tried first, in pixels.
	StartSize float64
	// MinSize is the floor the fitting loop never goes below.
	MinSize float64
	// Step is subtracted from the size on every fitting round.
	Step float64
	// MaxWidthRatio bounds the text width as a fraction of the image width.
	MaxWidthRatio float64
	// TopRatio places the top edge of the text as a fraction of the image height.
	TopRatio    float64
	Color       color.Color
	JPEGQuality int
}

// DefaultOptions returns the layout used for club logos.
func DefaultOptions() Options {
	return Options{
		StartSize:     36,
		MinSize:       18,
		Step:          2,
		MaxWidthRatio: 0.8,
		TopRatio:      0.22,
		Color:         color.White,
		JPEGQuality:   95,
	}
}

// Result describes what was drawn.
type Result struct {
	FontSize  float64
	TextWidth float64
	Width     int
	Height    int
}

// Renderer composites text onto images using the Go Regular typeface.
type Renderer struct {
	typeface *truetype.Font
	opts     Options
	logger   *infra.Logger
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithOptions replaces the layout options.
func WithOptions(opts Options) Option {
	return func(r *Renderer) {
		r.opts = opts
	}
}

// WithLogger sets the logger used for render events.
func WithLogger(logger *infra.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRenderer parses the embedded typeface and applies opts.
func NewRenderer(opts ...Option) (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font: %w", err)
	}
	r := &Renderer{
		typeface: f,
		opts:     DefaultOptions(),
		logger:   infra.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.opts.Step <= 0 {
		return nil, fmt.Errorf("overlay: font step must be positive, got %v", r.opts.Step)
	}
	if r.opts.MinSize <= 0 || r.opts.StartSize < r.opts.MinSize {
		return nil, fmt.Errorf("overlay: invalid font sizes %v..%v", r.opts.MinSize, r.opts.StartSize)
	}
	if r.opts.Color == nil {
		r.opts.Color = color.White
	}
	return r, nil
}

// FitFontSize shrinks the font from opts.StartSize by opts.Step while the
// measured width exceeds maxWidth, stopping at opts.MinSize. It returns the
// chosen size and the width measured at that size.
func FitFontSize(measure func(size float64) float64, maxWidth float64, opts Options) (float64, float64) {
	size := opts.StartSize
	width := measure(size)
	for width > maxWidth && size > opts.MinSize {
		size -= opts.Step
		if size < opts.MinSize {
			size = opts.MinSize
		}
		width = measure(size)
	}
	return size, width
}

// Render draws text onto the image at srcPath and writes the composite to
// dstPath. The output format follows the dstPath extension.
func (r *Renderer) Render(srcPath, dstPath, text string) (Result, error) {
	res, err := r.render(srcPath, dstPath, text)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrRender, err)
	}
	return res, nil
}

func (r *Renderer) render(srcPath, dstPath, text string) (Result, error) {
	src, err := imaging.Open(srcPath)
	if err != nil {
		return Result{}, fmt.Errorf("overlay: decode %s: %w", srcPath, err)
	}
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return Result{}, fmt.Errorf("overlay: %s has no pixels", srcPath)
	}

	dc := gg.NewContext(width, height)
	measure := func(size float64) float64 {
		dc.SetFontFace(r.face(size))
		w, _ := dc.MeasureString(text)
		return w
	}
	size, textWidth := FitFontSize(measure, float64(width)*r.opts.MaxWidthRatio, r.opts)

	dc.SetFontFace(r.face(size))
	dc.SetColor(r.opts.Color)
	dc.DrawStringAnchored(text, float64(width)/2, float64(height)*r.opts.TopRatio, 0.5, 1)

	out := imaging.Overlay(src, dc.Image(), image.Pt(0, 0), 1.0)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("overlay: ensure directory: %w", err)
	}
	if err := imaging.Save(out, dstPath, imaging.JPEGQuality(r.opts.JPEGQuality)); err != nil {
		return Result{}, fmt.Errorf("overlay: write %s: %w", dstPath, err)
	}

	r.logger.Debug().
		Str("text", strings.TrimSpace(text)).
		Float64("font_size", size).
		Float64("text_width", textWidth).
		Int("width", width).
		Int("height", height).
		Msg("overlay: text rendered")

	return Result{FontSize: size, TextWidth: textWidth, Width: width, Height: height}, nil
}

func (r *Renderer) face(size float64) font.Face {
	return truetype.NewFace(r.typeface, &truetype.Options{Size: size, DPI: 72})
}
