package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sealdoc/sealdoc/internal/config"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

// Engine composes the per-viewer overlay onto delivered page bytes. Output
// depends on viewer identity and request time and must never be cached.
type Engine struct {
	opacity  float64
	fontSize int
}

func New(cfg config.WatermarkConfig) *Engine {
	return &Engine{opacity: cfg.Opacity, fontSize: cfg.FontSize}
}

// Text renders the overlay line for one viewer at one instant.
func Text(viewerEmail string, ts time.Time) string {
	return fmt.Sprintf("%s - %s", viewerEmail, ts.UTC().Format(time.RFC3339))
}

// Apply overlays the viewer identity across the page. Deterministic for
// identical inputs; distinct viewers or timestamps yield distinct bytes.
func (e *Engine) Apply(pageBytes []byte, contentType, viewerEmail string, ts time.Time) ([]byte, error) {
	text := Text(viewerEmail, ts)
	switch {
	case contentType == "application/pdf":
		return e.applyPDF(pageBytes, text)
	case strings.HasPrefix(contentType, "image/"):
		return e.applyImage(pageBytes, contentType, text)
	default:
		return nil, fmt.Errorf("%w: cannot watermark content type %s", appErr.ErrConversionFailed, contentType)
	}
}

func (e *Engine) applyPDF(pageBytes []byte, text string) ([]byte, error) {
	// Three stacked lines tile the overlay down the page so cropping a
	// corner cannot remove every instance.
	tiled := strings.TrimSpace(strings.Repeat(text+" \n ", 3))
	desc := fmt.Sprintf("font:Helvetica, points:%d, scale:1 abs, rot:45, op:%.2f, fillc:#808080, mode:2",
		e.fontSize, e.opacity)
	wm, err := api.TextWatermark(tiled, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("%w: build watermark: %v", appErr.ErrConversionFailed, err)
	}
	var buf bytes.Buffer
	conf := pdfmodel.NewDefaultConfiguration()
	if err := api.AddWatermarks(bytes.NewReader(pageBytes), &buf, nil, wm, conf); err != nil {
		return nil, fmt.Errorf("%w: watermark pdf page: %v", appErr.ErrConversionFailed, err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) applyImage(pageBytes []byte, contentType, text string) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(pageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: decode page image: %v", appErr.ErrConversionFailed, err)
	}
	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	alpha := uint8(e.opacity * 255)
	face := basicfont.Face7x13
	ink := image.NewUniform(color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: alpha})
	textWidth := font.MeasureString(face, text).Ceil()
	stepX := textWidth + 40
	stepY := face.Height * 6
	if stepY < 40 {
		stepY = 40
	}

	// The bitmap face cannot be rotated; the 45 degree slope comes from
	// shifting each tile row by its own height.
	row := 0
	for y := bounds.Min.Y + stepY/2; y < bounds.Max.Y; y += stepY {
		offset := (row * stepY) % stepX
		for x := bounds.Min.X - stepX + offset; x < bounds.Max.X; x += stepX {
			drawer := font.Drawer{
				Dst:  canvas,
				Src:  ink,
				Face: face,
				Dot:  fixed.P(x, y),
			}
			drawer.DrawString(text)
		}
		row++
	}

	var buf bytes.Buffer
	switch contentType {
	case "image/png":
		err = png.Encode(&buf, canvas)
	case "image/jpeg":
		err = jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 90})
	default:
		return nil, fmt.Errorf("%w: cannot watermark content type %s", appErr.ErrConversionFailed, contentType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encode page image: %v", appErr.ErrConversionFailed, err)
	}
	return buf.Bytes(), nil
}
