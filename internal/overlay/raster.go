package overlay

import (
	"image"
	"io"

	"github.com/fogleman/gg"
)

// RasterSurface strokes lines into an RGBA image with gg. The rasterizer
// only covers the image, so guides running to LineExtent are cut at its edge.
type RasterSurface struct {
	img *image.RGBA
	dc  *gg.Context
}

// NewRasterSurface allocates a transparent width x height surface.
func NewRasterSurface(width, height int) *RasterSurface {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	return &RasterSurface{img: img, dc: gg.NewContextForRGBA(img)}
}

// Image returns the backing image.
func (r *RasterSurface) Image() *image.RGBA { return r.img }

// EncodePNG writes the surface as a PNG.
func (r *RasterSurface) EncodePNG(w io.Writer) error {
	return r.dc.EncodePNG(w)
}

func (r *RasterSurface) DrawLine(x0, y0, x1, y1 float64, style LineStyle) {
	width := style.StrokeWidth
	if width <= 0 {
		width = 1
	}
	r.dc.SetColor(style.Color)
	r.dc.SetLineWidth(width)
	r.dc.SetLineCapButt()
	r.dc.SetDash(style.Dash...)
	r.dc.DrawLine(x0, y0, x1, y1)
	r.dc.Stroke()
}
