// Package overlay draws layout debugging guides on top of a rendered UI.
package overlay

import (
	"image/color"
	"sync"

	"github.com/simaofelgueirasJM/flipper/internal/model"
)

// LineExtent is how far guide lines run. It is far larger than any real
// surface so a guide always crosses the whole surface.
const LineExtent = 100000

// GuideStyle is the fixed stroke used for content-box guides:
// dark red, 3 units wide, 10 on / 10 off.
var GuideStyle = LineStyle{
	Color:       color.RGBA{R: 0x80, G: 0x00, B: 0x00, A: 0xFF},
	StrokeWidth: 3,
	Dash:        []float64{10, 10},
}

// Opacity is the pixel format a drawable reports.
type Opacity int

const (
	Opaque Opacity = iota
	Translucent
	Transparent
)

func (o Opacity) String() string {
	switch o {
	case Opaque:
		return "opaque"
	case Transparent:
		return "transparent"
	default:
		return "translucent"
	}
}

// ColorFilter transforms colors before drawing. LinesDrawable ignores it.
type ColorFilter func(color.RGBA) color.RGBA

// Drawable is something that can be positioned over a laid-out element and
// rendered onto a surface.
type Drawable interface {
	Configure(margin, padding, content model.Rect)
	Render(s Surface)
	SetAlpha(alpha int)
	SetColorFilter(f ColorFilter)
	Opacity() Opacity
}

// LinesDrawable draws dashed guides along the edges of a content box.
// It is not safe for concurrent use: Configure overwrites its bounds.
type LinesDrawable struct {
	density float64
	bounds  model.BoundsSet
}

var _ Drawable = (*LinesDrawable)(nil)

// NewLinesDrawable returns a drawable for the given screen density.
func NewLinesDrawable(density float64) *LinesDrawable {
	return &LinesDrawable{density: density}
}

// Density is the screen density the drawable was created for.
func (d *LinesDrawable) Density() float64 { return d.density }

// Bounds returns a copy of the configured rectangles.
func (d *LinesDrawable) Bounds() model.BoundsSet { return d.bounds }

// Configure stores copies of the three boxes; the overall bounds become the
// margin box.
func (d *LinesDrawable) Configure(margin, padding, content model.Rect) {
	d.bounds = model.BoundsSet{
		Bounds:  margin,
		Margin:  margin,
		Padding: padding,
		Content: content,
	}
}

// Render draws four guides: right, left, top and bottom edges of the content box.
func (d *LinesDrawable) Render(s Surface) {
	RenderGuides(s, d.bounds.Content)
}

// SetAlpha is accepted and ignored.
func (d *LinesDrawable) SetAlpha(int) {}

// SetColorFilter is accepted and ignored.
func (d *LinesDrawable) SetColorFilter(ColorFilter) {}

// Opacity always reports Translucent.
func (d *LinesDrawable) Opacity() Opacity { return Translucent }

// RenderGuides draws the content-box guides without any retained state.
func RenderGuides(s Surface, content model.Rect) {
	right, left := float64(content.Right), float64(content.Left)
	top, bottom := float64(content.Top), float64(content.Bottom)

	s.DrawLine(right, 0, right, LineExtent, GuideStyle)
	s.DrawLine(left, 0, left, LineExtent, GuideStyle)
	s.DrawLine(0, top, LineExtent, top, GuideStyle)
	s.DrawLine(0, bottom, LineExtent, bottom, GuideStyle)
}

// DrawableCache hands out one LinesDrawable per density. The cache is owned
// by its caller; drawables it returns are shared, so callers serialize
// Configure/Render pairs, e.g. with Do.
type DrawableCache struct {
	mu        sync.Mutex
	drawables map[float64]*LinesDrawable
}

// NewDrawableCache returns an empty cache.
func NewDrawableCache() *DrawableCache {
	return &DrawableCache{drawables: make(map[float64]*LinesDrawable)}
}

// Get returns the drawable for density, creating it on first use.
func (c *DrawableCache) Get(density float64) *LinesDrawable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(density)
}

func (c *DrawableCache) getLocked(density float64) *LinesDrawable {
	d, ok := c.drawables[density]
	if !ok {
		d = NewLinesDrawable(density)
		c.drawables[density] = d
	}
	return d
}

// Do configures the drawable for density and renders it onto s while holding
// the cache lock.
func (c *DrawableCache) Do(density float64, b model.BoundsSet, s Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.getLocked(density)
	d.Configure(b.Margin, b.Padding, b.Content)
	d.Render(s)
}

// Len reports how many densities have a drawable.
func (c *DrawableCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.drawables)
}
