package overlay_test

import (
	"image/color"
	"testing"

	"github.com/simaofelgueirasJM/flipper/internal/model"
	"github.com/simaofelgueirasJM/flipper/internal/overlay"
)

func TestLinesDrawable_RenderDrawsFourEdgeGuides(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content model.Rect
	}{
		{"typical", model.NewRect(10, 20, 110, 220)},
		{"origin", model.NewRect(0, 0, 1, 1)},
		{"huge", model.NewRect(5000, 6000, 90000, 95000)},
		{"inverted", model.NewRect(50, 50, 10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := overlay.NewLinesDrawable(2.0)
			d.Configure(model.NewRect(0, 0, 200, 300), model.NewRect(2, 2, 198, 298), tt.content)

			var s overlay.RecordingSurface
			d.Render(&s)

			if len(s.Lines) != 4 {
				t.Fatalf("expected 4 lines, got %d", len(s.Lines))
			}
			c := tt.content
			want := []overlay.Line{
				{X0: float64(c.Right), Y0: 0, X1: float64(c.Right), Y1: overlay.LineExtent},
				{X0: float64(c.Left), Y0: 0, X1: float64(c.Left), Y1: overlay.LineExtent},
				{X0: 0, Y0: float64(c.Top), X1: overlay.LineExtent, Y1: float64(c.Top)},
				{X0: 0, Y0: float64(c.Bottom), X1: overlay.LineExtent, Y1: float64(c.Bottom)},
			}
			for i, w := range want {
				got := s.Lines[i]
				if got.X0 != w.X0 || got.Y0 != w.Y0 || got.X1 != w.X1 || got.Y1 != w.Y1 {
					t.Errorf("line %d: got (%v,%v)-(%v,%v), want (%v,%v)-(%v,%v)",
						i, got.X0, got.Y0, got.X1, got.Y1, w.X0, w.Y0, w.X1, w.Y1)
				}
			}
		})
	}
}

func TestLinesDrawable_GuideStyle(t *testing.T) {
	t.Parallel()
	var s overlay.RecordingSurface
	overlay.RenderGuides(&s, model.NewRect(1, 2, 3, 4))

	for i, l := range s.Lines {
		if l.Color != "#FF800000" {
			t.Errorf("line %d color %s, want #FF800000", i, l.Color)
		}
		if l.Width != 3 {
			t.Errorf("line %d width %v, want 3", i, l.Width)
		}
		if len(l.Dash) != 2 || l.Dash[0] != 10 || l.Dash[1] != 10 {
			t.Errorf("line %d dash %v, want [10 10]", i, l.Dash)
		}
	}
}

func TestLinesDrawable_ConfigureCopiesBounds(t *testing.T) {
	t.Parallel()
	margin := model.NewRect(0, 0, 100, 100)
	padding := model.NewRect(5, 5, 95, 95)
	content := model.NewRect(10, 10, 90, 90)

	d := overlay.NewLinesDrawable(1)
	d.Configure(margin, padding, content)
	content.Left = 999

	b := d.Bounds()
	if b.Content.Left != 10 {
		t.Errorf("drawable aliased caller rect: left=%d", b.Content.Left)
	}
	if b.Bounds != margin {
		t.Errorf("overall bounds should equal margin, got %+v", b.Bounds)
	}
	if b.Padding != padding {
		t.Errorf("padding not stored, got %+v", b.Padding)
	}
}

func TestLinesDrawable_OpacityAndAlphaAreStatic(t *testing.T) {
	t.Parallel()
	d := overlay.NewLinesDrawable(3)
	d.Configure(model.Rect{}, model.Rect{}, model.NewRect(1, 1, 2, 2))

	var before overlay.RecordingSurface
	d.Render(&before)

	d.SetAlpha(0)
	d.SetColorFilter(func(color.RGBA) color.RGBA { return color.RGBA{} })
	if d.Opacity() != overlay.Translucent {
		t.Errorf("expected translucent, got %v", d.Opacity())
	}

	var after overlay.RecordingSurface
	d.Render(&after)
	for i := range before.Lines {
		if before.Lines[i].Color != after.Lines[i].Color {
			t.Errorf("alpha or filter changed line %d color", i)
		}
	}
	if d.Density() != 3 {
		t.Errorf("expected density 3, got %v", d.Density())
	}
}

func TestDrawableCache_OneDrawablePerDensity(t *testing.T) {
	t.Parallel()
	c := overlay.NewDrawableCache()
	a := c.Get(2)
	if c.Get(2) != a {
		t.Error("expected cached drawable for same density")
	}
	if c.Get(3) == a {
		t.Error("expected distinct drawable for another density")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 cached drawables, got %d", c.Len())
	}

	var s overlay.RecordingSurface
	c.Do(2, model.BoundsSet{Content: model.NewRect(4, 5, 6, 7)}, &s)
	if len(s.Lines) != 4 || s.Lines[0].X0 != 6 {
		t.Errorf("Do rendered unexpected lines: %+v", s.Lines)
	}
	if a.Bounds().Content != model.NewRect(4, 5, 6, 7) {
		t.Errorf("Do should configure the cached drawable")
	}
}
