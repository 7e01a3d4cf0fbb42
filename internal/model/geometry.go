package model

// Rect is an axis-aligned rectangle in surface coordinates.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// NewRect builds a Rect from its four edges.
func NewRect(left, top, right, bottom int) Rect {
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Left >= r.Right || r.Top >= r.Bottom
}

// Contains reports whether inner lies entirely within r (edges inclusive).
func (r Rect) Contains(inner Rect) bool {
	return inner.Left >= r.Left && inner.Top >= r.Top &&
		inner.Right <= r.Right && inner.Bottom <= r.Bottom
}

// BoundsSet groups the box-model rectangles of one laid-out element.
// Content is expected inside Padding inside Margin; nothing enforces it.
type BoundsSet struct {
	Bounds  Rect `json:"bounds"`
	Margin  Rect `json:"margin"`
	Padding Rect `json:"padding"`
	Content Rect `json:"content"`
}

// Nested reports whether content ⊂ padding ⊂ margin holds.
func (b BoundsSet) Nested() bool {
	return b.Margin.Contains(b.Padding) && b.Padding.Contains(b.Content)
}
