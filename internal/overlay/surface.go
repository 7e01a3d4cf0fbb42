package overlay

import "image/color"

// LineStyle describes how a line is stroked.
type LineStyle struct {
	Color       color.RGBA
	StrokeWidth float64
	// Dash alternates on/off lengths. Empty means a solid line.
	Dash []float64
}

// Surface accepts primitive line drawing calls.
type Surface interface {
	DrawLine(x0, y0, x1, y1 float64, style LineStyle)
}

// Line is one recorded DrawLine call.
type Line struct {
	X0    float64   `json:"x0"`
	Y0    float64   `json:"y0"`
	X1    float64   `json:"x1"`
	Y1    float64   `json:"y1"`
	Color string    `json:"color"`
	Width float64   `json:"width"`
	Dash  []float64 `json:"dash,omitempty"`
}

// RecordingSurface remembers every line drawn on it.
type RecordingSurface struct {
	Lines []Line
}

func (r *RecordingSurface) DrawLine(x0, y0, x1, y1 float64, style LineStyle) {
	r.Lines = append(r.Lines, Line{
		X0: x0, Y0: y0, X1: x1, Y1: y1,
		Color: hexColor(style.Color),
		Width: style.StrokeWidth,
		Dash:  append([]float64(nil), style.Dash...),
	})
}

// hexColor formats c as #AARRGGBB.
func hexColor(c color.RGBA) string {
	const digits = "0123456789ABCDEF"
	b := []byte{'#', 0, 0, 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.A, c.R, c.G, c.B} {
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0x0F]
	}
	return string(b)
}
