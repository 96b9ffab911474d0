package viz

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the sub-pixel (x, y). The canvas is (Width*2) x (Height*4)
// sub-pixels; out of range points are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawDot fills a square of side 2r+1 around (x, y).
func (c *Canvas) DrawDot(x, y, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			c.Set(x+dx, y+dy)
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Camera maps the world XY plane onto canvas sub-pixels, +Y up.
type Camera struct {
	Center mgl64.Vec2
	Scale  float64 // sub-pixels per world unit
}

// Fit centers the camera on pts with a margin so they all fit on c.
func Fit(c *Canvas, pts []mgl64.Vec3) Camera {
	if len(pts) == 0 {
		return Camera{Scale: 1}
	}
	lo := mgl64.Vec2{pts[0].X(), pts[0].Y()}
	hi := lo
	for _, p := range pts[1:] {
		lo[0], hi[0] = min(lo[0], p.X()), max(hi[0], p.X())
		lo[1], hi[1] = min(lo[1], p.Y()), max(hi[1], p.Y())
	}
	span := hi.Sub(lo)
	w, h := float64(c.Width*2), float64(c.Height*4)
	scale := min(w/max(span.X(), 1e-9), h/max(span.Y(), 1e-9)) * 0.8
	if scale > 20 {
		scale = 20
	}
	return Camera{Center: lo.Add(hi).Mul(0.5), Scale: scale}
}

func (cam Camera) Project(c *Canvas, p mgl64.Vec3) (int, int) {
	x := float64(c.Width) + (p.X()-cam.Center.X())*cam.Scale
	y := float64(c.Height*2) - (p.Y()-cam.Center.Y())*cam.Scale
	return int(x), int(y)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
