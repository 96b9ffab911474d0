// Package export renders worlds and sampled series as standalone SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
	"github.com/san-kum/jointsim/internal/world"
)

const (
	background  = "#0a0a0a"
	springColor = "#00ccff"
	limitColor  = "#ff4444"
	bodyColor   = "#00ff88"
	fixedColor  = "#888899"
)

type bounds struct {
	minX, minY, maxX, maxY float64
}

func (b *bounds) add(x, y float64) {
	b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
	b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
}

// pad widens b by 10% on each side and never returns an empty range.
func (b bounds) pad() bounds {
	rx, ry := b.maxX-b.minX, b.maxY-b.minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	return bounds{b.minX - rx*0.1, b.minY - ry*0.1, b.maxX + rx*0.1, b.maxY + ry*0.1}
}

func newBounds() bounds {
	return bounds{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
}

func header(sb *strings.Builder, width, height int) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))
}

// WorldToSVG draws the XY projection of w: springs as lines, turning red
// while a length limit is pushing, and bodies as dots. Static and kinematic
// bodies are drawn as squares.
func WorldToSVG(w *world.World, width, height int) string {
	b := newBounds()
	w.Bodies().Each(func(_ body.Handle, bd *body.Body) bool {
		b.add(bd.Position.X(), bd.Position.Y())
		return true
	})
	if math.IsInf(b.minX, 1) {
		b = bounds{}
	}
	b = b.pad()

	// keep aspect ratio
	scale := math.Min(float64(width)/(b.maxX-b.minX), float64(height)/(b.maxY-b.minY))
	cx, cy := (b.minX+b.maxX)/2, (b.minY+b.maxY)/2
	project := func(p mgl64.Vec3) (float64, float64) {
		return float64(width)/2 + (p.X()-cx)*scale, float64(height)/2 - (p.Y()-cy)*scale
	}

	var sb strings.Builder
	header(&sb, width, height)

	bodies := w.Bodies()
	w.Joints().Each(func(_ joint.Handle, j *joint.Joint) bool {
		s, ok := j.Constraint.(*joint.SpringJoint)
		if !ok {
			return true
		}
		b1, ok1 := bodies.Get(j.Body1)
		b2, ok2 := bodies.Get(j.Body2)
		if !ok1 || !ok2 {
			return true
		}
		p1, p2 := s.WorldAnchors(b1, b2)
		x1, y1 := project(p1)
		x2, y2 := project(p2)
		color := springColor
		if s.LimitsLowerImpulse() > 0 || s.LimitsUpperImpulse() > 0 {
			color = limitColor
		}
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1.5"/>
`, x1, y1, x2, y2, color))
		return true
	})

	bodies.Each(func(_ body.Handle, bd *body.Body) bool {
		x, y := project(bd.Position)
		if bd.IsDynamic() {
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>
`, x, y, bodyColor))
		} else {
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="8" height="8" fill="%s"/>
`, x-4, y-4, fixedColor))
		}
		return true
	})

	sb.WriteString("</svg>\n")
	return sb.String()
}

// SeriesToSVG plots values against times as a polyline.
func SeriesToSVG(times, values []float64, width, height int, strokeColor string) string {
	n := min(len(times), len(values))
	if n < 2 {
		return ""
	}

	b := newBounds()
	for i := 0; i < n; i++ {
		b.add(times[i], values[i])
	}
	b = b.pad()
	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY

	var sb strings.Builder
	header(&sb, width, height)
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))
	for i := 0; i < n; i++ {
		x := (times[i] - b.minX) / rangeX * float64(width)
		y := float64(height) - (values[i]-b.minY)/rangeY*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString(`"/>
</svg>
`)
	return sb.String()
}
