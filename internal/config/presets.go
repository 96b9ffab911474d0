package config

import (
	"math"
	"sort"
)

var presets = map[string]func() *Scene{
	"oscillator": oscillator,
	"limits":     limits,
	"star":       star,
	"chain":      chain,
}

// oscillator: two free cubes stretched one unit past the rest length.
func oscillator() *Scene {
	s := newScene()
	s.Name = "oscillator"
	s.Description = "two unit cubes on an undamped spring, stretched by one unit"
	s.Bodies = []BodySpec{
		{Name: "left", Position: []float64{0, 0, 0}},
		{Name: "right", Position: []float64{5, 0, 0}},
	}
	s.Joints = []JointSpec{
		{Name: "spring", Body1: "left", Body2: "right", RestLength: 4, Stiffness: 25},
	}
	return s
}

// limits: constant forces pull a damped pair apart until the upper limit holds them.
func limits() *Scene {
	s := newScene()
	s.Name = "limits"
	s.Description = "a damped spring pulled apart against its maximum length"
	s.Duration = 5
	s.Bodies = []BodySpec{
		{Name: "left", Position: []float64{0, 0, 0}, Force: []float64{-150, 0, 0}},
		{Name: "right", Position: []float64{5, 0, 0}, Force: []float64{150, 0, 0}},
	}
	s.Joints = []JointSpec{
		{
			Name: "spring", Body1: "left", Body2: "right",
			RestLength: 4, Stiffness: 25, Damping: 5,
			Limits: &LimitSpec{Min: 2, Max: 6},
		},
	}
	return s
}

// star: a center cube tied to six cubes, four in the y-z plane and two on x.
func star() *Scene {
	s := newScene()
	s.Name = "star"
	s.Description = "six cubes on springs around a free center cube above a static ground"
	s.Duration = 20
	s.Bodies = []BodySpec{
		{Name: "ground", Kind: "static", Position: []float64{0, -0.1, 0}},
		{Name: "center", Position: []float64{0, 7, 0}},
	}

	const distance = 5.0
	add := func(name string, x, y, z float64) {
		s.Bodies = append(s.Bodies, BodySpec{Name: name, Position: []float64{x, 7 + y, z}})
		s.Joints = append(s.Joints, JointSpec{
			Name: "center-" + name, Body1: "center", Body2: name,
			RestLength: 4, Stiffness: 25,
		})
	}
	for i, name := range []string{"front", "up", "back", "down"} {
		angle := float64(i) * math.Pi / 2
		add(name, 0, round(distance*math.Sin(angle)), round(distance*math.Cos(angle)))
	}
	add("east", distance, 0, 0)
	add("west", -distance, 0, 0)
	return s
}

// chain: five cubes hanging from a static anchor with a ramped push on the last.
func chain() *Scene {
	s := newScene()
	s.Name = "chain"
	s.Description = "a hanging chain of limited springs with a sideways force ramp"
	s.Gravity = []float64{0, -9.81, 0}
	s.Bodies = []BodySpec{{Name: "anchor", Kind: "static", Position: []float64{0, 10, 0}}}

	prev := "anchor"
	for i := 1; i <= 5; i++ {
		name := "link" + string(rune('0'+i))
		b := BodySpec{Name: name, Position: []float64{0, 10 - 1.5*float64(i), 0}, Mass: 0.5}
		if i == 5 {
			b.Ramp = &RampSpec{To: []float64{8, 0, 0}, Duration: 3, Easing: "in-out-sine"}
		}
		s.Bodies = append(s.Bodies, b)
		s.Joints = append(s.Joints, JointSpec{
			Name: prev + "-" + name, Body1: prev, Body2: name,
			Anchor1: []float64{0, -0.25, 0}, Anchor2: []float64{0, 0.25, 0},
			RestLength: 1, Stiffness: 200, Damping: 2,
			Limits: &LimitSpec{Min: 0.5, Max: 1.2},
		})
		prev = name
	}
	return s
}

// round trims sin/cos noise so preset positions print cleanly.
func round(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

// GetPreset returns a fresh copy of the named scene, or nil.
func GetPreset(name string) *Scene {
	fn, ok := presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
