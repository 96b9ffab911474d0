package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
	"github.com/san-kum/jointsim/internal/world"
)

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(4, 2)
	c.DrawLine(0, 0, 7, 7)
	out := c.String()
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected 2 rows, got %q", out)
	}
	if c.Grid[0][0] == blank || c.Grid[1][3] == blank {
		t.Errorf("diagonal not drawn: %q", out)
	}
	c.Set(-1, 100)
	c.Clear()
	for _, row := range c.Grid {
		for _, r := range row {
			if r != blank {
				t.Fatal("clear left pixels set")
			}
		}
	}
}

func TestFitKeepsPointsOnCanvas(t *testing.T) {
	c := NewCanvas(40, 10)
	pts := []mgl64.Vec3{{-5, 0, 0}, {5, 3, 0}, {0, 7, 0}}
	cam := Fit(c, pts)
	for _, p := range pts {
		x, y := cam.Project(c, p)
		if x < 0 || x >= c.Width*2 || y < 0 || y >= c.Height*4 {
			t.Errorf("%v projects off canvas to (%d,%d)", p, x, y)
		}
	}
}

func TestPlotHelpers(t *testing.T) {
	if Plot(nil, PlotOptions{}) != "" {
		t.Error("empty plot should render nothing")
	}
	out := PlotMany([][]float64{{1, 2, 3}, {3, 2, 1}, nil}, PlotOptions{Height: 4, Caption: "separation"})
	if !strings.Contains(out, "separation") {
		t.Errorf("caption missing: %q", out)
	}
	if got := Downsample([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8}, 3); len(got) != 3 || got[0] != 0 || got[2] != 8 {
		t.Errorf("downsample = %v", got)
	}
	if got := Sparkline([]float64{0, 1}, 2); got != "▁█" {
		t.Errorf("sparkline = %q", got)
	}
}

func TestTable(t *testing.T) {
	out := Table(ThemeMinimal, []string{"name", "joints"}, [][]string{{"star", "6"}, {"chain", "5"}})
	for _, want := range []string{"name", "star", "chain"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected 3 lines:\n%s", out)
	}
}

func liveWorld(t *testing.T) *world.World {
	t.Helper()
	cfg := world.DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	w := world.New(cfg)
	a, _ := body.NewDynamic(mgl64.Vec3{}, 1, mgl64.Vec3{1, 1, 1})
	b, _ := body.NewDynamic(mgl64.Vec3{5, 0, 0}, 1, mgl64.Vec3{1, 1, 1})
	ha, _ := w.AddBody(a)
	hb, _ := w.AddBody(b)
	if _, err := w.AddJoint(ha, hb, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0)); err != nil {
		t.Fatal(err)
	}
	return w
}

func TestModelStepsAndResets(t *testing.T) {
	m, err := NewModel("pair", liveWorld(t), 0.01)
	if err != nil {
		t.Fatal(err)
	}

	var next tea.Model = m
	for i := 0; i < 5; i++ {
		next, _ = next.Update(TickMsg{})
	}
	lm := next.(Model)
	if lm.world.Time() < 0.049 {
		t.Fatalf("time = %v after 5 ticks", lm.world.Time())
	}

	next, _ = lm.Update(tea.KeyMsg{Type: tea.KeyUp})
	lm = next.(Model)
	if k := lm.selectedSpring().Stiffness(); k < 27.49 || k > 27.51 {
		t.Errorf("stiffness = %v, want 27.5", k)
	}

	next, _ = lm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	lm = next.(Model)
	if lm.world.Time() != 0 || len(lm.energy) != 0 {
		t.Errorf("reset left time %v and %d energy samples", lm.world.Time(), len(lm.energy))
	}
	if !strings.Contains(lm.View(), "PAIR") {
		t.Error("view missing title")
	}
}
