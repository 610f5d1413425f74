package tui

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"hivedash/internal/client"
	"hivedash/internal/feed"
)

// Point is a position in the unit square; the renderer scales it to the
// terminal canvas.
type Point struct {
	X, Y float64
}

// layoutPositions assigns every worker a stable 2D position: the pinned
// slot for known roles, a deterministic radial slot hashed from the name
// for everything else. Stable positions keep the graph from jittering
// between renders.
func layoutPositions(workers []feed.Worker, roles *feed.RoleTable) map[string]Point {
	out := make(map[string]Point, len(workers))
	for _, w := range workers {
		if x, y, ok := roles.Position(w.Name); ok {
			out[w.Name] = Point{X: x, Y: y}
			continue
		}
		out[w.Name] = radialPosition(w.Name)
	}
	return out
}

// radialPosition places an unknown role on a ring around the center at an
// angle derived from its name hash.
func radialPosition(name string) Point {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	angle := 2 * math.Pi * float64(h.Sum32()%3600) / 3600
	return Point{
		X: 0.5 + 0.40*math.Cos(angle),
		Y: 0.5 + 0.34*math.Sin(angle),
	}
}

// renderTopology draws the worker graph: a canvas with node labels and
// line segments for the live message flows, then a status legend.
func renderTopology(d feed.DashboardData, flows []client.Flow, roles *feed.RoleTable, th Theme, width, height int) string {
	if width < 20 {
		width = 20
	}
	canvasH := height - len(d.Workers) - 2
	if canvasH < 6 {
		canvasH = 6
	}

	pos := layoutPositions(d.Workers, roles)
	grid := make([][]rune, canvasH)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	cell := func(p Point) (int, int) {
		x := int(p.X * float64(width-1))
		y := int(p.Y * float64(canvasH-1))
		return clampInt(x, 0, width-1), clampInt(y, 0, canvasH-1)
	}

	// Flow edges go down first so node labels draw over them.
	for _, f := range flows {
		src, okS := pos[f.Source]
		dst, okT := pos[f.Target]
		if !okS || !okT {
			continue
		}
		x0, y0 := cell(src)
		x1, y1 := cell(dst)
		drawLine(grid, x0, y0, x1, y1)
	}

	for _, w := range d.Workers {
		x, y := cell(pos[w.Name])
		placeLabel(grid, x, y, w.Emoji+" "+w.Name)
	}

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(strings.TrimRight(string(row), " "))
		b.WriteByte('\n')
	}

	for _, w := range d.Workers {
		line := fmt.Sprintf("%s %-12s %s", w.Emoji, w.Name, th.statusStyle(string(w.Status)).Render(string(w.Status)))
		if w.CurrentTask != "" {
			line += "  " + th.TopBarMeta.Render(w.CurrentTask)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, f := range flows {
		style := th.FlowEdge
		if f.Status == client.FlowFailed {
			style = th.FlowFailed
		}
		b.WriteString(style.Render(fmt.Sprintf("%s ──▶ %s", f.Source, f.Target)))
		b.WriteString(th.MsgMeta.Render("  " + string(f.MessageType)))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// drawLine rasterizes a segment with Bresenham steps, leaving an
// arrowhead at the destination.
func drawLine(grid [][]rune, x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	for {
		if grid[y][x] == ' ' {
			grid[y][x] = '·'
		}
		if x == x1 && y == y1 {
			grid[y][x] = '▸'
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func placeLabel(grid [][]rune, x, y int, label string) {
	runes := []rune(label)
	width := len(grid[y])
	if x+len(runes) > width {
		x = width - len(runes)
		if x < 0 {
			x = 0
			runes = runes[:width]
		}
	}
	for i, r := range runes {
		grid[y][x+i] = r
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
