// Package distance computes least-cost accumulation surfaces over regular
// grids. It is the engine behind travel-time and proximity rasters: given a
// per-cell traversal cost and a set of target cells, it returns for every
// cell the minimum accumulated cost to reach any target.
package distance

import (
	"container/heap"
	"math"

	"github.com/rotisserie/eris"
)

// Problem describes one accumulation run. Friction is row-major cost per map
// unit of travel; a NaN or negative entry marks an impassable cell. Targets
// are flat indices (row*NX+col) with zero accumulated cost.
type Problem struct {
	NX, NY   int
	CellSize float64 // map units per cell edge
	Friction []float64
	Targets  []int
}

// Unreachable is the accumulated cost assigned to cells that cannot be
// reached from any target.
var Unreachable = math.Inf(1)

// Accumulate solves the minimum-cost accumulation problem with a single
// global Dijkstra frontier over the 8-connected grid. Seeding every target
// into one frontier makes the result independent of target order. The step
// cost between two cells is the straight-line distance between their centers
// times the mean of their friction values.
func Accumulate(p Problem) ([]float64, error) {
	if p.NX <= 0 || p.NY <= 0 {
		return nil, eris.Errorf("distance: grid shape %dx%d is not positive", p.NX, p.NY)
	}
	if len(p.Friction) != p.NX*p.NY {
		return nil, eris.Errorf("distance: friction length %d does not match %dx%d grid",
			len(p.Friction), p.NX, p.NY)
	}
	if p.CellSize <= 0 {
		return nil, eris.Errorf("distance: cell size %f must be positive", p.CellSize)
	}
	if len(p.Targets) == 0 {
		return nil, eris.New("distance: no target cells")
	}

	n := p.NX * p.NY
	cost := make([]float64, n)
	for i := range cost {
		cost[i] = Unreachable
	}

	pq := make(frontier, 0, len(p.Targets))
	for _, t := range p.Targets {
		if t < 0 || t >= n {
			return nil, eris.Errorf("distance: target index %d out of range", t)
		}
		if cost[t] == 0 {
			continue // duplicate target
		}
		cost[t] = 0
		pq = append(pq, cell{idx: t, cost: 0})
	}
	heap.Init(&pq)

	diag := p.CellSize * math.Sqrt2

	for pq.Len() > 0 {
		cur := heap.Pop(&pq).(cell)
		if cur.cost > cost[cur.idx] {
			continue // stale entry
		}
		row, col := cur.idx/p.NX, cur.idx%p.NX
		fHere := p.Friction[cur.idx]

		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				nr, nc := row+dr, col+dc
				if nr < 0 || nr >= p.NY || nc < 0 || nc >= p.NX {
					continue
				}
				ni := nr*p.NX + nc
				fThere := p.Friction[ni]
				if impassable(fHere) || impassable(fThere) {
					continue
				}
				step := p.CellSize
				if dr != 0 && dc != 0 {
					step = diag
				}
				next := cur.cost + step*(fHere+fThere)/2
				if next < cost[ni] {
					cost[ni] = next
					heap.Push(&pq, cell{idx: ni, cost: next})
				}
			}
		}
	}

	return cost, nil
}

// Uniform returns a friction surface of constant cost per map unit, used for
// proximity (grid-constrained linear distance) surfaces.
func Uniform(nx, ny int) []float64 {
	f := make([]float64, nx*ny)
	for i := range f {
		f[i] = 1
	}
	return f
}

func impassable(f float64) bool {
	return math.IsNaN(f) || f < 0
}

type cell struct {
	idx  int
	cost float64
}

type frontier []cell

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].cost < f[j].cost }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)         { *f = append(*f, x.(cell)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	c := old[n-1]
	*f = old[:n-1]
	return c
}
