package layer

import (
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/stoveplan/internal/distance"
)

// RasterLayer is a grid-based layer: an affine grid plus a row-major value
// slice with a no-data sentinel. No-data cells are excluded from statistics,
// normalization and point extraction.
type RasterLayer struct {
	Spec

	Grid   Grid
	Data   []float64
	NoData float64

	// Derived holds the distance surface produced by DistanceRaster. It is
	// the value normalized and saved once present.
	Derived *RasterLayer
}

// NewRaster allocates a raster filled with the no-data sentinel.
func NewRaster(spec Spec, grid Grid, nodata float64) (*RasterLayer, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	data := make([]float64, grid.NX*grid.NY)
	for i := range data {
		data[i] = nodata
	}
	return &RasterLayer{Spec: spec, Grid: grid, Data: data, NoData: nodata}, nil
}

// LayerSpec returns the layer's shared attributes.
func (r *RasterLayer) LayerSpec() *Spec { return &r.Spec }

// At returns the value of cell (row, col). Callers are responsible for
// bounds; out-of-range indices panic like a slice access.
func (r *RasterLayer) At(row, col int) float64 {
	return r.Data[row*r.Grid.NX+col]
}

// SetCell assigns the value of cell (row, col).
func (r *RasterLayer) SetCell(row, col int, v float64) {
	r.Data[row*r.Grid.NX+col] = v
}

// IsNoData reports whether v is the no-data sentinel.
func (r *RasterLayer) IsNoData(v float64) bool {
	return math.IsNaN(v) || v == r.NoData
}

// MinMax returns the minimum and maximum over valid cells. ok is false when
// the raster has no valid cell.
func (r *RasterLayer) MinMax() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range r.Data {
		if r.IsNoData(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

// ValidCount returns the number of non-no-data cells.
func (r *RasterLayer) ValidCount() int {
	n := 0
	for _, v := range r.Data {
		if !r.IsNoData(v) {
			n++
		}
	}
	return n
}

// Mask sets every cell whose center falls outside the boundary polygons to
// no-data. The boundary may be in a different CRS as long as a projection
// between the two systems exists.
func (r *RasterLayer) Mask(boundary *VectorLayer) error {
	if boundary == nil {
		return eris.New("layer: mask boundary is nil")
	}
	proj, err := projectorFor(r.Grid.CRS, boundary.CRS)
	if err != nil {
		return eris.Wrapf(err, "layer: mask %s/%s", r.Category, r.Name)
	}
	for row := 0; row < r.Grid.NY; row++ {
		for col := 0; col < r.Grid.NX; col++ {
			x, y := r.Grid.CellCenter(row, col)
			bx, by := proj(x, y)
			if !boundary.Contains(bx, by) {
				r.SetCell(row, col, r.NoData)
			}
		}
	}
	if r.Friction != nil {
		if err := r.Friction.Mask(boundary); err != nil {
			return err
		}
	}
	return nil
}

// Reproject converts the raster to the target CRS, keeping its shape and
// recomputing the transform from the projected extent. A no-op when the
// raster is already in the target CRS.
func (r *RasterLayer) Reproject(crs int) error {
	if r.Grid.CRS == crs {
		return nil
	}
	fwd, err := projectorFor(r.Grid.CRS, crs)
	if err != nil {
		return eris.Wrapf(err, "layer: reproject %s/%s", r.Category, r.Name)
	}

	minX, minY, maxX, maxY := r.Grid.Bounds()
	// Project the four extent corners and take the envelope.
	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for _, c := range [][2]float64{{minX, minY}, {minX, maxY}, {maxX, minY}, {maxX, maxY}} {
		px, py := fwd(c[0], c[1])
		xs = append(xs, px)
		ys = append(ys, py)
	}
	pMinX, pMaxX := minMax(xs)
	pMinY, pMaxY := minMax(ys)

	target := Grid{
		CRS:        crs,
		OriginX:    pMinX,
		OriginY:    pMaxY,
		CellWidth:  (pMaxX - pMinX) / float64(r.Grid.NX),
		CellHeight: -(pMaxY - pMinY) / float64(r.Grid.NY),
		NX:         r.Grid.NX,
		NY:         r.Grid.NY,
	}
	return r.resampleTo(target)
}

// Align conforms the raster, and its friction surface when present, to the
// base grid's exact transform and shape.
func (r *RasterLayer) Align(base Grid) error {
	if r.Friction != nil {
		if err := r.Friction.Align(base); err != nil {
			return err
		}
	}
	if r.Grid.Equal(base) {
		return nil
	}
	return r.resampleTo(base)
}

// resampleTo rewrites the raster onto the target grid. Each target cell
// center is projected back into the source CRS and sampled with the layer's
// resampling method.
func (r *RasterLayer) resampleTo(target Grid) (err error) {
	inv, err := projectorFor(target.CRS, r.Grid.CRS)
	if err != nil {
		return eris.Wrapf(err, "layer: resample %s/%s", r.Category, r.Name)
	}
	out := make([]float64, target.NX*target.NY)
	for row := 0; row < target.NY; row++ {
		for col := 0; col < target.NX; col++ {
			x, y := target.CellCenter(row, col)
			sx, sy := inv(x, y)
			out[row*target.NX+col] = r.sampleAt(sx, sy)
		}
	}
	r.Grid = target
	r.Data = out
	return nil
}

// sampleAt returns the raster value at a source-CRS coordinate, or no-data
// outside the extent.
func (r *RasterLayer) sampleAt(x, y float64) float64 {
	if r.Resample == ResampleBilinear {
		return r.sampleBilinear(x, y)
	}
	row, col, ok := r.Grid.Index(x, y)
	if !ok {
		return r.NoData
	}
	return r.At(row, col)
}

func (r *RasterLayer) sampleBilinear(x, y float64) float64 {
	// Fractional cell coordinates relative to cell centers.
	fc := (x-r.Grid.OriginX)/r.Grid.CellWidth - 0.5
	fr := (y-r.Grid.OriginY)/r.Grid.CellHeight - 0.5
	c0, r0 := int(math.Floor(fc)), int(math.Floor(fr))
	tc, tr := fc-float64(c0), fr-float64(r0)

	var sum, wsum float64
	for dr := 0; dr <= 1; dr++ {
		for dc := 0; dc <= 1; dc++ {
			rr, cc := r0+dr, c0+dc
			if rr < 0 || rr >= r.Grid.NY || cc < 0 || cc >= r.Grid.NX {
				continue
			}
			v := r.At(rr, cc)
			if r.IsNoData(v) {
				continue
			}
			w := (1 - math.Abs(float64(dr)-tr)) * (1 - math.Abs(float64(dc)-tc))
			sum += v * w
			wsum += w
		}
	}
	if wsum == 0 {
		return r.NoData
	}
	return sum / wsum
}

// DistanceRaster derives the configured distance surface for the layer. With
// DistanceTravelTime the layer's friction raster (aligned to the base grid)
// accumulates cost towards the layer's valid cells; with DistanceProximity a
// uniform-cost surface yields grid-constrained linear distance. The result
// is stored as the layer's derived raster and returned.
func (r *RasterLayer) DistanceRaster(base Grid) (*RasterLayer, error) {
	switch r.Distance {
	case DistanceNone:
		return nil, nil
	case DistanceTravelTime, DistanceProximity:
	default:
		return nil, eris.Errorf("layer: %s/%s: unknown distance kind %q", r.Category, r.Name, r.Distance)
	}

	if !r.Grid.Equal(base) {
		return nil, eris.Errorf("layer: %s/%s: raster must be aligned to the base grid before distance computation",
			r.Category, r.Name)
	}

	var friction []float64
	switch r.Distance {
	case DistanceTravelTime:
		if r.Friction == nil {
			return nil, eris.Errorf("layer: %s/%s: travel_time distance requires a friction raster", r.Category, r.Name)
		}
		if !r.Friction.Grid.Equal(base) {
			return nil, eris.Errorf("layer: %s/%s: friction raster is not aligned to the base grid", r.Category, r.Name)
		}
		friction = make([]float64, len(r.Friction.Data))
		for i, v := range r.Friction.Data {
			if r.Friction.IsNoData(v) {
				friction[i] = math.NaN() // impassable
			} else {
				friction[i] = v
			}
		}
	case DistanceProximity:
		friction = distance.Uniform(base.NX, base.NY)
	}

	var targets []int
	for i, v := range r.Data {
		if !r.IsNoData(v) && v != 0 {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return nil, eris.Errorf("layer: %s/%s: no target cells for distance computation", r.Category, r.Name)
	}

	cost, err := distance.Accumulate(distance.Problem{
		NX:       base.NX,
		NY:       base.NY,
		CellSize: base.CellWidth,
		Friction: friction,
		Targets:  targets,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "layer: %s/%s", r.Category, r.Name)
	}

	derived, err := NewRaster(r.Spec, base, r.NoData)
	if err != nil {
		return nil, err
	}
	limit := r.DistanceLimit
	for i, v := range cost {
		switch {
		case math.IsInf(v, 1) && limit > 0:
			derived.Data[i] = limit
		case math.IsInf(v, 1):
			// Unbounded layer: unreachable cells carry no usable value.
			derived.Data[i] = derived.NoData
		case limit > 0 && v > limit:
			derived.Data[i] = limit
		default:
			derived.Data[i] = v
		}
	}
	r.Derived = derived
	return derived, nil
}

// Normalize rescales the layer's derived values (the distance surface when
// present, the raster itself otherwise) into [0,1] by min-max. Inverse flips
// the index so that larger raw values rank lower.
func (r *RasterLayer) Normalize() error {
	if r.Normalization == NormalizationNone {
		return nil
	}
	target := r
	if r.Derived != nil {
		target = r.Derived
	}
	lo, hi, ok := target.MinMax()
	if !ok {
		return eris.Errorf("layer: %s/%s: cannot normalize a raster with no valid cells", r.Category, r.Name)
	}
	span := hi - lo
	for i, v := range target.Data {
		if target.IsNoData(v) {
			continue
		}
		var n float64
		if span == 0 {
			n = 0
		} else {
			n = (v - lo) / span
		}
		if r.Inverse {
			n = 1 - n
		}
		target.Data[i] = n
	}
	return nil
}

// Save writes the raster (and its derived and friction rasters, when
// present) as ESRI ASCII grids under dir, creating it on demand.
func (r *RasterLayer) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "layer: create %s", dir)
	}
	if err := writeASCIIGridFile(filepath.Join(dir, r.Name+".asc"), r.Grid, r.Data, r.NoData); err != nil {
		return err
	}
	if r.Derived != nil {
		name := r.Name + "-" + string(r.Distance) + ".asc"
		if err := writeASCIIGridFile(filepath.Join(dir, name), r.Derived.Grid, r.Derived.Data, r.Derived.NoData); err != nil {
			return err
		}
	}
	if r.Friction != nil {
		if err := writeASCIIGridFile(filepath.Join(dir, r.Name+"-friction.asc"), r.Friction.Grid, r.Friction.Data, r.Friction.NoData); err != nil {
			return err
		}
	}
	zap.L().Debug("layer: saved raster",
		zap.String("category", r.Category),
		zap.String("name", r.Name),
		zap.String("dir", dir),
	)
	return nil
}

func minMax(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
