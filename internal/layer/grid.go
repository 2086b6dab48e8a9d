// Package layer implements the spatial layers of the cooking-access analysis:
// rasters on an affine grid, vector feature collections, and the operations
// that conform them to a single canonical grid (mask, align, reproject,
// distance, normalize).
package layer

import (
	"math"

	"github.com/rotisserie/eris"
)

// Grid describes the geometry of a raster: coordinate reference system,
// affine transform (origin plus cell size) and shape. CellHeight is negative
// for north-up grids, matching the GDAL geotransform convention.
type Grid struct {
	CRS        int // EPSG code
	OriginX    float64
	OriginY    float64
	CellWidth  float64
	CellHeight float64
	NX         int
	NY         int
}

// cellWidthTolerance is the relative difference in cell width below which two
// grids are considered to have the same resolution.
const cellWidthTolerance = 0.01

// CellCenter returns the projected coordinates of the center of cell (row, col).
func (g Grid) CellCenter(row, col int) (x, y float64) {
	x = g.OriginX + (float64(col)+0.5)*g.CellWidth
	y = g.OriginY + (float64(row)+0.5)*g.CellHeight
	return x, y
}

// Index returns the cell containing the point (x, y). ok is false when the
// point falls outside the grid extent.
func (g Grid) Index(x, y float64) (row, col int, ok bool) {
	col = int(math.Floor((x - g.OriginX) / g.CellWidth))
	row = int(math.Floor((y - g.OriginY) / g.CellHeight))
	if row < 0 || row >= g.NY || col < 0 || col >= g.NX {
		return 0, 0, false
	}
	return row, col, true
}

// Bounds returns the grid extent as (minX, minY, maxX, maxY).
func (g Grid) Bounds() (minX, minY, maxX, maxY float64) {
	x2 := g.OriginX + float64(g.NX)*g.CellWidth
	y2 := g.OriginY + float64(g.NY)*g.CellHeight
	return math.Min(g.OriginX, x2), math.Min(g.OriginY, y2),
		math.Max(g.OriginX, x2), math.Max(g.OriginY, y2)
}

// CellArea returns the area of one cell in squared map units.
func (g Grid) CellArea() float64 {
	return math.Abs(g.CellWidth * g.CellHeight)
}

// SameResolution reports whether the relative difference in cell width
// between the two grids is within tolerance.
func (g Grid) SameResolution(o Grid) bool {
	if o.CellWidth == 0 {
		return false
	}
	return math.Abs(g.CellWidth-o.CellWidth)/math.Abs(o.CellWidth) <= cellWidthTolerance
}

// Equal reports whether two grids share CRS, transform and shape exactly
// (within floating-point tolerance on the transform).
func (g Grid) Equal(o Grid) bool {
	const eps = 1e-9
	return g.CRS == o.CRS &&
		g.NX == o.NX && g.NY == o.NY &&
		math.Abs(g.OriginX-o.OriginX) < eps &&
		math.Abs(g.OriginY-o.OriginY) < eps &&
		math.Abs(g.CellWidth-o.CellWidth) < eps &&
		math.Abs(g.CellHeight-o.CellHeight) < eps
}

// Validate checks the grid for a usable transform and shape.
func (g Grid) Validate() error {
	if g.NX <= 0 || g.NY <= 0 {
		return eris.Errorf("layer: grid shape %dx%d is not positive", g.NX, g.NY)
	}
	if g.CellWidth <= 0 {
		return eris.Errorf("layer: cell width %f must be positive", g.CellWidth)
	}
	if g.CellHeight >= 0 {
		return eris.Errorf("layer: cell height %f must be negative (north-up)", g.CellHeight)
	}
	return nil
}
