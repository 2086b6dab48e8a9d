// Package points builds and extends the analysis point table: one row per
// populated grid cell, extended with one column per sampled layer and per
// technology net cost.
package points

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/stoveplan/internal/layer"
)

// Column names written by extraction and calibration.
const (
	ColPop           = "Pop"
	ColCalibratedPop = "Calibrated_pop"
	ColIsUrban       = "IsUrban"
)

// ErrNotExtracted is returned when a sampling operation runs before the
// point table has been extracted from the population raster.
var ErrNotExtracted = eris.New("points: table has not been extracted yet")

// ErrAlreadyExtracted guards the row↔cell correspondence: re-extraction
// would silently invalidate every sampled column.
var ErrAlreadyExtracted = eris.New("points: table was already extracted")

// Point is one populated cell: its grid index and center coordinates.
type Point struct {
	Row, Col int
	X, Y     float64
}

// Table is the point table. Rows are fixed at extraction time; columns are
// appended by sampling and by the calibration and net-cost stages.
type Table struct {
	Grid   layer.Grid
	Points []Point

	columns map[string][]float64
	order   []string
}

// NewTable returns an empty, not-yet-extracted table.
func NewTable() *Table {
	return &Table{columns: make(map[string][]float64)}
}

// Extracted reports whether the table has rows.
func (t *Table) Extracted() bool { return len(t.Points) > 0 }

// Extract enumerates the population raster's non-no-data cells in row-major
// order, fixing the row↔cell correspondence every later sampling relies on.
// It may run exactly once per table.
func (t *Table) Extract(pop *layer.RasterLayer) error {
	if t.Extracted() {
		return ErrAlreadyExtracted
	}
	var values []float64
	for row := 0; row < pop.Grid.NY; row++ {
		for col := 0; col < pop.Grid.NX; col++ {
			v := pop.At(row, col)
			if pop.IsNoData(v) {
				continue
			}
			x, y := pop.Grid.CellCenter(row, col)
			t.Points = append(t.Points, Point{Row: row, Col: col, X: x, Y: y})
			values = append(values, v)
		}
	}
	if len(t.Points) == 0 {
		return eris.New("points: population raster has no valid cells")
	}
	t.Grid = pop.Grid
	t.setColumn(ColPop, values)
	return nil
}

// ReadColumn fills one column by direct cell-index lookup. The layer must
// already be aligned to the table's grid; its derived distance surface is
// read when present.
func (t *Table) ReadColumn(r *layer.RasterLayer) error {
	if !t.Extracted() {
		return ErrNotExtracted
	}
	src := r
	if r.Derived != nil {
		src = r.Derived
	}
	if !src.Grid.Equal(t.Grid) {
		return eris.Errorf("points: layer %s is not aligned to the point table grid", r.Name)
	}
	values := make([]float64, len(t.Points))
	for i, p := range t.Points {
		values[i] = src.At(p.Row, p.Col)
	}
	t.setColumn(r.Name, values)
	return nil
}

// SampleColumn fills one column by spatial lookup through the layer's own
// grid, for layers not conformed to the base grid. Points outside the
// layer's extent receive the layer's no-data value.
func (t *Table) SampleColumn(r *layer.RasterLayer) error {
	if !t.Extracted() {
		return ErrNotExtracted
	}
	src := r
	if r.Derived != nil {
		src = r.Derived
	}
	proj, err := layer.Project(t.Grid.CRS, src.Grid.CRS)
	if err != nil {
		return eris.Wrapf(err, "points: sample %s", r.Name)
	}
	values := make([]float64, len(t.Points))
	for i, p := range t.Points {
		x, y := proj(p.X, p.Y)
		row, col, ok := src.Grid.Index(x, y)
		if !ok {
			values[i] = src.NoData
			continue
		}
		values[i] = src.At(row, col)
	}
	t.setColumn(r.Name, values)
	return nil
}

// Column returns a column by name.
func (t *Table) Column(name string) ([]float64, error) {
	c, ok := t.columns[name]
	if !ok {
		return nil, eris.Errorf("points: no column %q", name)
	}
	return c, nil
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// SetColumn assigns a full column. The length must match the row count.
func (t *Table) SetColumn(name string, values []float64) error {
	if !t.Extracted() {
		return ErrNotExtracted
	}
	if len(values) != len(t.Points) {
		return eris.Errorf("points: column %q length %d does not match %d rows", name, len(values), len(t.Points))
	}
	t.setColumn(name, values)
	return nil
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Points) }

func (t *Table) setColumn(name string, values []float64) {
	if _, exists := t.columns[name]; !exists {
		t.order = append(t.order, name)
	}
	t.columns[name] = values
}
