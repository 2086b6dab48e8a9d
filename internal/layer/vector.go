package layer

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/stoveplan/internal/distance"
)

// Feature is one geometry with its attribute row.
type Feature struct {
	Geom  geom.T
	Attrs map[string]any
}

// VectorLayer is a geometry-based layer: an ordered feature collection with
// a CRS and an optional attribute query applied before rasterization and
// masking.
type VectorLayer struct {
	Spec

	CRS      int
	Features []Feature
	Query    string

	// Derived holds the distance surface produced by DistanceRaster.
	Derived *RasterLayer
}

// LayerSpec returns the layer's shared attributes.
func (v *VectorLayer) LayerSpec() *Spec { return &v.Spec }

// ApplyQuery filters the feature collection in place with the layer's
// attribute query. The query grammar is a single comparison:
// "<field> <op> <value>" with op one of =, !=, >, >=, <, <=.
func (v *VectorLayer) ApplyQuery() error {
	if v.Query == "" {
		return nil
	}
	field, op, value, err := parseQuery(v.Query)
	if err != nil {
		return eris.Wrapf(err, "layer: %s/%s", v.Category, v.Name)
	}
	kept := v.Features[:0]
	for _, f := range v.Features {
		match, matchErr := matchAttr(f.Attrs[field], op, value)
		if matchErr != nil {
			return eris.Wrapf(matchErr, "layer: %s/%s: field %q", v.Category, v.Name, field)
		}
		if match {
			kept = append(kept, f)
		}
	}
	v.Features = kept
	return nil
}

// Contains reports whether the point lies inside any polygon feature.
func (v *VectorLayer) Contains(x, y float64) bool {
	p := geom.Coord{x, y}
	for _, f := range v.Features {
		if polygonContains(f.Geom, p) {
			return true
		}
	}
	return false
}

// Mask drops features that fall entirely outside the boundary polygons.
// Point features are kept on containment; line and polygon features are kept
// when any vertex lies inside the boundary. The nested friction raster, when
// present, is masked as well.
func (v *VectorLayer) Mask(boundary *VectorLayer) error {
	if boundary == nil {
		return eris.New("layer: mask boundary is nil")
	}
	proj, err := projectorFor(v.CRS, boundary.CRS)
	if err != nil {
		return eris.Wrapf(err, "layer: mask %s/%s", v.Category, v.Name)
	}
	if err := v.ApplyQuery(); err != nil {
		return err
	}
	kept := v.Features[:0]
	for _, f := range v.Features {
		if anyVertexInside(f.Geom, boundary, proj) {
			kept = append(kept, f)
		}
	}
	dropped := len(v.Features) - len(kept)
	v.Features = kept
	if dropped > 0 {
		zap.L().Debug("layer: masked vector features",
			zap.String("category", v.Category),
			zap.String("name", v.Name),
			zap.Int("dropped", dropped),
		)
	}
	if v.Friction != nil {
		return v.Friction.Mask(boundary)
	}
	return nil
}

// Reproject converts every feature coordinate to the target CRS.
func (v *VectorLayer) Reproject(crs int) error {
	if v.CRS == crs {
		return nil
	}
	proj, err := projectorFor(v.CRS, crs)
	if err != nil {
		return eris.Wrapf(err, "layer: reproject %s/%s", v.Category, v.Name)
	}
	for _, f := range v.Features {
		projectCoords(f.Geom.FlatCoords(), f.Geom.Stride(), proj)
	}
	v.CRS = crs
	return nil
}

// Align conforms the nested friction raster to the base grid. The feature
// collection itself is not grid-aligned.
func (v *VectorLayer) Align(base Grid) error {
	if v.Friction != nil {
		return v.Friction.Align(base)
	}
	return nil
}

// Rasterize burns the features onto the given grid: cells touched by a
// point or line, or whose center lies inside a polygon, receive value 1;
// all other cells are no-data.
func (v *VectorLayer) Rasterize(grid Grid) (*RasterLayer, error) {
	if v.CRS != grid.CRS {
		return nil, eris.Errorf("layer: %s/%s: vector CRS EPSG:%d does not match grid CRS EPSG:%d",
			v.Category, v.Name, v.CRS, grid.CRS)
	}
	out, err := NewRaster(v.Spec, grid, -9999)
	if err != nil {
		return nil, err
	}
	for _, f := range v.Features {
		burnGeometry(out, f.Geom)
	}
	return out, nil
}

// DistanceRaster rasterizes the features onto the base grid and accumulates
// travel time (over the friction raster) or proximity towards them.
func (v *VectorLayer) DistanceRaster(base Grid) (*RasterLayer, error) {
	switch v.Distance {
	case DistanceNone:
		return nil, nil
	case DistanceTravelTime, DistanceProximity:
	default:
		return nil, eris.Errorf("layer: %s/%s: unknown distance kind %q", v.Category, v.Name, v.Distance)
	}

	targetRaster, err := v.Rasterize(base)
	if err != nil {
		return nil, err
	}
	var targets []int
	for i, val := range targetRaster.Data {
		if !targetRaster.IsNoData(val) {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return nil, eris.Errorf("layer: %s/%s: no features rasterized inside the base grid", v.Category, v.Name)
	}

	var friction []float64
	var nodata float64 = -9999
	switch v.Distance {
	case DistanceTravelTime:
		if v.Friction == nil {
			return nil, eris.Errorf("layer: %s/%s: travel_time distance requires a friction raster", v.Category, v.Name)
		}
		if !v.Friction.Grid.Equal(base) {
			return nil, eris.Errorf("layer: %s/%s: friction raster is not aligned to the base grid", v.Category, v.Name)
		}
		nodata = v.Friction.NoData
		friction = make([]float64, len(v.Friction.Data))
		for i, val := range v.Friction.Data {
			if v.Friction.IsNoData(val) {
				friction[i] = math.NaN()
			} else {
				friction[i] = val
			}
		}
	case DistanceProximity:
		friction = distance.Uniform(base.NX, base.NY)
	}

	cost, err := distance.Accumulate(distance.Problem{
		NX:       base.NX,
		NY:       base.NY,
		CellSize: base.CellWidth,
		Friction: friction,
		Targets:  targets,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "layer: %s/%s", v.Category, v.Name)
	}

	derived, err := NewRaster(v.Spec, base, nodata)
	if err != nil {
		return nil, err
	}
	limit := v.DistanceLimit
	for i, c := range cost {
		switch {
		case math.IsInf(c, 1) && limit > 0:
			derived.Data[i] = limit
		case math.IsInf(c, 1):
			derived.Data[i] = derived.NoData
		case limit > 0 && c > limit:
			derived.Data[i] = limit
		default:
			derived.Data[i] = c
		}
	}
	v.Derived = derived
	return derived, nil
}

// Normalize rescales the layer's derived distance surface into [0,1]. A
// vector layer with no derived raster has nothing to normalize.
func (v *VectorLayer) Normalize() error {
	if v.Normalization == NormalizationNone || v.Derived == nil {
		return nil
	}
	r := &RasterLayer{Spec: v.Spec, Grid: v.Derived.Grid, Data: v.Derived.Data, NoData: v.Derived.NoData}
	return r.Normalize()
}

// parseQuery splits "<field> <op> <value>" into its parts.
func parseQuery(q string) (field, op, value string, err error) {
	parts := strings.Fields(q)
	if len(parts) < 3 {
		return "", "", "", eris.Errorf("layer: malformed query %q", q)
	}
	switch parts[1] {
	case "=", "!=", ">", ">=", "<", "<=":
	default:
		return "", "", "", eris.Errorf("layer: unknown operator %q", parts[1])
	}
	return parts[0], parts[1], strings.Join(parts[2:], " "), nil
}

func matchAttr(attr any, op, value string) (bool, error) {
	if attr == nil {
		return false, nil
	}
	if num, err := strconv.ParseFloat(value, 64); err == nil {
		got, ok := toFloat(attr)
		if !ok {
			return false, nil
		}
		switch op {
		case "=":
			return got == num, nil
		case "!=":
			return got != num, nil
		case ">":
			return got > num, nil
		case ">=":
			return got >= num, nil
		case "<":
			return got < num, nil
		case "<=":
			return got <= num, nil
		}
	}
	s, ok := attr.(string)
	if !ok {
		return false, nil
	}
	switch op {
	case "=":
		return s == value, nil
	case "!=":
		return s != value, nil
	}
	return false, eris.Errorf("layer: operator %q not valid for string comparison", op)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// polygonContains tests point-in-polygon for polygonal geometries, holes
// respected.
func polygonContains(g geom.T, p geom.Coord) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return coordInPolygon(t, p)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if coordInPolygon(t.Polygon(i), p) {
				return true
			}
		}
	}
	return false
}

func coordInPolygon(poly *geom.Polygon, p geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

func anyVertexInside(g geom.T, boundary *VectorLayer, proj projector) bool {
	flat := g.FlatCoords()
	stride := g.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		bx, by := proj(flat[i], flat[i+1])
		if boundary.Contains(bx, by) {
			return true
		}
	}
	return false
}

func projectCoords(flat []float64, stride int, proj projector) {
	for i := 0; i+1 < len(flat); i += stride {
		flat[i], flat[i+1] = proj(flat[i], flat[i+1])
	}
}

// burnGeometry marks the raster cells touched by a geometry with value 1.
func burnGeometry(r *RasterLayer, g geom.T) {
	switch t := g.(type) {
	case *geom.Point:
		burnPoint(r, t.X(), t.Y())
	case *geom.MultiPoint:
		for i := 0; i < t.NumPoints(); i++ {
			burnPoint(r, t.Point(i).X(), t.Point(i).Y())
		}
	case *geom.LineString:
		burnLine(r, t.FlatCoords(), t.Stride())
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			ls := t.LineString(i)
			burnLine(r, ls.FlatCoords(), ls.Stride())
		}
	case *geom.Polygon:
		burnPolygon(r, t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			burnPolygon(r, t.Polygon(i))
		}
	}
}

func burnPoint(r *RasterLayer, x, y float64) {
	if row, col, ok := r.Grid.Index(x, y); ok {
		r.SetCell(row, col, 1)
	}
}

// burnLine walks each segment in half-cell steps so no traversed cell is
// skipped.
func burnLine(r *RasterLayer, flat []float64, stride int) {
	step := math.Min(r.Grid.CellWidth, math.Abs(r.Grid.CellHeight)) / 2
	for i := 0; i+stride+1 < len(flat); i += stride {
		x0, y0 := flat[i], flat[i+1]
		x1, y1 := flat[i+stride], flat[i+stride+1]
		dx, dy := x1-x0, y1-y0
		length := math.Hypot(dx, dy)
		n := int(length/step) + 1
		for s := 0; s <= n; s++ {
			t := float64(s) / float64(n)
			burnPoint(r, x0+t*dx, y0+t*dy)
		}
	}
}

func burnPolygon(r *RasterLayer, poly *geom.Polygon) {
	b := poly.Bounds()
	for row := 0; row < r.Grid.NY; row++ {
		for col := 0; col < r.Grid.NX; col++ {
			x, y := r.Grid.CellCenter(row, col)
			if x < b.Min(0) || x > b.Max(0) || y < b.Min(1) || y > b.Max(1) {
				continue
			}
			if coordInPolygon(poly, geom.Coord{x, y}) {
				r.SetCell(row, col, 1)
			}
		}
	}
}
