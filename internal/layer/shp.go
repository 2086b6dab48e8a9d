package layer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadVector reads a vector layer from a shapefile. Attribute names are
// lowercased; records without a usable geometry are skipped.
func LoadVector(spec Spec, path string, crs int) (*VectorLayer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	v := &VectorLayer{Spec: spec, CRS: crs}
	v.Spec.Path = path
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}
		attrs := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				attrs[name] = val
			}
		}
		v.Features = append(v.Features, Feature{Geom: g, Attrs: attrs})
	}

	if skipped > 0 {
		zap.L().Debug("layer: skipped shapefile records",
			zap.String("name", spec.Name),
			zap.Int("skipped", skipped),
		)
	}
	return v, nil
}

// Save writes the feature collection as a shapefile under dir, plus the
// derived and friction rasters when present. The shapefile type is taken
// from the first feature's geometry.
func (v *VectorLayer) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "layer: create %s", dir)
	}
	if len(v.Features) > 0 {
		if err := v.writeShapefile(filepath.Join(dir, v.Name+".shp")); err != nil {
			return err
		}
	}
	if v.Derived != nil {
		name := v.Name + "-" + string(v.Distance) + ".asc"
		if err := writeASCIIGridFile(filepath.Join(dir, name), v.Derived.Grid, v.Derived.Data, v.Derived.NoData); err != nil {
			return err
		}
	}
	if v.Friction != nil {
		if err := writeASCIIGridFile(filepath.Join(dir, v.Name+"-friction.asc"), v.Friction.Grid, v.Friction.Data, v.Friction.NoData); err != nil {
			return err
		}
	}
	return nil
}

func (v *VectorLayer) writeShapefile(path string) error {
	shapeType := shpTypeFor(v.Features[0].Geom)
	w, err := shp.Create(path, shapeType)
	if err != nil {
		return eris.Wrapf(err, "layer: create shapefile %s", path)
	}
	defer w.Close()

	// One generic attribute column keeps feature identity traceable in the
	// saved artifact without reconstructing the full source schema.
	w.SetFields([]shp.Field{shp.StringField("FID", 16)})

	row := 0
	for _, f := range v.Features {
		s := geomToShape(f.Geom, shapeType)
		if s == nil {
			continue
		}
		w.Write(s)
		_ = w.WriteAttribute(row, 0, fmt.Sprintf("%d", row))
		row++
	}

	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	if err := os.WriteFile(prj, []byte(fmt.Sprintf("EPSG:%d\n", v.CRS)), 0o644); err != nil {
		return eris.Wrapf(err, "layer: write %s", prj)
	}
	return nil
}

// shapeToGeom converts a go-shp shape to a go-geom geometry.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	case *shp.Polygon:
		return polygonToMultiPolygon((*shp.PolyLine)(s))
	}
	return nil
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}
	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < pl.NumParts; i++ {
		start, end := partRange(pl.Parts, pl.NumParts, i, len(pl.Points))
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}
		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("layer: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func polygonToMultiPolygon(p *shp.PolyLine) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start, end := partRange(p.Parts, p.NumParts, i, len(p.Points))
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("layer: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("layer: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func partRange(parts []int32, numParts, i int32, totalPoints int) (start, end int) {
	start = int(parts[i])
	if i+1 < numParts {
		end = int(parts[i+1])
	} else {
		end = totalPoints
	}
	return start, end
}

func shpTypeFor(g geom.T) shp.ShapeType {
	switch g.(type) {
	case *geom.Point, *geom.MultiPoint:
		return shp.POINT
	case *geom.LineString, *geom.MultiLineString:
		return shp.POLYLINE
	default:
		return shp.POLYGON
	}
}

// geomToShape converts a go-geom geometry back to a go-shp shape of the
// requested type. Mixed-type collections degrade to nil and are skipped by
// the writer.
func geomToShape(g geom.T, shapeType shp.ShapeType) shp.Shape {
	switch shapeType {
	case shp.POINT:
		if p, ok := g.(*geom.Point); ok {
			return &shp.Point{X: p.X(), Y: p.Y()}
		}
	case shp.POLYLINE:
		var parts [][]shp.Point
		switch t := g.(type) {
		case *geom.LineString:
			parts = append(parts, coordsToShpPoints(t.FlatCoords(), t.Stride()))
		case *geom.MultiLineString:
			for i := 0; i < t.NumLineStrings(); i++ {
				ls := t.LineString(i)
				parts = append(parts, coordsToShpPoints(ls.FlatCoords(), ls.Stride()))
			}
		}
		if len(parts) > 0 {
			return shp.NewPolyLine(parts)
		}
	case shp.POLYGON:
		var parts [][]shp.Point
		switch t := g.(type) {
		case *geom.Polygon:
			for i := 0; i < t.NumLinearRings(); i++ {
				r := t.LinearRing(i)
				parts = append(parts, coordsToShpPoints(r.FlatCoords(), r.Stride()))
			}
		case *geom.MultiPolygon:
			for i := 0; i < t.NumPolygons(); i++ {
				poly := t.Polygon(i)
				for j := 0; j < poly.NumLinearRings(); j++ {
					r := poly.LinearRing(j)
					parts = append(parts, coordsToShpPoints(r.FlatCoords(), r.Stride()))
				}
			}
		}
		if len(parts) > 0 {
			pl := shp.NewPolyLine(parts)
			poly := shp.Polygon(*pl)
			return &poly
		}
	}
	return nil
}

func coordsToShpPoints(flat []float64, stride int) []shp.Point {
	pts := make([]shp.Point, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		pts = append(pts, shp.Point{X: flat[i], Y: flat[i+1]})
	}
	return pts
}
