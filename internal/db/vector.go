package db

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"

	"github.com/sells-group/stoveplan/internal/layer"
)

// geomColumn is the geometry column name expected in spatial tables.
const geomColumn = "geom"

// ReadVectorTable reads a whole spatial table into a vector layer. The
// geometry column is fetched as WKB alongside every attribute column; rows
// whose geometry fails to decode are skipped.
func ReadVectorTable(ctx context.Context, pool Pool, spec layer.Spec, table string, crs int) (*layer.VectorLayer, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`SELECT *, ST_AsBinary(%s) AS geom_wkb FROM %s`, geomColumn, table)
	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "db: read table %s", table)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	v := &layer.VectorLayer{Spec: spec, CRS: crs}
	v.Path = table
	var skipped int

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, eris.Wrapf(err, "db: scan row from %s", table)
		}
		feature := layer.Feature{Attrs: make(map[string]any, len(fields))}
		for i, fd := range fields {
			name := string(fd.Name)
			switch name {
			case geomColumn:
				// raw geometry column, superseded by geom_wkb
			case "geom_wkb":
				raw, ok := values[i].([]byte)
				if !ok {
					continue
				}
				g, decErr := wkb.Unmarshal(raw)
				if decErr != nil {
					continue
				}
				feature.Geom = g
			default:
				if values[i] != nil {
					feature.Attrs[name] = values[i]
				}
			}
		}
		if feature.Geom == nil {
			skipped++
			continue
		}
		v.Features = append(v.Features, feature)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "db: iterate rows of %s", table)
	}

	if skipped > 0 {
		zap.L().Debug("db: skipped rows without decodable geometry",
			zap.String("table", table),
			zap.Int("skipped", skipped),
		)
	}
	return v, nil
}
