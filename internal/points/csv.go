package points

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
)

// WriteCSV writes the table as semicolon-delimited records: cell-center
// coordinates first, then every column in insertion order.
func (t *Table) WriteCSV(w io.Writer) error {
	if !t.Extracted() {
		return ErrNotExtracted
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := append([]string{"X", "Y"}, t.order...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "points: write csv header")
	}
	record := make([]string, len(header))
	for i, p := range t.Points {
		record[0] = strconv.FormatFloat(p.X, 'f', -1, 64)
		record[1] = strconv.FormatFloat(p.Y, 'f', -1, 64)
		for j, name := range t.order {
			record[j+2] = strconv.FormatFloat(t.columns[name][i], 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrapf(err, "points: write csv row %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "points: flush csv")
}
