package layer

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// The on-disk raster format is the ESRI ASCII grid: a six-line header
// followed by rows north to south. The header has no CRS slot, so the EPSG
// code is kept in a sidecar .prj file next to the .asc.

// WriteASCIIGrid writes the raster data for grid g to w.
func WriteASCIIGrid(w io.Writer, g Grid, data []float64, nodata float64) error {
	if len(data) != g.NX*g.NY {
		return eris.Errorf("layer: data length %d does not match %dx%d grid", len(data), g.NX, g.NY)
	}
	bw := bufio.NewWriter(w)
	_, minY, _, _ := g.Bounds()
	fmt.Fprintf(bw, "ncols %d\n", g.NX)
	fmt.Fprintf(bw, "nrows %d\n", g.NY)
	fmt.Fprintf(bw, "xllcorner %g\n", g.OriginX)
	fmt.Fprintf(bw, "yllcorner %g\n", minY)
	fmt.Fprintf(bw, "cellsize %g\n", g.CellWidth)
	fmt.Fprintf(bw, "NODATA_value %g\n", nodata)
	for row := 0; row < g.NY; row++ {
		for col := 0; col < g.NX; col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v := data[row*g.NX+col]
			if math.IsNaN(v) {
				v = nodata
			}
			bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return eris.Wrap(bw.Flush(), "layer: write ascii grid")
}

// ReadASCIIGrid parses an ESRI ASCII grid. The returned grid carries CRS 0;
// callers supply the CRS from the sidecar .prj or configuration.
func ReadASCIIGrid(r io.Reader) (Grid, []float64, float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	header := map[string]float64{}
	order := []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize", "nodata_value"}
	for i := 0; i < len(order); i++ {
		if !sc.Scan() {
			return Grid{}, nil, 0, eris.New("layer: truncated ascii grid header")
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			return Grid{}, nil, 0, eris.Errorf("layer: malformed header line %q", sc.Text())
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Grid{}, nil, 0, eris.Wrapf(err, "layer: header value %q", fields[1])
		}
		header[strings.ToLower(fields[0])] = v
	}

	nx, ny := int(header["ncols"]), int(header["nrows"])
	cell := header["cellsize"]
	g := Grid{
		OriginX:    header["xllcorner"],
		OriginY:    header["yllcorner"] + float64(ny)*cell,
		CellWidth:  cell,
		CellHeight: -cell,
		NX:         nx,
		NY:         ny,
	}
	if err := g.Validate(); err != nil {
		return Grid{}, nil, 0, err
	}

	nodata := header["nodata_value"]
	data := make([]float64, 0, nx*ny)
	for sc.Scan() {
		for _, f := range strings.Fields(sc.Text()) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return Grid{}, nil, 0, eris.Wrapf(err, "layer: cell value %q", f)
			}
			data = append(data, v)
		}
	}
	if err := sc.Err(); err != nil {
		return Grid{}, nil, 0, eris.Wrap(err, "layer: read ascii grid")
	}
	if len(data) != nx*ny {
		return Grid{}, nil, 0, eris.Errorf("layer: expected %d cells, read %d", nx*ny, len(data))
	}
	return g, data, nodata, nil
}

func writeASCIIGridFile(path string, g Grid, data []float64, nodata float64) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "layer: create %s", path)
	}
	defer func() { _ = f.Close() }()
	if err := WriteASCIIGrid(f, g, data, nodata); err != nil {
		return eris.Wrapf(err, "layer: write %s", path)
	}
	prj := strings.TrimSuffix(path, ".asc") + ".prj"
	if err := os.WriteFile(prj, []byte(fmt.Sprintf("EPSG:%d\n", g.CRS)), 0o644); err != nil {
		return eris.Wrapf(err, "layer: write %s", prj)
	}
	return nil
}

// LoadRaster reads a raster layer from an ESRI ASCII grid file. The layer's
// CRS is taken from the sidecar .prj when present, otherwise left zero.
func LoadRaster(spec Spec, path string) (*RasterLayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open %s", path)
	}
	defer func() { _ = f.Close() }()

	g, data, nodata, err := ReadASCIIGrid(f)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: read %s", path)
	}

	prj := strings.TrimSuffix(path, ".asc") + ".prj"
	if b, prjErr := os.ReadFile(prj); prjErr == nil {
		var epsg int
		if _, scanErr := fmt.Sscanf(strings.TrimSpace(string(b)), "EPSG:%d", &epsg); scanErr == nil {
			g.CRS = epsg
		}
	}

	spec.Path = path
	return &RasterLayer{Spec: spec, Grid: g, Data: data, NoData: nodata}, nil
}
