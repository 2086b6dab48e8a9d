// Package pipeline orchestrates the geospatial preparation stages: layers
// register under (category, name), adopt a shared base grid, and move
// through mask, align, reproject, distance and normalize steps in parallel,
// persisting their artifacts after each step.
package pipeline

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/stoveplan/internal/layer"
)

// ErrNoMask is returned when a mask operation runs before a boundary has
// been set.
var ErrNoMask = eris.New("pipeline: no mask boundary set")

// ErrNoBase is returned when a grid-dependent operation runs before any base
// layer has established the grid.
var ErrNoBase = eris.New("pipeline: no base layer registered")

// Selection names the layers an operation applies to: every registered
// layer, or an explicit per-category list.
type Selection struct {
	All   bool
	Names map[string][]string
}

// SelectAll matches every registered layer.
func SelectAll() Selection { return Selection{All: true} }

// Select matches the named layers per category.
func Select(names map[string][]string) Selection { return Selection{Names: names} }

// Pipeline is the layer registry and stage runner of one analysis run. All
// collaborators are passed in explicitly; the zero value is not usable, use
// New.
type Pipeline struct {
	layers   map[string]map[string]layer.Layer
	base     layer.Layer
	grid     layer.Grid
	hasGrid  bool
	boundary *layer.VectorLayer
	outDir   string
}

// New returns an empty pipeline writing layer artifacts under outDir.
func New(outDir string) *Pipeline {
	return &Pipeline{
		layers: make(map[string]map[string]layer.Layer),
		outDir: outDir,
	}
}

// SetMask sets the boundary polygon used by MaskAll.
func (p *Pipeline) SetMask(boundary *layer.VectorLayer) {
	p.boundary = boundary
}

// Grid returns the base grid adopted by the pipeline.
func (p *Pipeline) Grid() (layer.Grid, error) {
	if !p.hasGrid {
		return layer.Grid{}, ErrNoBase
	}
	return p.grid, nil
}

// Base returns the base layer, nil when none was registered.
func (p *Pipeline) Base() layer.Layer { return p.base }

// Register inserts the layer under its (category, name) key, replacing any
// previous entry. The first base raster establishes the pipeline grid. A
// later base registration with a different CRS or a cell size outside the
// tolerance is reprojected and conformed to the established grid; within
// tolerance it is adopted as-is. The grid itself never changes once set.
func (p *Pipeline) Register(l layer.Layer, base bool) error {
	spec := l.LayerSpec()
	if spec.Category == "" || spec.Name == "" {
		return eris.New("pipeline: layer category and name are required")
	}
	if base {
		r, ok := l.(*layer.RasterLayer)
		if !ok {
			return eris.Errorf("pipeline: base layer %s/%s must be a raster", spec.Category, spec.Name)
		}
		if !p.hasGrid {
			p.grid = r.Grid
			p.hasGrid = true
		} else if r.Grid.CRS != p.grid.CRS || !r.Grid.SameResolution(p.grid) {
			if err := r.Reproject(p.grid.CRS); err != nil {
				return err
			}
			if err := r.Align(p.grid); err != nil {
				return err
			}
		}
		p.base = l
	}
	if _, ok := p.layers[spec.Category]; !ok {
		p.layers[spec.Category] = make(map[string]layer.Layer)
	}
	p.layers[spec.Category][spec.Name] = l
	zap.L().Debug("pipeline: layer registered",
		zap.String("category", spec.Category),
		zap.String("name", spec.Name),
		zap.Bool("base", base))
	return nil
}

// Layers returns every registered layer in registry order.
func (p *Pipeline) Layers() []layer.Layer {
	out, _ := p.resolve(SelectAll())
	return out
}

// Layer returns one registered layer.
func (p *Pipeline) Layer(category, name string) (layer.Layer, error) {
	l, ok := p.layers[category][name]
	if !ok {
		return nil, eris.Errorf("pipeline: no layer %s/%s registered", category, name)
	}
	return l, nil
}

// resolve expands a selection to concrete layers. Unknown names are fatal.
func (p *Pipeline) resolve(sel Selection) ([]layer.Layer, error) {
	var out []layer.Layer
	if sel.All {
		for _, byName := range p.layers {
			for _, l := range byName {
				out = append(out, l)
			}
		}
		return out, nil
	}
	for category, names := range sel.Names {
		for _, name := range names {
			l, err := p.Layer(category, name)
			if err != nil {
				return nil, err
			}
			out = append(out, l)
		}
	}
	return out, nil
}

// dir returns the artifact directory of one layer.
func (p *Pipeline) dir(l layer.Layer) string {
	spec := l.LayerSpec()
	return filepath.Join(p.outDir, spec.Category, spec.Name)
}

// forEach runs fn over the selected layers in parallel and persists each
// layer's artifacts on success. The first failing layer aborts the stage.
func (p *Pipeline) forEach(sel Selection, stage string, fn func(layer.Layer) error) error {
	selected, err := p.resolve(sel)
	if err != nil {
		return err
	}
	var g errgroup.Group
	for _, l := range selected {
		g.Go(func() error {
			spec := l.LayerSpec()
			if err := fn(l); err != nil {
				return eris.Wrapf(err, "pipeline: %s %s/%s", stage, spec.Category, spec.Name)
			}
			if err := l.Save(p.dir(l)); err != nil {
				return eris.Wrapf(err, "pipeline: save %s/%s", spec.Category, spec.Name)
			}
			zap.L().Debug("pipeline: stage done",
				zap.String("stage", stage),
				zap.String("category", spec.Category),
				zap.String("name", spec.Name))
			return nil
		})
	}
	return g.Wait()
}

// MaskAll clips the selected layers to the boundary polygon.
func (p *Pipeline) MaskAll(sel Selection) error {
	if p.boundary == nil {
		return ErrNoMask
	}
	return p.forEach(sel, "mask", func(l layer.Layer) error {
		return l.Mask(p.boundary)
	})
}

// ReprojectAll converts the selected layers to the base grid's CRS.
func (p *Pipeline) ReprojectAll(sel Selection) error {
	grid, err := p.Grid()
	if err != nil {
		return err
	}
	return p.forEach(sel, "reproject", func(l layer.Layer) error {
		return l.Reproject(grid.CRS)
	})
}

// AlignAll conforms the selected layers to the base grid.
func (p *Pipeline) AlignAll(sel Selection) error {
	grid, err := p.Grid()
	if err != nil {
		return err
	}
	return p.forEach(sel, "align", func(l layer.Layer) error {
		return l.Align(grid)
	})
}

// DistanceAll derives the distance surfaces of the selected layers. Layers
// without a distance kind pass through untouched.
func (p *Pipeline) DistanceAll(sel Selection) error {
	grid, err := p.Grid()
	if err != nil {
		return err
	}
	return p.forEach(sel, "distance", func(l layer.Layer) error {
		_, err := l.DistanceRaster(grid)
		return err
	})
}

// NormalizeAll rescales the selected layers' derived values into [0,1].
func (p *Pipeline) NormalizeAll(sel Selection) error {
	return p.forEach(sel, "normalize", layer.Layer.Normalize)
}

// Prepare runs the full preparation sequence over the selected layers:
// mask, reproject, align, distance, normalize. Masking is skipped when no
// boundary is set.
func (p *Pipeline) Prepare(sel Selection) error {
	if p.boundary != nil {
		if err := p.MaskAll(sel); err != nil {
			return err
		}
	}
	if err := p.ReprojectAll(sel); err != nil {
		return err
	}
	if err := p.AlignAll(sel); err != nil {
		return err
	}
	if err := p.DistanceAll(sel); err != nil {
		return err
	}
	return p.NormalizeAll(sel)
}
