package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sells-group/stoveplan/internal/layer"
)

// ManifestEntry describes one input layer of a run.
type ManifestEntry struct {
	Category      string  `mapstructure:"category"`
	Name          string  `mapstructure:"name"`
	Type          string  `mapstructure:"type"` // raster or vector
	Path          string  `mapstructure:"path"`
	Base          bool    `mapstructure:"base"`
	Boundary      bool    `mapstructure:"boundary"`
	CRS           int     `mapstructure:"crs"`
	Query         string  `mapstructure:"query"`
	Distance      string  `mapstructure:"distance"`
	DistanceLimit float64 `mapstructure:"distance_limit"`
	FrictionPath  string  `mapstructure:"friction"`
	Normalization string  `mapstructure:"normalization"`
	Inverse       bool    `mapstructure:"inverse"`
	Resample      string  `mapstructure:"resample"`
}

// Manifest is the layer list of a run.
type Manifest struct {
	Layers []ManifestEntry `mapstructure:"layers"`
}

// ReadManifest parses a YAML layer manifest.
func ReadManifest(path string) (*Manifest, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, eris.Wrapf(err, "pipeline: read manifest %s", path)
	}
	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse manifest %s", path)
	}
	if len(m.Layers) == 0 {
		return nil, eris.Errorf("pipeline: manifest %s lists no layers", path)
	}
	return &m, nil
}

// spec converts the entry into a layer spec.
func (e ManifestEntry) spec() layer.Spec {
	return layer.Spec{
		Category:      e.Category,
		Name:          e.Name,
		Path:          e.Path,
		Normalization: layer.Normalization(e.Normalization),
		Inverse:       e.Inverse,
		Distance:      layer.DistanceKind(e.Distance),
		DistanceLimit: e.DistanceLimit,
		Resample:      layer.Resampling(e.Resample),
	}
}

// Load reads every manifest layer from dataDir and registers it on the
// pipeline. Vector entries flagged as boundary become the mask polygon.
func (m *Manifest) Load(p *Pipeline, dataDir string) error {
	for _, e := range m.Layers {
		path := e.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, path)
		}
		switch strings.ToLower(e.Type) {
		case "raster":
			r, err := layer.LoadRaster(e.spec(), path)
			if err != nil {
				return err
			}
			if e.FrictionPath != "" {
				fpath := e.FrictionPath
				if !filepath.IsAbs(fpath) {
					fpath = filepath.Join(dataDir, fpath)
				}
				friction, err := layer.LoadRaster(layer.Spec{
					Category: e.Category,
					Name:     e.Name + "-friction",
				}, fpath)
				if err != nil {
					return err
				}
				r.Friction = friction
			}
			if err := p.Register(r, e.Base); err != nil {
				return err
			}
		case "vector":
			v, err := layer.LoadVector(e.spec(), path, e.CRS)
			if err != nil {
				return err
			}
			v.Query = e.Query
			if err := v.ApplyQuery(); err != nil {
				return err
			}
			if e.Boundary {
				p.SetMask(v)
			}
			if err := p.Register(v, false); err != nil {
				return err
			}
		default:
			return eris.Errorf("pipeline: layer %s/%s: unknown type %q", e.Category, e.Name, e.Type)
		}
	}
	zap.L().Info("pipeline: manifest loaded", zap.Int("layers", len(m.Layers)))
	return nil
}
