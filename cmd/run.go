package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/stoveplan/internal/calibrate"
	"github.com/sells-group/stoveplan/internal/db"
	"github.com/sells-group/stoveplan/internal/layer"
	"github.com/sells-group/stoveplan/internal/pipeline"
	"github.com/sells-group/stoveplan/internal/points"
	"github.com/sells-group/stoveplan/internal/scenario"
	"github.com/sells-group/stoveplan/internal/store"
	"github.com/sells-group/stoveplan/internal/tech"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full analysis end to end",
	Long: `Prepares every layer, extracts the point table, calibrates population
and urban classification, computes the per-point net cost of every
technology and persists the results.

Examples:
  stoveplan run --region nepal --manifest data/layers.yaml`,
	RunE: runFull,
}

func init() {
	runCmd.Flags().String("manifest", "data/layers.yaml", "layer manifest file")
	runCmd.Flags().String("region", "", "region label recorded with the run")
	_ = runCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(runCmd)
}

func runFull(cmd *cobra.Command, args []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	region, _ := cmd.Flags().GetString("region")
	return runAnalysis(cmd.Context(), manifestPath, region, "results.csv")
}

// runAnalysis is the full stage sequence shared by the run and netcost
// commands: prepare, extract, calibrate, evaluate, persist.
func runAnalysis(ctx context.Context, manifestPath, region, csvName string) error {
	p, err := preparePipeline(manifestPath)
	if err != nil {
		return err
	}
	tbl, err := extractTable(p)
	if err != nil {
		return err
	}
	specs, err := loadSpecs()
	if err != nil {
		return err
	}
	result, err := calibrateTable(tbl, p, specs)
	if err != nil {
		return err
	}
	techs, err := loadTechs()
	if err != nil {
		return err
	}
	if err := computeNetCosts(tbl, specs, techs); err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	run, err := st.CreateRun(ctx, region)
	if err != nil {
		return err
	}
	if err := st.SaveCalibration(ctx, run.ID, result); err != nil {
		return err
	}
	if err := st.SaveNetCosts(ctx, run.ID, netCostRows(tbl, techs)); err != nil {
		return err
	}
	if err := writeTableCSV(tbl, filepath.Join(cfg.Output.Dir, csvName)); err != nil {
		return err
	}
	zap.L().Info("run complete",
		zap.String("run_id", run.ID),
		zap.String("region", region),
		zap.Int("points", tbl.Len()),
		zap.Int("technologies", len(techs)))
	return nil
}

// preparePipeline loads the layer manifest and runs the full preparation
// sequence over every layer.
func preparePipeline(manifestPath string) (*pipeline.Pipeline, error) {
	m, err := pipeline.ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(cfg.Output.Dir)
	if err := m.Load(p, cfg.GIS.DataDir); err != nil {
		return nil, err
	}
	if err := p.Prepare(pipeline.SelectAll()); err != nil {
		return nil, err
	}
	return p, nil
}

// extractTable builds the point table from the base population raster and
// fills one column per prepared raster layer: indexed reads for aligned
// layers, spatial sampling otherwise.
func extractTable(p *pipeline.Pipeline) (*points.Table, error) {
	base, ok := p.Base().(*layer.RasterLayer)
	if !ok || base == nil {
		return nil, eris.New("stoveplan: the manifest must flag a base population raster")
	}
	tbl := points.NewTable()
	if err := tbl.Extract(base); err != nil {
		return nil, err
	}
	grid, err := p.Grid()
	if err != nil {
		return nil, err
	}
	for _, l := range p.Layers() {
		var r *layer.RasterLayer
		switch src := l.(type) {
		case *layer.RasterLayer:
			r = src
		case *layer.VectorLayer:
			// Vector layers contribute through their derived distance
			// surface once DistanceAll has run.
			r = src.Derived
		}
		if r == nil || r == base {
			continue
		}
		if r.Grid.Equal(grid) {
			err = tbl.ReadColumn(r)
		} else {
			err = tbl.SampleColumn(r)
		}
		if err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// calibrateTable scales population to the national total and fits the urban
// classification.
func calibrateTable(tbl *points.Table, p *pipeline.Pipeline, specs scenario.Specs) (calibrate.Result, error) {
	grid, err := p.Grid()
	if err != nil {
		return calibrate.Result{}, err
	}
	calSpec, err := scenario.CalibrationSpec(specs, grid.CellArea()/1e6)
	if err != nil {
		return calibrate.Result{}, err
	}
	if err := calibrate.Population(tbl, calSpec.PopulationStartYear); err != nil {
		return calibrate.Result{}, err
	}
	return calibrate.Urban(tbl, calSpec)
}

// computeNetCosts evaluates every technology over the point table.
func computeNetCosts(tbl *points.Table, specs scenario.Specs, techs []*tech.Technology) error {
	inputs, err := scenario.EngineInputs(specs)
	if err != nil {
		return err
	}
	eng := &tech.Engine{
		Scenario:           inputs,
		RoadTravelColumn:   specs.StringOr("road_travel_column", "roads"),
		WalkTravelColumn:   specs.StringOr("walk_travel_column", "forest"),
		TransportSurcharge: specs.FloatOr("transport_surcharge", 0),
	}
	return eng.ApplyAll(tbl, techs)
}

func loadSpecs() (scenario.Specs, error) {
	f, err := os.Open(cfg.Scenario.SpecsFile)
	if err != nil {
		return nil, eris.Wrapf(err, "stoveplan: open %s", cfg.Scenario.SpecsFile)
	}
	defer f.Close()
	return scenario.ReadSpecs(f)
}

// loadTechs reads the technology file and returns the entries sorted by
// name for stable processing order.
func loadTechs() ([]*tech.Technology, error) {
	f, err := os.Open(cfg.Scenario.TechsFile)
	if err != nil {
		return nil, eris.Wrapf(err, "stoveplan: open %s", cfg.Scenario.TechsFile)
	}
	defer f.Close()
	byName, err := scenario.ReadTechs(f)
	if err != nil {
		return nil, err
	}
	techs := make([]*tech.Technology, 0, len(byName))
	for _, t := range byName {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		techs = append(techs, t)
	}
	sort.Slice(techs, func(i, j int) bool { return techs[i].Name < techs[j].Name })
	return techs, nil
}

// openStore opens the configured results backend.
func openStore(ctx context.Context) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		st := store.NewPostgres(pool)
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return st, pool.Close, nil
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	}
	return nil, nil, eris.Errorf("stoveplan: unknown store driver %q", cfg.Store.Driver)
}

// netCostRows flattens the per-technology columns into store rows.
func netCostRows(tbl *points.Table, techs []*tech.Technology) []store.NetCostRow {
	rows := make([]store.NetCostRow, 0, tbl.Len()*len(techs))
	for _, t := range techs {
		col, err := tbl.Column(t.Name)
		if err != nil {
			continue
		}
		for i, p := range tbl.Points {
			rows = append(rows, store.NetCostRow{
				X: p.X, Y: p.Y, Technology: t.Name, NetCost: col[i],
			})
		}
	}
	return rows
}

func writeTableCSV(tbl *points.Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "stoveplan: create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "stoveplan: create %s", path)
	}
	defer f.Close()
	return tbl.WriteCSV(f)
}
