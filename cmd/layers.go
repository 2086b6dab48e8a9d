package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/stoveplan/internal/pipeline"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Manage geospatial input layers",
}

var layersPrepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Mask, reproject, align and derive distance surfaces for all layers",
	Long: `Reads the layer manifest, loads every raster and vector layer and runs
the full preparation sequence: mask to the boundary polygon, reproject to
the analysis CRS, align to the base grid, derive travel-time and proximity
surfaces and normalize them. Artifacts are written per layer under the
output directory.

Examples:
  # Prepare every layer in the manifest
  stoveplan layers prepare --manifest data/layers.yaml`,
	RunE: runLayersPrepare,
}

func init() {
	layersPrepareCmd.Flags().String("manifest", "data/layers.yaml", "layer manifest file")
	layersCmd.AddCommand(layersPrepareCmd)
	rootCmd.AddCommand(layersCmd)
}

func runLayersPrepare(cmd *cobra.Command, args []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")

	m, err := pipeline.ReadManifest(manifestPath)
	if err != nil {
		return err
	}
	p := pipeline.New(cfg.Output.Dir)
	if err := m.Load(p, cfg.GIS.DataDir); err != nil {
		return err
	}
	if err := p.Prepare(pipeline.SelectAll()); err != nil {
		return err
	}
	zap.L().Info("layers prepared",
		zap.String("manifest", manifestPath),
		zap.String("output", cfg.Output.Dir))
	return nil
}
