package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/stoveplan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "stoveplan",
	Short: "Geospatial clean-cooking benefit-cost analysis",
	Long: "Prepares geospatial demand and supply layers, calibrates population\n" +
		"against national statistics and ranks cooking technologies per grid cell\n" +
		"by net cost: levelized cooking cost minus monetized health, time and\n" +
		"carbon benefits.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
