package main

import (
	"github.com/spf13/cobra"
)

var netcostCmd = &cobra.Command{
	Use:   "netcost",
	Short: "Compute per-point net costs for every technology",
	Long: `Runs the preparation, extraction and calibration stages, then evaluates
the net cost of every configured cooking technology at every populated
cell. Results land in the configured store and as CSV under the output
directory.

Examples:
  stoveplan netcost --region nepal`,
	RunE: runNetCost,
}

func init() {
	netcostCmd.Flags().String("manifest", "data/layers.yaml", "layer manifest file")
	netcostCmd.Flags().String("region", "", "region label recorded with the run")
	_ = netcostCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(netcostCmd)
}

func runNetCost(cmd *cobra.Command, args []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	region, _ := cmd.Flags().GetString("region")
	return runAnalysis(cmd.Context(), manifestPath, region, "netcosts.csv")
}
