package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zoning-audit/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "zoning-audit",
	Short: "Detect zoning violations from elevation models and building footprints",
	Long:  "Estimates building heights from DSM/DTM rasters, joins footprints to zoning parcels, classifies height and setback violations, and renders the results.",
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
