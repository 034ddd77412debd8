package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/services"
	"github.com/j-veylop/opsdash-tui/internal/version"
)

func newSeedCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace the configured store's content with demo data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logCloser, err := setup(v)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			src, err := services.OpenSource(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer src.Close()

			w, ok := src.(datasource.Writer)
			if !ok {
				return fmt.Errorf("source %q cannot be seeded", cfg.Source)
			}
			if err := services.Seed(cmd.Context(), w, time.Now(), cfg.Location); err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", cfg.Source)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}
