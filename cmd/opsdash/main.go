// Package main is the entry point for opsdash. The root command runs the
// dashboard TUI; subcommands validate, watch and seed work without a terminal UI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/j-veylop/opsdash-tui/internal/app"
	"github.com/j-veylop/opsdash-tui/internal/config"
	"github.com/j-veylop/opsdash-tui/internal/logger"
	"github.com/j-veylop/opsdash-tui/internal/services"
	"github.com/j-veylop/opsdash-tui/internal/ui/tabs/dashboard"
	"github.com/j-veylop/opsdash-tui/internal/ui/tabs/info"
	"github.com/j-veylop/opsdash-tui/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:   "opsdash",
		Short: "opsdash - real-time operations dashboard",
		Long: `opsdash follows bookings, conversations and clients in a data store and
keeps today's metrics up to date: bookings today, revenue today, pending
messages and active customers.

Configuration is read from the environment and from .env files in:
  - the current directory
  - ~/.config/opsdash/.env
Flags override both.`,
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), v)
		},
	}

	root.SetVersionTemplate("{{.Version}}\n")
	bindFlags(root, v)

	root.AddCommand(
		newValidateCmd(v),
		newWatchCmd(v),
		newSeedCmd(v),
		newVersionCmd(),
	)
	return root
}

// bindFlags registers the persistent flags and binds each to its config key.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.String("source", "", "data source: sqlite, mongo, file or memory")
	flags.String("db", "", "SQLite database path")
	flags.String("mongo-uri", "", "MongoDB connection URI")
	flags.String("mongo-db", "", "MongoDB database name")
	flags.String("data-dir", "", "directory of JSON collection files")
	flags.String("session-file", "", "authorization token file (empty: always authorized)")
	flags.String("timezone", "", "IANA zone the day boundaries are computed in")
	flags.String("log-level", "", "debug, info, warn or error")

	for key, name := range map[string]string{
		config.KeySource:        "source",
		config.KeyDatabasePath:  "db",
		config.KeyMongoURI:      "mongo-uri",
		config.KeyMongoDatabase: "mongo-db",
		config.KeyDataDir:       "data-dir",
		config.KeySessionFile:   "session-file",
		config.KeyTimezone:      "timezone",
		config.KeyLogLevel:      "log-level",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// setup loads configuration and points the logger at the configured file.
func setup(v *viper.Viper) (*config.Config, io.Closer, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	closer, err := logger.Init(logger.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return cfg, closer, nil
}

func runTUI(ctx context.Context, v *viper.Viper) error {
	cfg, logCloser, err := setup(v)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	svcManager, err := services.NewManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)

	state := model.GetState()
	model.SetTabs([]app.Tab{
		dashboard.New(state, model.GetCommands(), cfg.Location),
		info.New(state, cfg, svcManager.SourceDescription()),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	svcManager.Start()

	logger.Info("dashboard started", "source", svcManager.SourceDescription())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
