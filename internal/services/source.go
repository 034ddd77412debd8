package services

import (
	"context"
	"fmt"
	"time"

	"github.com/j-veylop/opsdash-tui/internal/config"
	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/datasource/jsonfile"
	"github.com/j-veylop/opsdash-tui/internal/datasource/memory"
	"github.com/j-veylop/opsdash-tui/internal/datasource/mongodb"
	"github.com/j-veylop/opsdash-tui/internal/db"
)

// OpenSource opens the backend selected by cfg. The in-memory backend starts
// with demo data for today.
func OpenSource(ctx context.Context, cfg *config.Config) (datasource.DataSource, error) {
	switch cfg.Source {
	case config.SourceSQLite:
		database, err := db.Open(ctx, db.Options{Path: cfg.DatabasePath, PollInterval: cfg.PollInterval})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database, nil

	case config.SourceMongo:
		return mongodb.Connect(ctx, mongodb.Options{
			URI:          cfg.MongoURI,
			Database:     cfg.MongoDatabase,
			PollInterval: cfg.PollInterval,
		})

	case config.SourceFile:
		store, err := jsonfile.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open data directory: %w", err)
		}
		return store, nil

	case config.SourceMemory:
		store := memory.New()
		if err := Seed(ctx, store, time.Now(), cfg.Location); err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}
