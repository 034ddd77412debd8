// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Source selects the DataSource backend.
type Source string

const (
	SourceSQLite Source = "sqlite"
	SourceMongo  Source = "mongo"
	SourceFile   Source = "file"
	SourceMemory Source = "memory"
)

// Config holds the application configuration.
type Config struct {
	Source        Source
	DatabasePath  string
	MongoURI      string
	MongoDatabase string
	DataDir       string
	// SessionFile is the authorization token file. Empty means always
	// authorized.
	SessionFile   string
	SettleDelay   time.Duration
	PollInterval  time.Duration
	Location      *time.Location
	DesktopNotify bool
	LogPath       string
	LogLevel      string
}

// NewViper returns a viper instance reading the environment, with every
// default registered. Commands bind their flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(KeySource, string(SourceSQLite))
	v.SetDefault(KeyDatabasePath, defaultPath("opsdash.db"))
	v.SetDefault(KeyMongoDatabase, defaultMongoDatabase)
	v.SetDefault(KeyDataDir, defaultPath("data"))
	v.SetDefault(KeyTimezone, "Local")
	v.SetDefault(KeyDesktopNotify, false)
	v.SetDefault(KeyLogPath, defaultPath("opsdash.log"))
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	return v
}

// Load reads .env files into the environment, then resolves every key
// through v. A nil v uses NewViper.
func Load(v *viper.Viper) (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	if v == nil {
		v = NewViper()
	}

	loc, err := parseLocation(v.GetString(KeyTimezone))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Source:        Source(strings.ToLower(strings.TrimSpace(v.GetString(KeySource)))),
		DatabasePath:  v.GetString(KeyDatabasePath),
		MongoURI:      v.GetString(KeyMongoURI),
		MongoDatabase: v.GetString(KeyMongoDatabase),
		DataDir:       v.GetString(KeyDataDir),
		SessionFile:   v.GetString(KeySessionFile),
		SettleDelay:   getDuration(v, KeySettleDelay, defaultSettleDelay),
		PollInterval:  getDuration(v, KeyPollInterval, defaultPollInterval),
		Location:      loc,
		DesktopNotify: v.GetBool(KeyDesktopNotify),
		LogPath:       v.GetString(KeyLogPath),
		LogLevel:      v.GetString(KeyLogLevel),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	switch cfg.Source {
	case SourceSQLite:
		if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
			return nil, err
		}
	case SourceFile:
		if err := ensureDir(cfg.DataDir); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Source {
	case SourceSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("%s is required for source %q", KeyDatabasePath, c.Source)
		}
	case SourceMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%s is required for source %q", KeyMongoURI, c.Source)
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("%s is required for source %q", KeyMongoDatabase, c.Source)
		}
	case SourceFile:
		if c.DataDir == "" {
			return fmt.Errorf("%s is required for source %q", KeyDataDir, c.Source)
		}
	case SourceMemory:
	default:
		return fmt.Errorf("unknown %s %q (want sqlite, mongo, file or memory)", KeySource, c.Source)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory location
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appDirName, ".env"))
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
		grandparent := filepath.Dir(parent)
		paths = append(paths, filepath.Join(grandparent, ".env"))
	}

	return paths
}

// defaultPath places name in the per-user application directory.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", appDirName, name)
}

// getDuration reads a duration key or returns the default.
// Accepts values like "30s", "1m", "500ms", or bare seconds.
func getDuration(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func parseLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", KeyTimezone, name, err)
	}
	return loc, nil
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
