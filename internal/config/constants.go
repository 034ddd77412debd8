package config

import "time"

// Configuration keys. Each is read from the environment (after .env files)
// and may be overridden by a bound command-line flag.
const (
	KeySource        = "SOURCE"
	KeyDatabasePath  = "DATABASE_PATH"
	KeyMongoURI      = "MONGO_URI"
	KeyMongoDatabase = "MONGO_DATABASE"
	KeyDataDir       = "DATA_DIR"
	KeySessionFile   = "SESSION_FILE"
	KeySettleDelay   = "SETTLE_DELAY"
	KeyPollInterval  = "POLL_INTERVAL"
	KeyTimezone      = "TIMEZONE"
	KeyDesktopNotify = "DESKTOP_NOTIFY"
	KeyLogPath       = "LOG_PATH"
	KeyLogLevel      = "LOG_LEVEL"
)

// Default values
const (
	defaultSettleDelay   = time.Second
	defaultPollInterval  = 5 * time.Second
	defaultMongoDatabase = "opsdash"
	defaultLogLevel      = "info"
	appDirName           = "opsdash"
)
