// Package config loads credgen settings from environment variables.
// Every setting has a default, so a bare environment is a valid
// configuration; the PostgreSQL layout store is used only when a database
// URL is set.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Render   RenderConfig
	Batch    BatchConfig
	Server   ServerConfig
	Storage  StorageConfig
	Snapshot SnapshotConfig
	Logging  LoggingConfig
}

// RenderConfig holds compositing settings.
type RenderConfig struct {
	// Interpolation is the photo scaling kernel: catmullrom, bilinear,
	// approxbilinear or nearest (default: catmullrom)
	Interpolation string `env:"RENDER_INTERPOLATION" default:"catmullrom"`
}

// BatchConfig holds batch generation settings.
type BatchConfig struct {
	// Workers bounds concurrent row renders; 0 uses GOMAXPROCS (default: 0)
	Workers int `env:"BATCH_WORKERS" default:"0"`

	// Partial keeps rendering after a row fails and reports failed rows (default: false)
	Partial bool `env:"BATCH_PARTIAL_SUCCESS" default:"false"`

	// Timeout bounds a whole batch (default: 10m)
	Timeout time.Duration `env:"BATCH_TIMEOUT" default:"10m"`

	// OutputDir is where generate writes credentials (default: credenciales)
	OutputDir string `env:"BATCH_OUTPUT_DIR" default:"credenciales"`

	// MaxWaitTime is how long the server waits for a running batch (default: 5s)
	MaxWaitTime time.Duration `env:"BATCH_MAX_WAIT_TIME" default:"5s"`
}

// ServerConfig holds preview server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response; batch
	// downloads can be slow (default: 0, no limit)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 10m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"10m"`

	// MaxUploadSize bounds one upload request in bytes (default: 64MB)
	MaxUploadSize int64 `env:"SERVER_MAX_UPLOAD_SIZE" default:"67108864"`

	// DisplayWidth is the preview width in CSS pixels (default: 800)
	DisplayWidth int `env:"PREVIEW_DISPLAY_WIDTH" default:"800"`
}

// StorageConfig holds layout persistence settings.
type StorageConfig struct {
	// LayoutFile is the layout document used when no database is set
	// (default: credgen-layout.json)
	LayoutFile string `env:"LAYOUT_FILE" default:"credgen-layout.json"`

	// LayoutName selects the stored layout in the database (default: default)
	LayoutName string `env:"LAYOUT_NAME" default:"default"`

	// DatabaseURL is an optional PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL.
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of pooled connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time of a connection (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UsesDatabase reports whether layouts are stored in PostgreSQL.
func (c StorageConfig) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// SnapshotConfig holds headless browser settings for preview screenshots.
type SnapshotConfig struct {
	// Timeout bounds one screenshot (default: 30s)
	Timeout time.Duration `env:"SNAPSHOT_TIMEOUT" default:"30s"`

	// ChromePath overrides the browser executable
	ChromePath string `env:"CHROME_PATH"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
