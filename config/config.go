// Package config provides TOML configuration for the ledger node.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backend names.
const (
	BackendMemory   = "memory"
	BackendLevelDB  = "leveldb"
	BackendBadgerDB = "badgerdb"
)

// DefaultAdminKey is the public key derived from the SHA-256 digest of
// "correct horse battery staple", the administrator of the sample counter service.
const DefaultAdminKey = "506f27b1b4c2403f2602d663a059b0262afd6a5bcda95a08dd96a4614a89f1b0"

// Config is the main configuration for a ledger node.
type Config struct {
	Node       NodeConfig       `toml:"node"`
	Counter    CounterConfig    `toml:"counter"`
	StateStore StateStoreConfig `toml:"statestore"`
	BlockStore BlockStoreConfig `toml:"blockstore"`
	Mempool    MempoolConfig    `toml:"mempool"`
	API        APIConfig        `toml:"api"`
	Blocks     BlocksConfig     `toml:"blocks"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Tracing    TracingConfig    `toml:"tracing"`
	Logging    LoggingConfig    `toml:"logging"`
}

// NodeConfig contains node identity and chain configuration.
type NodeConfig struct {
	// ChainID is the unique identifier for the ledger.
	ChainID string `toml:"chain_id"`
}

// CounterConfig configures the sample counter service.
type CounterConfig struct {
	// AdminKey is the hex-encoded public key allowed to reset the counter.
	AdminKey string `toml:"admin_key"`
}

// StateStoreConfig contains state storage configuration.
type StateStoreConfig struct {
	// Backend is the storage backend to use ("memory" or "leveldb").
	Backend string `toml:"backend"`

	// Path is the directory path for state storage.
	Path string `toml:"path"`

	// CacheSize is the IAVL node cache size.
	CacheSize int `toml:"cache_size"`
}

// BlockStoreConfig contains block storage configuration.
type BlockStoreConfig struct {
	// Backend is the storage backend to use ("memory", "leveldb" or "badgerdb").
	Backend string `toml:"backend"`

	// Path is the directory path for block storage.
	Path string `toml:"path"`
}

// MempoolConfig contains pending pool configuration.
type MempoolConfig struct {
	// MaxTxs is the maximum number of pending transactions.
	MaxTxs int `toml:"max_txs"`

	// MaxBytes is the maximum total encoded size of pending transactions.
	MaxBytes int64 `toml:"max_bytes"`

	// CacheSize is the size of the recently committed transaction hash cache.
	CacheSize int `toml:"cache_size"`
}

// APIConfig contains HTTP API configuration.
type APIConfig struct {
	// PublicAddr is the listen address of the public API.
	PublicAddr string `toml:"public_addr"`

	// PrivateAddr is the listen address of the private (administrative) API.
	PrivateAddr string `toml:"private_addr"`

	// ReadTimeout bounds reading a whole request.
	ReadTimeout Duration `toml:"read_timeout"`

	// ShutdownTimeout bounds graceful shutdown of the API servers.
	ShutdownTimeout Duration `toml:"shutdown_timeout"`

	// RateLimit is the number of public submissions per second allowed
	// per client address (0 = unlimited).
	RateLimit float64 `toml:"rate_limit"`

	// RateBurst is the submission burst allowed per client.
	RateBurst int `toml:"rate_burst"`
}

// BlocksConfig controls the single-node block producer.
type BlocksConfig struct {
	// Interval is the time between block assembly rounds.
	Interval Duration `toml:"interval"`

	// MaxTxs caps the number of transactions per block (0 = unlimited).
	MaxTxs int `toml:"max_txs"`

	// CreateEmpty makes the producer commit blocks even when nothing is pending.
	CreateEmpty bool `toml:"create_empty"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled determines whether metrics collection is active.
	Enabled bool `toml:"enabled"`

	// Namespace is the Prometheus metrics namespace prefix.
	Namespace string `toml:"namespace"`

	// ListenAddr is the address to serve metrics on (e.g., ":9090").
	ListenAddr string `toml:"listen_addr"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled determines whether spans are recorded.
	Enabled bool `toml:"enabled"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `toml:"service_name"`

	// Exporter is one of "none", "stdout", "otlp-grpc", "otlp-http" or "zipkin".
	Exporter string `toml:"exporter"`

	// Endpoint is the collector endpoint for network exporters.
	Endpoint string `toml:"endpoint"`

	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64 `toml:"sample_rate"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `toml:"level"`

	// Format is the log output format ("text" or "json").
	Format string `toml:"format"`

	// Output is the log output destination ("stdout" or "stderr").
	Output string `toml:"output"`
}

// Duration is a wrapper around time.Duration for TOML unmarshaling.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ChainID: "counter-testnet-1",
		},
		Counter: CounterConfig{
			AdminKey: DefaultAdminKey,
		},
		StateStore: StateStoreConfig{
			Backend:   BackendLevelDB,
			Path:      "data/state",
			CacheSize: 10000,
		},
		BlockStore: BlockStoreConfig{
			Backend: BackendLevelDB,
			Path:    "data/blockstore",
		},
		Mempool: MempoolConfig{
			MaxTxs:    5000,
			MaxBytes:  64 << 20, // 64MB
			CacheSize: 10000,
		},
		API: APIConfig{
			PublicAddr:      "127.0.0.1:8200",
			PrivateAddr:     "127.0.0.1:8091",
			ReadTimeout:     Duration(10 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
			RateLimit:       100,
			RateBurst:       200,
		},
		Blocks: BlocksConfig{
			Interval:    Duration(time.Second),
			MaxTxs:      1000,
			CreateEmpty: false,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			Namespace:  "counter",
			ListenAddr: ":9090",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "counterd",
			Exporter:    "none",
			Endpoint:    "localhost:4318",
			SampleRate:  1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadConfig loads configuration from a TOML file.
// Missing values are filled with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validation errors.
var (
	ErrEmptyChainID             = errors.New("chain_id cannot be empty")
	ErrInvalidAdminKey          = errors.New("admin_key must be a hex-encoded 32-byte ed25519 public key")
	ErrInvalidStateBackend      = errors.New("statestore backend must be 'memory' or 'leveldb'")
	ErrEmptyStateStorePath      = errors.New("statestore path cannot be empty")
	ErrInvalidStateCacheSize    = errors.New("statestore cache_size must be non-negative")
	ErrInvalidBlockStoreBackend = errors.New("blockstore backend must be 'memory', 'leveldb' or 'badgerdb'")
	ErrEmptyBlockStorePath      = errors.New("blockstore path cannot be empty")
	ErrInvalidMaxTxs            = errors.New("max_txs must be positive")
	ErrInvalidMaxBytes          = errors.New("max_bytes must be positive")
	ErrInvalidMempoolCacheSize  = errors.New("mempool cache_size must be non-negative")
	ErrEmptyPublicAddr          = errors.New("api public_addr cannot be empty")
	ErrEmptyPrivateAddr         = errors.New("api private_addr cannot be empty")
	ErrInvalidReadTimeout       = errors.New("api read_timeout must be positive")
	ErrInvalidShutdownTimeout   = errors.New("api shutdown_timeout must be positive")
	ErrInvalidRateLimit         = errors.New("api rate_limit and rate_burst must be non-negative")
	ErrInvalidBlockInterval     = errors.New("blocks interval must be positive")
	ErrInvalidBlockMaxTxs       = errors.New("blocks max_txs must be non-negative")
	ErrEmptyMetricsNamespace    = errors.New("metrics namespace cannot be empty when enabled")
	ErrEmptyMetricsListenAddr   = errors.New("metrics listen_addr cannot be empty when enabled")
	ErrInvalidTracingExporter   = errors.New("tracing exporter must be one of none, stdout, otlp-grpc, otlp-http, zipkin")
	ErrInvalidSampleRate        = errors.New("tracing sample_rate must be between 0 and 1")
	ErrInvalidLogLevel          = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("log format must be 'text' or 'json'")
	ErrEmptyLogOutput           = errors.New("log output cannot be empty")
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Node.Validate(); err != nil {
		return fmt.Errorf("node config: %w", err)
	}
	if err := c.Counter.Validate(); err != nil {
		return fmt.Errorf("counter config: %w", err)
	}
	if err := c.StateStore.Validate(); err != nil {
		return fmt.Errorf("statestore config: %w", err)
	}
	if err := c.BlockStore.Validate(); err != nil {
		return fmt.Errorf("blockstore config: %w", err)
	}
	if err := c.Mempool.Validate(); err != nil {
		return fmt.Errorf("mempool config: %w", err)
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api config: %w", err)
	}
	if err := c.Blocks.Validate(); err != nil {
		return fmt.Errorf("blocks config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks the node configuration for errors.
func (c *NodeConfig) Validate() error {
	if c.ChainID == "" {
		return ErrEmptyChainID
	}
	return nil
}

// Validate checks the counter service configuration for errors.
func (c *CounterConfig) Validate() error {
	b, err := hex.DecodeString(c.AdminKey)
	if err != nil || len(b) != 32 {
		return ErrInvalidAdminKey
	}
	return nil
}

// Validate checks the state store configuration for errors.
func (c *StateStoreConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendLevelDB:
		if c.Path == "" {
			return ErrEmptyStateStorePath
		}
	default:
		return ErrInvalidStateBackend
	}
	if c.CacheSize < 0 {
		return ErrInvalidStateCacheSize
	}
	return nil
}

// Validate checks the block store configuration for errors.
func (c *BlockStoreConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendLevelDB, BackendBadgerDB:
		if c.Path == "" {
			return ErrEmptyBlockStorePath
		}
	default:
		return ErrInvalidBlockStoreBackend
	}
	return nil
}

// Validate checks the mempool configuration for errors.
func (c *MempoolConfig) Validate() error {
	if c.MaxTxs <= 0 {
		return ErrInvalidMaxTxs
	}
	if c.MaxBytes <= 0 {
		return ErrInvalidMaxBytes
	}
	if c.CacheSize < 0 {
		return ErrInvalidMempoolCacheSize
	}
	return nil
}

// Validate checks the API configuration for errors.
func (c *APIConfig) Validate() error {
	if c.PublicAddr == "" {
		return ErrEmptyPublicAddr
	}
	if c.PrivateAddr == "" {
		return ErrEmptyPrivateAddr
	}
	if c.ReadTimeout.Duration() <= 0 {
		return ErrInvalidReadTimeout
	}
	if c.ShutdownTimeout.Duration() <= 0 {
		return ErrInvalidShutdownTimeout
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return ErrInvalidRateLimit
	}
	return nil
}

// Validate checks the block producer configuration for errors.
func (c *BlocksConfig) Validate() error {
	if c.Interval.Duration() <= 0 {
		return ErrInvalidBlockInterval
	}
	if c.MaxTxs < 0 {
		return ErrInvalidBlockMaxTxs
	}
	return nil
}

// Validate checks the metrics configuration for errors.
func (c *MetricsConfig) Validate() error {
	if c.Enabled {
		if c.Namespace == "" {
			return ErrEmptyMetricsNamespace
		}
		if c.ListenAddr == "" {
			return ErrEmptyMetricsListenAddr
		}
	}
	return nil
}

// Validate checks the tracing configuration for errors.
func (c *TracingConfig) Validate() error {
	switch c.Exporter {
	case "none", "stdout", "otlp-grpc", "otlp-http", "zipkin":
	default:
		return ErrInvalidTracingExporter
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	return nil
}

// Validate checks the logging configuration for errors.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return ErrInvalidLogLevel
	}

	switch c.Format {
	case "text", "json":
		// Valid formats
	default:
		return ErrInvalidLogFormat
	}

	if c.Output == "" {
		return ErrEmptyLogOutput
	}

	return nil
}

// WriteConfigFile writes the configuration to a TOML file.
func WriteConfigFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}

// EnsureDataDirs creates the data directories specified in the configuration.
func (c *Config) EnsureDataDirs() error {
	var dirs []string
	if c.StateStore.Backend != BackendMemory {
		dirs = append(dirs, c.StateStore.Path)
	}
	if c.BlockStore.Backend != BackendMemory {
		dirs = append(dirs, c.BlockStore.Path)
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	return nil
}
