package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ssargent/folio/pkg/codec"
	"github.com/ssargent/folio/pkg/paragraph"
	"gopkg.in/yaml.v3"
)

const (
	BackendLog    = "log"
	BackendPebble = "pebble"
)

// Config represents the folio configuration
type Config struct {
	DataDir  string   `yaml:"data_dir"`
	Port     int      `yaml:"port"`
	Bind     string   `yaml:"bind"`
	Security Security `yaml:"security"`
	Logging  Logging  `yaml:"logging"`
	Storage  Storage  `yaml:"storage"`
	Codec    Codec    `yaml:"codec"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Storage selects where paragraph snapshots are kept and how they are
// encoded.
type Storage struct {
	Backend          string        `yaml:"backend"`
	FsyncInterval    time.Duration `yaml:"fsync_interval"`
	SnapshotEncoding string        `yaml:"snapshot_encoding"`
	History          bool          `yaml:"history"`
}

// Codec bounds what the record decoders accept.
type Codec struct {
	MaxStringLength int  `yaml:"max_string_length"`
	Strict          bool `yaml:"strict"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Storage: Storage{
			Backend:          BackendLog,
			SnapshotEncoding: "positional",
		},
		Codec: Codec{
			MaxStringLength: codec.DefaultLimits().MaxStringLength,
		},
	}
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key and
// saves it to configPath.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./folio.yaml"
	}

	// ~/.config/folio/config.yaml on Linux and macOS
	return filepath.Join(homeDir, ".config", "folio", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// ApplyEnv overrides config with FOLIO_* environment variables. Variables
// from envFiles (".env" when none are given) are loaded first without
// replacing ones already set; missing files are ignored.
func ApplyEnv(config *Config, envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	str := map[string]*string{
		"FOLIO_DATA_DIR":          &config.DataDir,
		"FOLIO_BIND":              &config.Bind,
		"FOLIO_API_KEY":           &config.Security.APIKey,
		"FOLIO_LOG_LEVEL":         &config.Logging.Level,
		"FOLIO_LOG_FORMAT":        &config.Logging.Format,
		"FOLIO_STORAGE_BACKEND":   &config.Storage.Backend,
		"FOLIO_SNAPSHOT_ENCODING": &config.Storage.SnapshotEncoding,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("FOLIO_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FOLIO_PORT %q: %w", v, err)
		}
		config.Port = port
	}
	if v, ok := os.LookupEnv("FOLIO_FSYNC_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FOLIO_FSYNC_INTERVAL %q: %w", v, err)
		}
		config.Storage.FsyncInterval = d
	}
	if v, ok := os.LookupEnv("FOLIO_HISTORY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid FOLIO_HISTORY %q: %w", v, err)
		}
		config.Storage.History = b
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must be set"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	switch c.Storage.Backend {
	case BackendLog, BackendPebble:
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Storage.FsyncInterval < 0 {
		errs = append(errs, errors.New("fsync_interval must not be negative"))
	}
	if _, err := paragraph.CodecByName(c.Storage.SnapshotEncoding); err != nil {
		errs = append(errs, err)
	}
	if c.Codec.MaxStringLength < 0 {
		errs = append(errs, errors.New("max_string_length must not be negative"))
	}

	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

// Limits returns the decoder limits for this configuration.
func (c *Config) Limits() codec.Limits {
	return codec.Limits{MaxStringLength: c.Codec.MaxStringLength}
}

// SnapshotCodec returns the codec used to persist paragraph snapshots.
func (c *Config) SnapshotCodec() (paragraph.Codec, error) {
	return c.CodecByName(c.Storage.SnapshotEncoding)
}

// SnapshotReaders returns a codec for every snapshot encoding, so data
// written under an earlier snapshot_encoding stays readable.
func (c *Config) SnapshotReaders() ([]paragraph.Codec, error) {
	var readers []paragraph.Codec
	for _, name := range []string{"tagged", "positional", "json"} {
		pc, err := c.CodecByName(name)
		if err != nil {
			return nil, err
		}
		readers = append(readers, pc)
	}
	return readers, nil
}

// CodecByName resolves an encoding name with this configuration's limits
// and strictness applied.
func (c *Config) CodecByName(name string) (paragraph.Codec, error) {
	pc, err := paragraph.CodecByName(name)
	if err != nil {
		return nil, err
	}
	switch pc.(type) {
	case paragraph.TaggedCodec:
		return paragraph.TaggedCodec{Limits: c.Limits(), Strict: c.Codec.Strict}, nil
	case paragraph.PositionalCodec:
		return paragraph.PositionalCodec{Limits: c.Limits()}, nil
	}
	return pc, nil
}
