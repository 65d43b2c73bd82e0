package config

import (
	"context"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ssargent/folio/pkg/paragraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "./data", config.DataDir)
	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "127.0.0.1", config.Bind)
	assert.Equal(t, "auto", config.Security.APIKey)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Equal(t, BackendLog, config.Storage.Backend)
	assert.Equal(t, "positional", config.Storage.SnapshotEncoding)
	assert.NoError(t, config.Validate())
}

func TestGenerateSecureKey(t *testing.T) {
	t.Run("generate 32 byte key", func(t *testing.T) {
		key, err := GenerateSecureKey(32)
		require.NoError(t, err)
		assert.Len(t, key, 64) // 32 bytes = 64 hex characters

		_, err = hex.DecodeString(key)
		assert.NoError(t, err)
	})

	t.Run("generate different keys", func(t *testing.T) {
		key1, err := GenerateSecureKey(16)
		require.NoError(t, err)
		key2, err := GenerateSecureKey(16)
		require.NoError(t, err)

		assert.NotEqual(t, key1, key2)
	})

	t.Run("zero length", func(t *testing.T) {
		key, err := GenerateSecureKey(0)
		require.NoError(t, err)
		assert.Empty(t, key)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("load existing config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		expectedConfig := &Config{
			DataDir: "/custom/data",
			Port:    9000,
			Bind:    "0.0.0.0",
			Security: Security{
				APIKey: "test-api-key",
			},
			Logging: Logging{
				Level:  "debug",
				Format: "json",
			},
			Storage: Storage{
				Backend:          BackendPebble,
				FsyncInterval:    250 * time.Millisecond,
				SnapshotEncoding: "tagged",
				History:          true,
			},
			Codec: Codec{
				MaxStringLength: 1024,
				Strict:          true,
			},
		}

		err := SaveConfig(expectedConfig, configPath)
		require.NoError(t, err)

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, expectedConfig, loadedConfig)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("port: 9100\nstorage:\n  fsync_interval: 1s\n"), 0600))

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, 9100, loadedConfig.Port)
		assert.Equal(t, time.Second, loadedConfig.Storage.FsyncInterval)
		assert.Equal(t, "./data", loadedConfig.DataDir)
		assert.Equal(t, "positional", loadedConfig.Storage.SnapshotEncoding)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := LoadConfig("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("load invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
		require.NoError(t, err)

		_, err = LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	config := DefaultConfig()

	err := SaveConfig(config, configPath)
	require.NoError(t, err)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loadedConfig, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loadedConfig)
}

func TestBootstrapConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	dataDir := "/custom/data/dir"

	config, err := BootstrapConfig(configPath, dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, config.DataDir)
	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "info", config.Logging.Level)

	assert.NotEqual(t, "auto", config.Security.APIKey)
	_, err = hex.DecodeString(config.Security.APIKey)
	assert.NoError(t, err)

	assert.True(t, ConfigExists(configPath))

	loadedConfig, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loadedConfig)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "folio")
}

func TestConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingPath := filepath.Join(tmpDir, "exists.yaml")
	nonExistentPath := filepath.Join(tmpDir, "does-not-exist.yaml")

	err := os.WriteFile(existingPath, []byte("test"), 0644)
	require.NoError(t, err)

	assert.True(t, ConfigExists(existingPath))
	assert.False(t, ConfigExists(nonExistentPath))
}

func TestConfigYAMLField_Names(t *testing.T) {
	data, err := yaml.Marshal(DefaultConfig())
	require.NoError(t, err)

	for _, name := range []string{"data_dir:", "api_key:", "snapshot_encoding:", "max_string_length:", "fsync_interval:"} {
		assert.Contains(t, string(data), name)
	}
}

func TestSaveConfigErrorHandling(t *testing.T) {
	config := DefaultConfig()

	invalidPath := "/proc/folio/cannot/be/created/config.yaml"

	err := SaveConfig(config, invalidPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"port", func(c *Config) { c.Port = 70000 }, "port"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage backend"},
		{"encoding", func(c *Config) { c.Storage.SnapshotEncoding = "msgpack" }, "unknown encoding"},
		{"fsync", func(c *Config) { c.Storage.FsyncInterval = -time.Second }, "fsync_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("joins errors", func(t *testing.T) {
		config := DefaultConfig()
		config.Port = 0
		config.Storage.Backend = ""
		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port")
		assert.Contains(t, err.Error(), "storage backend")
	})
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("FOLIO_PORT", "9300")
	t.Setenv("FOLIO_STORAGE_BACKEND", "pebble")
	t.Setenv("FOLIO_FSYNC_INTERVAL", "2s")
	t.Setenv("FOLIO_HISTORY", "true")

	config := DefaultConfig()
	require.NoError(t, ApplyEnv(config, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, 9300, config.Port)
	assert.Equal(t, BackendPebble, config.Storage.Backend)
	assert.Equal(t, 2*time.Second, config.Storage.FsyncInterval)
	assert.True(t, config.Storage.History)
}

func TestApplyEnv_DotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FOLIO_SNAPSHOT_ENCODING=tagged\nFOLIO_LOG_LEVEL=warn\n"), 0600))

	// registered so the loaded variables are cleared after the test
	t.Setenv("FOLIO_SNAPSHOT_ENCODING", "")
	os.Unsetenv("FOLIO_SNAPSHOT_ENCODING")
	t.Setenv("FOLIO_LOG_LEVEL", "error")

	config := DefaultConfig()
	require.NoError(t, ApplyEnv(config, envFile))

	assert.Equal(t, "tagged", config.Storage.SnapshotEncoding)
	// variables already in the environment win over the file
	assert.Equal(t, "error", config.Logging.Level)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("FOLIO_PORT", "eighty")

	err := ApplyEnv(DefaultConfig(), filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOLIO_PORT")
}

func TestSnapshotCodec(t *testing.T) {
	config := DefaultConfig()
	config.Storage.SnapshotEncoding = "tagged"
	config.Codec.Strict = true
	config.Codec.MaxStringLength = 64

	c, err := config.SnapshotCodec()
	require.NoError(t, err)
	tagged, ok := c.(paragraph.TaggedCodec)
	require.True(t, ok)
	assert.True(t, tagged.Strict)
	assert.Equal(t, 64, tagged.Limits.MaxStringLength)

	c, err = config.CodecByName("json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	_, err = config.CodecByName("xml")
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveConfig(DefaultConfig(), configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, configPath, nil, func(c *Config) { reloaded <- c }))

	// an invalid edit is skipped
	require.NoError(t, os.WriteFile(configPath, []byte("port: -1\n"), 0600))
	time.Sleep(3 * reloadDelay)

	updated := DefaultConfig()
	updated.Logging.Level = "debug"
	require.NoError(t, SaveConfig(updated, configPath))

	select {
	case c := <-reloaded:
		assert.Equal(t, "debug", c.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}
