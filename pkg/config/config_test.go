package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenwall/lumenwall/pkg/models"
)

type sampleConfig struct {
	ListenAddr string          `json:"listen_addr"`
	Interval   models.Duration `json:"interval"`
}

var errMissingListenAddr = errors.New("listen_addr is required")

type validatedConfig struct {
	ListenAddr string `json:"listen_addr"`
}

func (c *validatedConfig) Validate() error {
	if c.ListenAddr == "" {
		return errMissingListenAddr
	}

	return nil
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `{"listen_addr": ":9180", "interval": "45s"}`)

	var cfg sampleConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))
	assert.Equal(t, ":9180", cfg.ListenAddr)
	assert.Equal(t, 45*time.Second, cfg.Interval.Duration())
}

func TestLoadMissingFile(t *testing.T) {
	var cfg sampleConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(),
		filepath.Join(t.TempDir(), "missing.json"), &cfg)
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfigFile(t, `{"listen_addr": `)

	var cfg sampleConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	assert.Error(t, err)
}

func TestValidationFailureSurfaces(t *testing.T) {
	path := writeConfigFile(t, `{}`)

	var cfg validatedConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	assert.ErrorIs(t, err, errMissingListenAddr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("LUMENWALL_CONFIG_JSON", `{"listen_addr": ":9180"}`)

	var cfg sampleConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))
	assert.Equal(t, ":9180", cfg.ListenAddr)
}

func TestLoadFromEnvMissingVariable(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("LUMENWALL_CONFIG_JSON", "")

	var cfg sampleConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	assert.Error(t, err)
}

func TestInvalidConfigSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg sampleConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	assert.ErrorIs(t, err, errInvalidConfigSource)
}
