package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("LOTTO_HOME", filepath.Join(t.TempDir(), "home"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "tcp://127.0.0.1:26658", cfg.ListenAddr)
	require.Equal(t, "socket", cfg.Transport)
	require.Equal(t, "json", cfg.StoreType)
	require.Equal(t, 4, cfg.LogLevel)
	require.DirExists(t, cfg.Home)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("LOTTO_HOME", filepath.Join(t.TempDir(), "home"))
	t.Setenv("LOTTO_STORE_TYPE", "bolt")
	t.Setenv("LOTTO_LISTEN_ADDR", "tcp://0.0.0.0:36658")
	t.Setenv("LOTTO_LOG_LEVEL", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "bolt", cfg.StoreType)
	require.Equal(t, "tcp://0.0.0.0:36658", cfg.ListenAddr)
	require.Equal(t, 5, cfg.LogLevel)
}

func TestLoadConfig_RejectsUnknownTypes(t *testing.T) {
	viper.Reset()
	t.Setenv("LOTTO_HOME", filepath.Join(t.TempDir(), "home"))
	t.Setenv("LOTTO_STORE_TYPE", "postgres")

	_, err := LoadConfig()
	require.Error(t, err)

	viper.Reset()
	t.Setenv("LOTTO_STORE_TYPE", "json")
	t.Setenv("LOTTO_TRANSPORT", "carrier-pigeon")

	_, err = LoadConfig()
	require.Error(t, err)
}
