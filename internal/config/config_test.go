package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, cfg any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestReadConfigCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := ReadConfigFrom(path)
	require.ErrorIs(t, err, ErrConfigCreated)
	require.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err)

	cfg, err = ReadConfigFrom(path)
	require.NoError(t, err)
	require.Equal(t, "TriviaGameWorkflow", cfg.Engine.GameWorkflow)
}

func TestReadConfigMergesDefaults(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"http": map[string]any{"port": 8080},
		"poll": map[string]any{"timeout": "2s"},
	})

	cfg, err := ReadConfigFrom(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.HTTP.Port)
	require.Equal(t, 2*time.Second, cfg.Poll.TimeoutDuration())
	require.Equal(t, 100*time.Millisecond, cfg.Poll.InitialIntervalDuration())
	require.Equal(t, "localhost:7233", cfg.Engine.HostPort)
}

func TestReadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, map[string]any{"engine": map[string]any{"host_port": "engine:7233"}})
	t.Setenv("TRIVIA_ENGINE_HOST_PORT", "temporal.internal:7233")
	t.Setenv("TRIVIA_GAME_NUMBER_OF_PLAYERS", "4")

	cfg, err := ReadConfigFrom(path)
	require.NoError(t, err)
	require.Equal(t, "temporal.internal:7233", cfg.Engine.HostPort)
	require.Equal(t, 4, cfg.Game.NumberOfPlayers)
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err := ReadConfigFrom(path)
	require.Error(t, err)

	path = writeConfig(t, map[string]any{"http": map[string]any{"port": 0}})
	_, err = ReadConfigFrom(path)
	require.ErrorContains(t, err, "http.port")
}

func TestGetConfigReturnsLoaded(t *testing.T) {
	path := writeConfig(t, map[string]any{"app_name": "quiz-night"})
	_, err := ReadConfigFrom(path)
	require.NoError(t, err)

	cfg, err := GetConfig()
	require.NoError(t, err)
	require.Equal(t, "quiz-night", cfg.AppName)
}
