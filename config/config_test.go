package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeYAML(t, "speed_limit: 20\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20.0, cfg.SpeedLimit)
	assert.Equal(t, 60.0, cfg.StepsPerSecond, "unset fields keep their default")
	assert.Equal(t, -3.4, cfg.MaxBraking)
}

func TestLoadRejectsNonPositiveStepsPerSecond(t *testing.T) {
	path := writeYAML(t, "steps_per_second: 0\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNonPositive)
}

func TestLoadRejectsNonNegativeMaxBraking(t *testing.T) {
	path := writeYAML(t, "max_braking: 0\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNegativeLengthBufferFactor(t *testing.T) {
	path := writeYAML(t, "length_buffer_factor: -0.1\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadErrorsOnMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDeltaTAndMinEntranceLength(t *testing.T) {
	cfg := defaults()
	assert.InDelta(t, 1.0/60.0, cfg.DeltaT(), 1e-9)

	want := (cfg.SpeedLimit*cfg.SpeedLimit)/(2*3.4) + cfg.MaxVehicleLength
	assert.InDelta(t, want, cfg.MinEntranceLength(), 1e-9)
}

func TestReloadAlwaysFailsAfterLoad(t *testing.T) {
	path := writeYAML(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Reload(path), ErrAlreadyLoaded)
}
