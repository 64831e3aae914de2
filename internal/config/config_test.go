package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{}.Normalize()
	assert.Equal(t, "svwm", cfg.WMName)
	assert.Equal(t, []string{"Main"}, cfg.Desktops)
	assert.Equal(t, MaxWindowSize, cfg.SizeConstraints.MaxWidth)
	assert.Equal(t, MaxWindowSize, cfg.SizeConstraints.MaxHeight)
	assert.Equal(t, "127.0.0.1:8086", cfg.HTTPAddress)
}

func TestNormalizeCurrentDesktopInRange(t *testing.T) {
	cfg := Config{
		Desktops:       []string{"One", "Two"},
		CurrentDesktop: 5,
	}.Normalize()
	assert.Equal(t, uint32(0), cfg.CurrentDesktop)
}

func TestStoreCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svwm.yaml")
	driver := NewYAML(path)

	store, err := NewStore(driver)
	require.NoError(t, err)

	exists, err := driver.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	cfg, err := store.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "svwm", cfg.WMName)
}

func TestYAMLRoundTrip(t *testing.T) {
	driver := NewYAML(filepath.Join(t.TempDir(), "svwm.yaml"))

	want := defaultConfig
	want.WMName = "custom"
	want.Desktops = []string{"Left", "Right"}
	want.FrameExtents = [4]uint32{1, 2, 3, 4}
	require.NoError(t, driver.Write(want))

	got, err := driver.Read()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJSONRoundTrip(t *testing.T) {
	driver := NewJSON(filepath.Join(t.TempDir(), "svwm.json"))

	want := defaultConfig
	want.SizeConstraints.MinWidth = 32
	require.NoError(t, driver.Write(want))

	got, err := driver.Read()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUpdateConfig(t *testing.T) {
	driver := NewYAML(filepath.Join(t.TempDir(), "svwm.yaml"))
	store, err := NewStore(driver)
	require.NoError(t, err)

	require.NoError(t, store.UpdateConfig(func(cfg Config) (Config, error) {
		cfg.ClampOverlap = 42
		return cfg, nil
	}))

	cfg, err := store.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.ClampOverlap)
}
