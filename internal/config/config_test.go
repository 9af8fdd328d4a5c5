package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, filepath.Join("data", "mareInfo.csv"), cfg.MareInfoPath)
	assert.Len(t, cfg.MareGeometryFiles, 7)
	assert.Equal(t, filepath.Join("data", "mare_imbrium.geojson"), cfg.MareGeometryFiles[0])
	assert.Equal(t, filepath.Join("data", "filtered_craters.json"), cfg.CratersPath)
	assert.Empty(t, cfg.CratersSurvivedPath)
	assert.Equal(t, filepath.Join("data", "output_new.json"), cfg.MareStatsPath)
	assert.Equal(t, "m", cfg.CraterSizeUnit)
	assert.Equal(t, ModeBin, cfg.FilterMode)
	assert.Equal(t, []float64{0, 1, 2, 3, 5, 6, 7, 8, 9, 10}, cfg.DiameterBins)
	assert.Equal(t, 50*time.Millisecond, cfg.DebounceInterval)
	assert.Equal(t, []string{"mare_tranquillitatis"}, cfg.ReversedRingRegions)
	assert.Equal(t, 4096, cfg.LocatorCacheSize)
	assert.InEpsilon(t, 960.0, cfg.MapWidth, 1e-9)
	assert.InEpsilon(t, 480.0, cfg.MapHeight, 1e-9)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.WatchDataDir)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "mare-crater-frames", cfg.KafkaFrameTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/moon")
	t.Setenv("MARE_GEOMETRY_FILES", "a.geojson, /abs/b.geojson")
	t.Setenv("CRATERS_PATH", "")
	t.Setenv("CRATERS_SURVIVED_PATH", "survived.csv")
	t.Setenv("CRATERS_ERASED_PATH", "erased.csv")
	t.Setenv("CRATER_SIZE_UNIT", "km")
	t.Setenv("MARE_STATS_PATH", "json/output_new.json")
	t.Setenv("FILTER_MODE", "Timestep")
	t.Setenv("DIAMETER_BINS", "0, 0.5, 4")
	t.Setenv("DEBOUNCE_INTERVAL", "120ms")
	t.Setenv("REVERSED_RING_REGIONS", "")
	t.Setenv("LOCATOR_CACHE_SIZE", "16")
	t.Setenv("MAP_WIDTH", "1920")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("WATCH_DATA_DIR", "true")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_FRAME_TOPIC", "frames")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/moon/a.geojson", "/abs/b.geojson"}, cfg.MareGeometryFiles)
	assert.Empty(t, cfg.CratersPath)
	assert.Equal(t, "/srv/moon/survived.csv", cfg.CratersSurvivedPath)
	assert.Equal(t, "/srv/moon/erased.csv", cfg.CratersErasedPath)
	assert.Equal(t, "/srv/moon/json/output_new.json", cfg.MareStatsPath)
	assert.Equal(t, "km", cfg.CraterSizeUnit)
	assert.Equal(t, ModeTimestep, cfg.FilterMode)
	assert.Equal(t, []float64{0, 0.5, 4}, cfg.DiameterBins)
	assert.Equal(t, 120*time.Millisecond, cfg.DebounceInterval)
	assert.Empty(t, cfg.ReversedRingRegions)
	assert.Equal(t, 16, cfg.LocatorCacheSize)
	assert.InEpsilon(t, 1920.0, cfg.MapWidth, 1e-9)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.WatchDataDir)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "frames", cfg.KafkaFrameTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidDebounce(t *testing.T) {
	t.Setenv("DEBOUNCE_INTERVAL", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEBOUNCE_INTERVAL")
}

func TestLoad_InvalidFilterMode(t *testing.T) {
	t.Setenv("FILTER_MODE", "magnitude")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FILTER_MODE")
}

func TestLoad_ConflictingCraterSources(t *testing.T) {
	t.Setenv("CRATERS_PATH", "craters.json")
	t.Setenv("CRATERS_SURVIVED_PATH", "survived.csv")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestLoad_InvalidMapWidth(t *testing.T) {
	t.Setenv("MAP_WIDTH", "-5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAP_WIDTH")
}

func TestParseBins(t *testing.T) {
	bins, err := ParseBins("0,1,2")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, bins)

	_, err = ParseBins("")
	require.Error(t, err)

	_, err = ParseBins("0,2,1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ascending")

	_, err = ParseBins("0,x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DIAMETER_BINS")
}
