package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/mare-crater-map/internal/filter"
)

// Filter modes selectable with FILTER_MODE.
const (
	ModeBin      = "bin"
	ModeTimestep = "timestep"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	DataDir           string
	MareInfoPath      string
	MareGeometryFiles []string
	MareStatsPath     string

	// Crater sources: either CratersPath (pre-joined JSON) or the
	// survived/erased CSV pair.
	CratersPath         string
	CratersSurvivedPath string
	CratersErasedPath   string
	CraterSizeUnit      string

	FilterMode          string
	DiameterBins        []float64
	DebounceInterval    time.Duration
	ReversedRingRegions []string
	LocatorCacheSize    int

	MapWidth  float64
	MapHeight float64

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MetricsTextfile string
	WatchDataDir    bool

	// Kafka frame sink configuration.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaFrameTopic string
}

// DefaultMareFiles are the seven maria shipped with the original dataset.
var DefaultMareFiles = []string{
	"mare_imbrium.geojson",
	"mare_vaporum.geojson",
	"mare_tranquillitatis.geojson",
	"mare_serenitatis.geojson",
	"mare_fecunditatis.geojson",
	"mare_crisium.geojson",
	"oceanus_procellarum.geojson",
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honoured if present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	debounce, err := time.ParseDuration(sharedcfg.EnvOrDefault("DEBOUNCE_INTERVAL", "50ms"))
	if err != nil || debounce <= 0 {
		return nil, errors.New("invalid DEBOUNCE_INTERVAL")
	}

	bins, err := ParseBins(sharedcfg.EnvOrDefault("DIAMETER_BINS", "0,1,2,3,5,6,7,8,9,10"))
	if err != nil {
		return nil, err
	}

	width, err := parsePositiveFloat("MAP_WIDTH", "960")
	if err != nil {
		return nil, err
	}
	height, err := parsePositiveFloat("MAP_HEIGHT", "480")
	if err != nil {
		return nil, err
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "data")

	geometry := splitList(os.Getenv("MARE_GEOMETRY_FILES"))
	if len(geometry) == 0 {
		geometry = DefaultMareFiles
	}
	geometryPaths := make([]string, len(geometry))
	for i, f := range geometry {
		geometryPaths[i] = resolve(dataDir, f)
	}

	kafkaBrokers := sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"))

	// An explicitly empty REVERSED_RING_REGIONS disables the ring patch.
	reversed := "mare_tranquillitatis"
	if v, ok := os.LookupEnv("REVERSED_RING_REGIONS"); ok {
		reversed = v
	}

	// Likewise an explicitly empty MARE_STATS_PATH skips the stats table.
	statsPath := "output_new.json"
	if v, ok := os.LookupEnv("MARE_STATS_PATH"); ok {
		statsPath = v
	}

	cfg := &Config{
		DataDir:           dataDir,
		MareInfoPath:      resolve(dataDir, sharedcfg.EnvOrDefault("MARE_INFO_PATH", "mareInfo.csv")),
		MareGeometryFiles: geometryPaths,
		MareStatsPath:     resolveOptional(dataDir, statsPath),

		CratersPath:         resolveOptional(dataDir, os.Getenv("CRATERS_PATH")),
		CratersSurvivedPath: resolveOptional(dataDir, os.Getenv("CRATERS_SURVIVED_PATH")),
		CratersErasedPath:   resolveOptional(dataDir, os.Getenv("CRATERS_ERASED_PATH")),
		CraterSizeUnit:      sharedcfg.EnvOrDefault("CRATER_SIZE_UNIT", "m"),

		FilterMode:          strings.ToLower(sharedcfg.EnvOrDefault("FILTER_MODE", ModeBin)),
		DiameterBins:        bins,
		DebounceInterval:    debounce,
		ReversedRingRegions: splitList(reversed),
		LocatorCacheSize:    parseCacheSize(),

		MapWidth:  width,
		MapHeight: height,

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		WatchDataDir:    os.Getenv("WATCH_DATA_DIR") == "true",

		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    kafkaBrokers,
		KafkaFrameTopic: sharedcfg.EnvOrDefault("KAFKA_FRAME_TOPIC", "mare-crater-frames"),
	}

	if cfg.CratersPath == "" && cfg.CratersSurvivedPath == "" {
		cfg.CratersPath = resolve(dataDir, "filtered_craters.json")
	}
	if cfg.CratersPath != "" && cfg.CratersSurvivedPath != "" {
		return nil, errors.New("CRATERS_PATH and CRATERS_SURVIVED_PATH are mutually exclusive")
	}
	if cfg.FilterMode != ModeBin && cfg.FilterMode != ModeTimestep {
		return nil, errors.New("FILTER_MODE must be bin or timestep")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaFrameTopic == "" {
		return nil, errors.New("KAFKA_FRAME_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

// ParseBins parses DIAMETER_BINS, a comma-separated, strictly ascending
// threshold table.
func ParseBins(s string) ([]float64, error) {
	bins, err := filter.ParseThresholds(s)
	if err != nil {
		return nil, errors.New("invalid DIAMETER_BINS: " + err.Error())
	}
	return bins, nil
}

func parsePositiveFloat(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || v <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return v, nil
}

func parseCacheSize() int {
	if s := os.Getenv("LOCATOR_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 4096
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolve joins relative paths onto the data directory.
func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func resolveOptional(dir, path string) string {
	if path == "" {
		return ""
	}
	return resolve(dir, path)
}
