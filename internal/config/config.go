// Package config loads the harness configuration (§6 config.json) the
// way control-plane/internal/config.Load does: viper with JSON config,
// environment overrides, and typed defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Config mirrors spec.md §6's config.json shape.
type Config struct {
	StationTemplateURLs []string        `mapstructure:"stationTemplateUrls"`
	Worker              WorkerConfig    `mapstructure:"worker"`
	SupervisionURLs     []string        `mapstructure:"supervisionUrls"`
	DistributeEqually   bool            `mapstructure:"distributeStationsToTenantsEqually"`
	AutoReconnectMaxRetries int         `mapstructure:"autoReconnectMaxRetries"`
	AutoReconnectTimeout    int         `mapstructure:"autoReconnectTimeout"` // seconds
	Log                 LogConfig       `mapstructure:"log"`
	UIServer            UIServerConfig  `mapstructure:"uiServer"`
	PerformanceStorage  StorageConfig   `mapstructure:"performanceStorage"`

	// DataDir is where §6's per-station persisted-state files live. Not
	// named in spec.md's config.json key list but required by the same
	// section's "Persisted state layout" paragraph, so it gets a default
	// here rather than a required key.
	DataDir string `mapstructure:"dataDir"`

	// InstanceIndex comes from CF_INSTANCE_INDEX (§6), not the config file,
	// but travels on the same struct so the rest of the harness only has
	// one place to read it from.
	InstanceIndex int `mapstructure:"-"`
}

// WorkerConfig is §6's worker{processType,poolMinSize,poolMaxSize,...}.
type WorkerConfig struct {
	ProcessType      string `mapstructure:"processType" validate:"oneof=none dynamicPool staticPool"` // none, dynamicPool, staticPool
	PoolMinSize      int    `mapstructure:"poolMinSize"`
	PoolMaxSize      int    `mapstructure:"poolMaxSize"`
	ElementsPerWorker int   `mapstructure:"elementsPerWorker"`
	WorkerStartDelay time.Duration `mapstructure:"workerStartDelay"`
	ElementAddDelay  time.Duration `mapstructure:"elementAddDelay"`
}

// LogConfig is §6's log{...} block.
type LogConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Format             string `mapstructure:"format"`
	Level              string `mapstructure:"level"`
	Rotate             bool   `mapstructure:"rotate"`
	MaxFiles           int    `mapstructure:"maxFiles"`
	MaxSize            int    `mapstructure:"maxSize"`
	File               string `mapstructure:"file"`
	ErrorFile          string `mapstructure:"errorFile"`
	StatisticsInterval time.Duration `mapstructure:"statisticsInterval"`
}

// UIServerConfig is §6's uiServer{enabled,type,options} diagnostics surface
// toggle; "options" carries the chi server's bind address under the
// SPEC_FULL.md diagnostics-surface supplement.
type UIServerConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Type    string         `mapstructure:"type"`
	Options UIServerOptions `mapstructure:"options"`
}

// UIServerOptions is the subset of uiServer.options this simulator reads.
type UIServerOptions struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig is §6's performanceStorage{enabled,type,uri}.
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type" validate:"oneof=memory redis postgres"` // memory, redis, postgres
	URI     string `mapstructure:"uri"`
}

// Load reads config.json (optionally named/located elsewhere via configPath)
// plus CF_INSTANCE_INDEX and STATIONSIM_-prefixed environment overrides,
// following control-plane/internal/config.Load's viper.New/SetEnvPrefix/
// AutomaticEnv/setDefaults/Unmarshal shape.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix("STATIONSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}
	cfg.InstanceIndex = instanceIndexFromEnv()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("worker.processType", "none")
	v.SetDefault("worker.poolMinSize", 0)
	v.SetDefault("worker.poolMaxSize", 16)
	v.SetDefault("worker.elementsPerWorker", 1)
	v.SetDefault("worker.workerStartDelay", "0s")
	v.SetDefault("worker.elementAddDelay", "0s")

	v.SetDefault("distributeStationsToTenantsEqually", false)
	v.SetDefault("autoReconnectMaxRetries", -1)
	v.SetDefault("autoReconnectTimeout", 1)

	v.SetDefault("log.enabled", true)
	v.SetDefault("log.format", "json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.statisticsInterval", "60s")

	v.SetDefault("uiServer.enabled", false)
	v.SetDefault("uiServer.type", "http")
	v.SetDefault("uiServer.options.host", "0.0.0.0")
	v.SetDefault("uiServer.options.port", 8080)

	v.SetDefault("performanceStorage.enabled", true)
	v.SetDefault("performanceStorage.type", "memory")

	v.SetDefault("dataDir", "./data")
}

// instanceIndexFromEnv reads CF_INSTANCE_INDEX per §6, defaulting to 0 on
// anything but a valid non-negative integer.
func instanceIndexFromEnv() int {
	raw := os.Getenv("CF_INSTANCE_INDEX")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
