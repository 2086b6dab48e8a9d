// Package config loads the application configuration from a YAML file,
// environment variables and defaults, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	GIS      GISConfig      `yaml:"gis" mapstructure:"gis"`
	Scenario ScenarioConfig `yaml:"scenario" mapstructure:"scenario"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the results database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// GISConfig configures the spatial inputs.
type GISConfig struct {
	// DatabaseURL is the PostGIS connection string for vector layer tables.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// DataDir is the root directory of file-based raster and vector inputs.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
	// CRS is the EPSG code every layer is reprojected to.
	CRS int `yaml:"crs" mapstructure:"crs"`
}

// ScenarioConfig points at the delimited parameter files of a run.
type ScenarioConfig struct {
	SpecsFile string `yaml:"specs_file" mapstructure:"specs_file"`
	TechsFile string `yaml:"techs_file" mapstructure:"techs_file"`
}

// OutputConfig configures where layer artifacts and results land.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml in the working directory,
// STOVEPLAN_* environment variables and built-in defaults, in that order of
// precedence.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STOVEPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "stoveplan.db")
	v.SetDefault("gis.crs", 3857)
	v.SetDefault("gis.data_dir", "data")
	v.SetDefault("scenario.specs_file", "scenario/specs.csv")
	v.SetDefault("scenario.techs_file", "scenario/techs.csv")
	v.SetDefault("output.dir", "output")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
