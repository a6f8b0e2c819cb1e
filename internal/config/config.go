// Package config loads application configuration and initializes logging.
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
	Raster     RasterConfig     `yaml:"raster" mapstructure:"raster"`
	Footprints FootprintsConfig `yaml:"footprints" mapstructure:"footprints"`
	Zoning     ZoningConfig     `yaml:"zoning" mapstructure:"zoning"`
	Estimator  EstimatorConfig  `yaml:"estimator" mapstructure:"estimator"`
	Render     RenderConfig     `yaml:"render" mapstructure:"render"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// RasterConfig locates the elevation inputs.
type RasterConfig struct {
	DSM        string `yaml:"dsm" mapstructure:"dsm"`
	DTM        string `yaml:"dtm" mapstructure:"dtm"`
	Resampling string `yaml:"resampling" mapstructure:"resampling"`
}

// FootprintsConfig locates the building footprint input.
type FootprintsConfig struct {
	Path           string  `yaml:"path" mapstructure:"path"`
	Format         string  `yaml:"format" mapstructure:"format"` // osm | geojson
	MetersPerLevel float64 `yaml:"meters_per_level" mapstructure:"meters_per_level"`
	TagFallback    bool    `yaml:"tag_fallback" mapstructure:"tag_fallback"`
}

// ZoningConfig locates the zoning input and the policy fallbacks.
type ZoningConfig struct {
	Path           string  `yaml:"path" mapstructure:"path"`
	Format         string  `yaml:"format" mapstructure:"format"` // shapefile | geojson
	PolicyPath     string  `yaml:"policy_path" mapstructure:"policy_path"`
	IDField        string  `yaml:"id_field" mapstructure:"id_field"`
	NameField      string  `yaml:"name_field" mapstructure:"name_field"`
	MaxHeightField string  `yaml:"max_height_field" mapstructure:"max_height_field"`
	SetbackField   string  `yaml:"setback_field" mapstructure:"setback_field"`
	MaxHeight      float64 `yaml:"max_height" mapstructure:"max_height"`
	Setback        float64 `yaml:"setback" mapstructure:"setback"`
}

// EstimatorConfig configures the height estimator.
type EstimatorConfig struct {
	Aggregate string `yaml:"aggregate" mapstructure:"aggregate"` // max | mean | p90
}

// RenderConfig configures map and report output.
type RenderConfig struct {
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
	Zoom        int    `yaml:"zoom" mapstructure:"zoom"`
	TileURL     string `yaml:"tile_url" mapstructure:"tile_url"`
	Attribution string `yaml:"attribution" mapstructure:"attribution"`
	PNGWidth    int    `yaml:"png_width" mapstructure:"png_width"`
}

// ExportConfig configures the optional result sinks.
type ExportConfig struct {
	GeoJSON     string `yaml:"geojson" mapstructure:"geojson"`
	SQLite      string `yaml:"sqlite" mapstructure:"sqlite"`
	XLSX        string `yaml:"xlsx" mapstructure:"xlsx"`
	PostgresURL string `yaml:"postgres_url" mapstructure:"postgres_url"`
}

// ServerConfig configures the artifact server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ZONING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("raster.resampling", "bilinear")
	v.SetDefault("footprints.format", "osm")
	v.SetDefault("footprints.meters_per_level", 3.0)
	v.SetDefault("footprints.tag_fallback", true)
	v.SetDefault("zoning.format", "shapefile")
	v.SetDefault("zoning.id_field", "ZONE_ID")
	v.SetDefault("zoning.name_field", "NAME")
	v.SetDefault("zoning.max_height_field", "MAX_HT")
	v.SetDefault("zoning.setback_field", "SETBACK")
	v.SetDefault("zoning.max_height", 10.5)
	v.SetDefault("zoning.setback", 5.0)
	v.SetDefault("estimator.aggregate", "max")
	v.SetDefault("render.output_dir", "out")
	v.SetDefault("render.zoom", 14)
	v.SetDefault("render.tile_url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("render.attribution", "&copy; OpenStreetMap contributors")
	v.SetDefault("render.png_width", 1200)
	v.SetDefault("server.port", 8080)
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
