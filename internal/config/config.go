package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Viewport ViewportConfig `json:"viewport" mapstructure:"viewport"`
	Markers  MarkersConfig  `json:"markers" mapstructure:"markers"`
	Output   OutputConfig   `json:"output" mapstructure:"output"`
	Log      LogConfig      `json:"log" mapstructure:"log"`
}

// ViewportConfig describes the window the canvas lives in
type ViewportConfig struct {
	WindowWidth      int `json:"window_width" mapstructure:"window_width" validate:"gt=0"`
	WindowHeight     int `json:"window_height" mapstructure:"window_height" validate:"gt=0"`
	ControlBarHeight int `json:"control_bar_height" mapstructure:"control_bar_height" validate:"gte=0,ltfield=WindowHeight"`
}

// MarkersConfig holds marker appearance
type MarkersConfig struct {
	UserRadius   float64 `json:"user_radius" mapstructure:"user_radius" validate:"gt=0"`
	ResultRadius float64 `json:"result_radius" mapstructure:"result_radius" validate:"gt=0"`
	ResultAlpha  float64 `json:"result_alpha" mapstructure:"result_alpha" validate:"gte=0,lte=1"`
}

// OutputConfig holds configuration for exported files
type OutputConfig struct {
	Dir             string `json:"dir" mapstructure:"dir" validate:"required"`
	ConfigFilename  string `json:"config_filename" mapstructure:"config_filename" validate:"required"`
	PreviewFormat   string `json:"preview_format" mapstructure:"preview_format" validate:"oneof=png jpg jpeg webp"`
	PreviewQuality  int    `json:"preview_quality" mapstructure:"preview_quality" validate:"min=1,max=100"`
	PreviewLossless bool   `json:"preview_lossless" mapstructure:"preview_lossless"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `json:"level" mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Dir   string `json:"dir" mapstructure:"dir"`
}

var validate = validator.New()

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Viewport: ViewportConfig{
			WindowWidth:      1280,
			WindowHeight:     800,
			ControlBarHeight: 40,
		},
		Markers: MarkersConfig{
			UserRadius:   25,
			ResultRadius: 10,
			ResultAlpha:  0.2,
		},
		Output: OutputConfig{
			Dir:             "./output",
			ConfigFilename:  "konfig.json",
			PreviewFormat:   "png",
			PreviewQuality:  90,
			PreviewLossless: false,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// setDefaults registers every key of Default() with v
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("viewport.window_width", d.Viewport.WindowWidth)
	v.SetDefault("viewport.window_height", d.Viewport.WindowHeight)
	v.SetDefault("viewport.control_bar_height", d.Viewport.ControlBarHeight)

	v.SetDefault("markers.user_radius", d.Markers.UserRadius)
	v.SetDefault("markers.result_radius", d.Markers.ResultRadius)
	v.SetDefault("markers.result_alpha", d.Markers.ResultAlpha)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.config_filename", d.Output.ConfigFilename)
	v.SetDefault("output.preview_format", d.Output.PreviewFormat)
	v.SetDefault("output.preview_quality", d.Output.PreviewQuality)
	v.SetDefault("output.preview_lossless", d.Output.PreviewLossless)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dir", d.Log.Dir)
}

// Load reads configuration from a JSON file layered over the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-annotator", "config.json")
}
