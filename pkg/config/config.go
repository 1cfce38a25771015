package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial     SerialConfig     `yaml:"serial"`
	Source     SourceConfig     `yaml:"source"`
	Downsample DownsampleConfig `yaml:"downsample"`
	Display    DisplayConfig    `yaml:"display"`
	Mock       MockConfig       `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SourceConfig selects where the headless CLI reads its series from.
type SourceConfig struct {
	Kind        string `yaml:"kind"` // csv or sqlite
	Path        string `yaml:"path"`
	Table       string `yaml:"table"`
	IndexColumn string `yaml:"index_column"`
	ValueColumn string `yaml:"value_column"`
	Timestamps  bool   `yaml:"timestamps"` // SQLite index holds unix microseconds
}

// DownsampleConfig contains the downsampler options.
type DownsampleConfig struct {
	Strategy       string   `yaml:"strategy"`
	MaxPoints      int      `yaml:"max_points"`
	InterleaveGaps *bool    `yaml:"interleave_gaps"`
	AllowedDtypes  []string `yaml:"allowed_dtypes"`
	GapQuantile    *float64 `yaml:"gap_quantile"`
}

// DisplayConfig contains scope parameters.
type DisplayConfig struct {
	WindowSeconds  float64 `yaml:"window_seconds"`
	AverageSamples int     `yaml:"average_samples"` // Number of samples to average (0 = disabled, default)
}

// MockConfig contains mock source configuration.
type MockConfig struct {
	Amplitude       float64       `yaml:"amplitude"`
	NoiseLevel      float64       `yaml:"noise_level"`
	Period          time.Duration `yaml:"period"`           // Sine period
	SampleRate      time.Duration `yaml:"sample_rate"`      // Time between samples
	DropoutEvery    time.Duration `yaml:"dropout_every"`    // Time between dropouts (0 = never)
	DropoutDuration time.Duration `yaml:"dropout_duration"` // Length of each dropout
}

// Interleave reports whether gap markers are enabled (default true).
func (d DownsampleConfig) Interleave() bool {
	if d.InterleaveGaps == nil {
		return true
	}
	return *d.InterleaveGaps
}

// Quantile returns the gap quantile (default 0.95).
func (d DownsampleConfig) Quantile() float64 {
	if d.GapQuantile == nil {
		return 0.95
	}
	return *d.GapQuantile
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Source: SourceConfig{
			Kind:        "csv",
			IndexColumn: "ts",
			ValueColumn: "value",
		},
		Downsample: DownsampleConfig{
			Strategy:  "minmax",
			MaxPoints: 1000,
		},
		Display: DisplayConfig{
			WindowSeconds:  30,
			AverageSamples: 0,
		},
		Mock: MockConfig{
			Amplitude:       1.0,
			NoiseLevel:      0.02,
			Period:          5 * time.Second,
			SampleRate:      20 * time.Millisecond,
			DropoutEvery:    12 * time.Second,
			DropoutDuration: 2 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Source.Kind == "" {
		c.Source.Kind = def.Source.Kind
	}
	if c.Source.IndexColumn == "" {
		c.Source.IndexColumn = def.Source.IndexColumn
	}
	if c.Source.ValueColumn == "" {
		c.Source.ValueColumn = def.Source.ValueColumn
	}

	if c.Downsample.Strategy == "" {
		c.Downsample.Strategy = def.Downsample.Strategy
	}
	if c.Downsample.MaxPoints <= 0 {
		c.Downsample.MaxPoints = def.Downsample.MaxPoints
	}

	if c.Display.WindowSeconds <= 0 {
		c.Display.WindowSeconds = def.Display.WindowSeconds
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.Amplitude == 0 {
		c.Mock.Amplitude = def.Mock.Amplitude
	}
}
