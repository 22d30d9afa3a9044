package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Client   ClientConfig   `yaml:"client"`
	Viewport ViewportConfig `yaml:"viewport"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Server   ServerConfig   `yaml:"server"`
}

type ClientConfig struct {
	URL            string        `yaml:"url" validate:"required,url"`
	Token          string        `yaml:"token"`
	PageSize       int           `yaml:"page_size" validate:"min=1,max=500"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"min=0"`
}

// ViewportConfig tunes the render engine. Heights and thresholds are in
// terminal rows.
type ViewportConfig struct {
	Overscan          int     `yaml:"overscan" validate:"min=0,max=100"`
	LoadMoreThreshold int     `yaml:"load_more_threshold" validate:"min=0"`
	RootMargin        int     `yaml:"root_margin" validate:"min=0"`
	Threshold         float64 `yaml:"threshold" validate:"min=0,max=1"`
	MediaWidth        int     `yaml:"media_width" validate:"min=4,max=200"`
	MediaHeight       int     `yaml:"media_height" validate:"min=2,max=100"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"required_if=Enabled true"`
	// SampleInterval is how often process stats are refreshed.
	SampleInterval time.Duration `yaml:"sample_interval" validate:"min=0"`
}

type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port" validate:"min=1,max=65535"`
	Token             string        `yaml:"token"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	Devices           int           `yaml:"devices" validate:"min=0"`
	Accounts          int           `yaml:"accounts" validate:"min=0"`
	Scenarios         int           `yaml:"scenarios" validate:"min=0"`
	Seed              int64         `yaml:"seed"`
	TickInterval      time.Duration `yaml:"tick_interval" validate:"min=0"`
	BroadcastThrottle time.Duration `yaml:"broadcast_throttle" validate:"min=0"`
	MaxConnections    int           `yaml:"max_connections" validate:"min=0"`
}

var validate = validator.New()

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			URL:            "http://127.0.0.1:8080",
			PageSize:       50,
			RequestTimeout: 10 * time.Second,
		},
		Viewport: ViewportConfig{
			Overscan:          5,
			LoadMoreThreshold: 10,
			RootMargin:        2,
			MediaWidth:        24,
			MediaHeight:       6,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Listen:         "127.0.0.1:9464",
			SampleInterval: 2 * time.Second,
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8080,
			Devices:           2000,
			Accounts:          300,
			Scenarios:         40,
			Seed:              1,
			TickInterval:      time.Second,
			BroadcastThrottle: 100 * time.Millisecond,
			MaxConnections:    16,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the mock server listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
