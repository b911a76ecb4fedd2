package config

import "fmt"

const (
	// DefaultSize is the startup window side when no size is given.
	DefaultSize = 480

	// MinSize is the smallest size accepted at startup. Interactive
	// shrinking below this is allowed down to the window floor; the
	// startup value is held to a stricter minimum so the first frame
	// is actually visible.
	MinSize = 100
)

// Options is the full runtime configuration. Values resolve with CLI
// flags beating CIRCAM_* environment variables beating the TOML file.
type Options struct {
	Config string `help:"Config file path"`

	// Device is the capture device path, given as the positional
	// argument. CLI-only.
	Device string

	Top  bool `toml:"window.top" env:"TOP"`
	Size int  `toml:"window.size" env:"SIZE"`

	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string `toml:"metrics.addr" env:"METRICS_ADDR"`

	LogLevel  string `toml:"logging.level" env:"LOG_LEVEL"`
	LogFormat string `toml:"logging.format" env:"LOG_FORMAT"`
}

// DefaultOptions returns the options used before any source is applied.
func DefaultOptions() Options {
	return Options{
		Size:      DefaultSize,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Validate checks startup constraints after all sources are merged.
func (o *Options) Validate() error {
	if o.Size < MinSize {
		return fmt.Errorf("size %d is below the minimum of %d", o.Size, MinSize)
	}
	if o.Device == "" {
		return fmt.Errorf("no capture device given")
	}
	return nil
}
