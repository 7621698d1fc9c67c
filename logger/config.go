package logger

import "fmt"

// Config contains logging configuration.
type Config struct {
	// Level is the minimum level to emit: trace, debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level"`
	// Format selects the encoder: json or console.
	Format string `yaml:"format" mapstructure:"format"`
	// Output selects the destination: stdout or stderr.
	Output string `yaml:"output" mapstructure:"output"`
	// NoColor disables ANSI colors for console output.
	NoColor bool `yaml:"no_color" mapstructure:"no_color"`
	// Timestamp adds a timestamp field to every event.
	Timestamp bool `yaml:"timestamp" mapstructure:"timestamp"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logger: level must be one of trace/debug/info/warn/error (got %q)", c.Level)
	}
	switch c.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger: format must be json or console (got %q)", c.Format)
	}
	return nil
}
