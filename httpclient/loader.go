package httpclient

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "RESTKIT"

// LoadConfig reads client configuration from a YAML file, layered with
// RESTKIT_* environment variables (RESTKIT_BASE_URL, RESTKIT_TIMEOUT, ...).
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (Config, error) {
	// Best effort: absence of a .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("httpclient: read config %s: %w", path, err)
		}
	}

	// Bind explicitly so env vars apply even without a config file.
	for _, key := range []string{"base_url", "timeout", "max_refresh_retries", "logging.enabled", "logging.log_body", "logging.max_body_log"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("httpclient: bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("httpclient: unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
