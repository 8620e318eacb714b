package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: INGRESSFLOW_HTTP_PREFIX sets
// http.prefix.
const EnvPrefix = "INGRESSFLOW"

// Load reads configPath (or ingressflow.yaml from the working directory
// and /etc/ingressflow when empty) over the defaults, then applies
// environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("ingressflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ingressflow")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Topics == nil {
		cfg.Topics = map[string]string{}
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("http.address", d.HTTP.Address)
	v.SetDefault("http.prefix", d.HTTP.Prefix)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("pubsub_name", d.PubsubName)
	v.SetDefault("listener.middleware", d.Listener.Middleware)
	v.SetDefault("signature.secrets", []string{})
	v.SetDefault("signature.header", d.Signature.Header)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("dispatch.bus", d.Dispatch.Bus)
	v.SetDefault("dispatch.bus_buffer", d.Dispatch.BusBuffer)
}
