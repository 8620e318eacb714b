// Package config holds the ingress service settings and loads them from a
// YAML file and INGRESSFLOW_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Middleware identifiers run by default, in order.
var DefaultMiddleware = []string{"retry_once", "correlation", "tenant"}

// Config groups everything the ingress Service needs at startup.
type Config struct {
	HTTP       HTTPConfig        `mapstructure:"http"`
	PubsubName string            `mapstructure:"pubsub_name"`
	Listener   ListenerConfig    `mapstructure:"listener"`
	Signature  SignatureConfig   `mapstructure:"signature"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Tracing    TracingConfig     `mapstructure:"tracing"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Dispatch   DispatchConfig    `mapstructure:"dispatch"`
	// Topics overrides the topic of an event type, keyed by type name.
	Topics     map[string]string `mapstructure:"topics"`
}

// HTTPConfig configures the ingress listener. Prefix is the path segment
// in front of /ingress; surrounding slashes are ignored.
type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	Prefix          string        `mapstructure:"prefix"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ListenerConfig struct {
	// Middleware lists middleware identifiers in execution order. Dispatch
	// always runs last.
	Middleware []string `mapstructure:"middleware"`
}

type SignatureConfig struct {
	// Secrets enables HMAC verification when non-empty. Several secrets
	// allow rotation.
	Secrets []string `mapstructure:"secrets"`
	Header  string   `mapstructure:"header"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DispatchConfig struct {
	// Bus additionally publishes every event on the in-process bus.
	Bus       bool  `mapstructure:"bus"`
	BusBuffer int64 `mapstructure:"bus_buffer"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			Prefix:          "dapr",
			MaxBodyBytes:    4 << 20,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		PubsubName: "pubsub",
		Listener:   ListenerConfig{Middleware: append([]string(nil), DefaultMiddleware...)},
		Signature:  SignatureConfig{Header: "X-Ingress-Signature"},
		Logging:    LoggingConfig{Level: "info", Format: "json"},
		Dispatch:   DispatchConfig{BusBuffer: 64},
		Topics:     map[string]string{},
	}
}

func (c Config) String() string {
	copy := c
	if len(copy.Signature.Secrets) > 0 {
		redacted := make([]string, len(copy.Signature.Secrets))
		for i := range redacted {
			redacted[i] = "***REDACTED***"
		}
		copy.Signature.Secrets = redacted
	}
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(copy))
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateHTTP()...)
	errs = append(errs, c.validateMiddleware()...)
	errs = append(errs, c.validateLogging()...)
	if c.Dispatch.BusBuffer < 0 {
		errs = append(errs, errors.New("dispatch: bus buffer cannot be negative"))
	}
	for name, topic := range c.Topics {
		if strings.TrimSpace(topic) == "" {
			errs = append(errs, fmt.Errorf("topics: empty topic for %s", name))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) validateHTTP() []error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Address) == "" {
		errs = append(errs, errors.New("http: address is required"))
	}
	if strings.ContainsAny(c.HTTP.Prefix, " ?#{}") {
		errs = append(errs, fmt.Errorf("http: invalid prefix %q", c.HTTP.Prefix))
	}
	if c.HTTP.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("http: max body bytes cannot be negative"))
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http: timeouts cannot be negative"))
	}
	return errs
}

func (c *Config) validateMiddleware() []error {
	var errs []error
	seen := make(map[string]struct{}, len(c.Listener.Middleware))
	for _, id := range c.Listener.Middleware {
		id = strings.TrimSpace(id)
		if id == "" {
			errs = append(errs, errors.New("listener: empty middleware identifier"))
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("listener: middleware %s listed twice", id))
		}
		seen[id] = struct{}{}
	}
	return errs
}

func (c *Config) validateLogging() []error {
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
		return nil
	}
	return []error{fmt.Errorf("logging: unsupported format %q", c.Logging.Format)}
}

// ValidateConfig validates a config pointer. Returns nil if the config is
// valid.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
