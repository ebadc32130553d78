// Package config provides layered configuration for the form gateway.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

// Config is the complete gateway configuration.
type Config struct {
	Version  string          `json:"version"`
	Server   ServerConfig    `json:"server"`
	NATS     NATSConfig      `json:"nats"`
	Store    StoreConfig     `json:"store"`
	Pipeline PipelineConfig  `json:"pipeline"`
	Handlers []HandlerConfig `json:"handlers"`
	Remote   *RemoteConfig   `json:"remote,omitempty"`
	TLS      TLSConfig       `json:"tls"`
	Metrics  MetricsConfig   `json:"metrics"`
	Log      LogConfig       `json:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address        string   `json:"address"`
	MaxRequestSize int64    `json:"max_request_size"`
	EnableCORS     bool     `json:"enable_cors"`
	CORSOrigins    []string `json:"cors_origins,omitempty"`
	EventRateLimit float64  `json:"event_rate_limit"` // requests per second, 0 disables
	EventRateBurst int      `json:"event_rate_burst"`
}

// NATSConfig configures the notification bus and the KV store connection.
type NATSConfig struct {
	Enabled       bool          `json:"enabled"`
	URLs          []string      `json:"urls"`
	Name          string        `json:"name"`
	MaxReconnects int           `json:"max_reconnects"`
	ReconnectWait time.Duration `json:"reconnect_wait"`
	DrainTimeout  time.Duration `json:"drain_timeout"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Subject       string        `json:"subject"`
	Consume       bool          `json:"consume"`
}

// Store backends.
const (
	StoreNATS   = "nats"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// StoreConfig selects and configures the single-record store.
type StoreConfig struct {
	Backend   string `json:"backend"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	RedisAddr string `json:"redis_addr"`
}

// PipelineConfig tunes handler invocation.
type PipelineConfig struct {
	HandlerTimeout time.Duration `json:"handler_timeout"`
	MaxConcurrency int           `json:"max_concurrency"`
	ValidateSchema bool          `json:"validate_schema"`
	CheckScripts   bool          `json:"check_scripts"`
}

// HandlerConfig is one entry of the ordered handler list. List order is registry order.
type HandlerConfig struct {
	Name    string          `json:"name"`
	Factory string          `json:"factory,omitempty"`
	Role    string          `json:"role,omitempty"`
	Stage   string          `json:"stage,omitempty"`
	URL     string          `json:"url,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// FactoryConfig returns the raw configuration handed to the handler factory. A
// URL on the entry is injected as the "url" field.
func (h HandlerConfig) FactoryConfig() (json.RawMessage, error) {
	if h.URL == "" {
		return h.Config, nil
	}

	fields := map[string]any{}
	if len(h.Config) > 0 {
		if err := json.Unmarshal(h.Config, &fields); err != nil {
			return nil, fmt.Errorf("handler %s config: %w", h.Name, err)
		}
	}
	fields["url"] = h.URL
	return json.Marshal(fields)
}

// RemoteConfig describes handler services by URL: one base service and ordered
// decorator services with their stages.
type RemoteConfig struct {
	BaseURL    string            `json:"base_url"`
	Decorators []RemoteDecorator `json:"decorators"`
}

// RemoteDecorator is one decorator service.
type RemoteDecorator struct {
	Name  string `json:"name,omitempty"`
	URL   string `json:"url"`
	Stage string `json:"stage"`
}

// TLSConfig secures the gateway listener and calls to handler services.
type TLSConfig struct {
	Server ServerTLSConfig `json:"server"`
	Client ClientTLSConfig `json:"client"`
}

// ServerTLSConfig configures the gateway listener.
type ServerTLSConfig struct {
	Enabled    bool   `json:"enabled"`
	CertFile   string `json:"cert_file,omitempty"`
	KeyFile    string `json:"key_file,omitempty"`
	MinVersion string `json:"min_version,omitempty"` // "1.2" or "1.3"
	// ClientCAFiles enables client certificate validation.
	ClientCAFiles     []string `json:"client_ca_files,omitempty"`
	RequireClientCert bool     `json:"require_client_cert,omitempty"`
}

// ClientTLSConfig configures calls to remote handler services. The system CA
// pool is always trusted; CAFiles are added to it.
type ClientTLSConfig struct {
	CAFiles            []string `json:"ca_files,omitempty"`
	CertFile           string   `json:"cert_file,omitempty"`
	KeyFile            string   `json:"key_file,omitempty"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify,omitempty"` // development only
	MinVersion         string   `json:"min_version,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns the configuration used when no layer overrides a value. It
// wires the builtin demo handlers without NATS.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Server: ServerConfig{
			Address:        ":8080",
			MaxRequestSize: 1 << 20,
			EnableCORS:     true,
			CORSOrigins:    []string{"*"},
			EventRateBurst: 20,
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			Name:          "formgateway",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			DrainTimeout:  10 * time.Second,
			Subject:       "formgateway.events",
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			Bucket:  "FORM_DATA",
			Key:     "current",
		},
		Pipeline: PipelineConfig{
			HandlerTimeout: 5 * time.Second,
			MaxConcurrency: 8,
		},
		Handlers: []HandlerConfig{
			{Name: "base", Factory: "base-multiplier"},
			{Name: "schema-extension", Factory: "schema-extension"},
			{Name: "script-extension", Factory: "script-extension"},
			{Name: "doubler", Factory: "after-doubler"},
		},
		Metrics: MetricsConfig{Enabled: true, Port: 9090},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Validate checks the configuration for values the gateway cannot run with.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "server address")
	}
	if c.Server.MaxRequestSize <= 0 {
		return errors.WrapInvalid(fmt.Errorf("max_request_size must be positive"), "Config", "Validate", "server limits")
	}
	if c.Server.EventRateLimit < 0 {
		return errors.WrapInvalid(fmt.Errorf("event_rate_limit must not be negative"), "Config", "Validate", "server limits")
	}
	if c.Pipeline.HandlerTimeout <= 0 {
		return errors.WrapInvalid(fmt.Errorf("handler_timeout must be positive"), "Config", "Validate", "pipeline")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreNATS:
		if !c.NATS.Enabled {
			return errors.WrapInvalid(fmt.Errorf("store backend nats requires nats.enabled"), "Config", "Validate", "store")
		}
		if c.Store.Bucket == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "store bucket")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "redis address")
		}
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown store backend %q", c.Store.Backend), "Config", "Validate", "store")
	}

	if c.TLS.Server.Enabled && (c.TLS.Server.CertFile == "" || c.TLS.Server.KeyFile == "") {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "tls server cert_file and key_file")
	}
	if (c.TLS.Client.CertFile == "") != (c.TLS.Client.KeyFile == "") {
		return errors.WrapInvalid(fmt.Errorf("tls client cert_file and key_file must be set together"),
			"Config", "Validate", "tls client")
	}

	if c.NATS.Enabled {
		if len(c.NATS.URLs) == 0 {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "nats urls")
		}
		if c.NATS.Password != "" && c.NATS.Username == "" {
			return errors.WrapInvalid(fmt.Errorf("nats password set without username"), "Config", "Validate", "nats credentials")
		}
		if !isValidSubject(c.NATS.Subject) {
			return errors.WrapInvalid(fmt.Errorf("invalid subject %q", c.NATS.Subject), "Config", "Validate", "nats subject")
		}
	}

	if c.Remote != nil {
		if c.Remote.BaseURL == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "remote base url")
		}
		for i, d := range c.Remote.Decorators {
			if d.URL == "" {
				return errors.WrapInvalid(fmt.Errorf("decorator %d has no url", i), "Config", "Validate", "remote decorators")
			}
		}
	}

	if len(c.Handlers) == 0 && c.Remote == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "handlers")
	}
	for i, h := range c.Handlers {
		if h.Name == "" {
			return errors.WrapInvalid(fmt.Errorf("handler %d has no name", i), "Config", "Validate", "handlers")
		}
		if h.Factory == "" && h.URL == "" {
			return errors.WrapInvalid(fmt.Errorf("handler %s needs a factory or url", h.Name), "Config", "Validate", "handlers")
		}
	}

	return nil
}

// isValidSubject accepts dot-separated NATS subject tokens without wildcards.
func isValidSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" || strings.ContainsAny(part, " \t*>") {
			return false
		}
	}
	return true
}

// String returns a summary safe for logs.
func (c *Config) String() string {
	return fmt.Sprintf("Config{version=%s address=%s nats=%t store=%s handlers=%d}",
		c.Version, c.Server.Address, c.NATS.Enabled, c.Store.Backend, len(c.Handlers))
}
