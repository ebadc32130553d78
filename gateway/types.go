package gateway

import (
	"fmt"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/config"
	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

// Route paths relative to the gateway prefix.
const (
	PathData          = "api/data"
	PathSchema        = "api/schema"
	PathUISchema      = "api/uischema"
	PathEventHandler  = "api/eventhandler"
	PathEvent         = "api/event"
	PathHealth        = "api/health"
	PathNotifications = "api/notifications"
)

// Config holds configuration for the HTTP surface.
type Config struct {
	// EnableCORS enables CORS headers (requires explicit cors_origins)
	EnableCORS bool `json:"enable_cors"`

	// CORSOrigins lists allowed CORS origins. Use ["*"] for development only.
	CORSOrigins []string `json:"cors_origins,omitempty"`

	// MaxRequestSize limits event body size in bytes (default: 1MB)
	MaxRequestSize int64 `json:"max_request_size,omitempty"`

	// EventRateLimit caps POST /api/event in requests per second. Zero disables it.
	EventRateLimit float64 `json:"event_rate_limit,omitempty"`

	// EventRateBurst is the limiter's bucket size.
	EventRateBurst int `json:"event_rate_burst,omitempty"`

	// RequestTimeout bounds one aggregation or pipeline run.
	RequestTimeout time.Duration `json:"request_timeout,omitempty"`
}

// Validate ensures the gateway configuration is valid and fills defaults.
func (c *Config) Validate() error {
	if c.MaxRequestSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_request_size cannot be negative")
	}
	if c.MaxRequestSize == 0 {
		c.MaxRequestSize = 1024 * 1024
	}
	if c.MaxRequestSize > 100*1024*1024 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_request_size cannot exceed 100MB")
	}

	if c.EventRateLimit < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("event_rate_limit cannot be negative: %v", c.EventRateLimit))
	}
	if c.EventRateLimit > 0 && c.EventRateBurst <= 0 {
		c.EventRateBurst = 1
	}

	if c.RequestTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"request_timeout cannot be negative")
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}

	if c.EnableCORS && len(c.CORSOrigins) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"enable_cors requires explicit cors_origins configuration (use [\"*\"] for development only)")
	}

	return nil
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() Config {
	return Config{
		EnableCORS:     false,
		CORSOrigins:    []string{},
		MaxRequestSize: 1024 * 1024,
		RequestTimeout: 30 * time.Second,
	}
}

// FromServerConfig derives the gateway configuration from the server section.
func FromServerConfig(s config.ServerConfig) Config {
	return Config{
		EnableCORS:     s.EnableCORS,
		CORSOrigins:    append([]string(nil), s.CORSOrigins...),
		MaxRequestSize: s.MaxRequestSize,
		EventRateLimit: s.EventRateLimit,
		EventRateBurst: s.EventRateBurst,
	}
}
