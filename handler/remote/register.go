package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
)

// FactoryName is the catalog name of the remote handler factory.
const FactoryName = "remote"

// Config is the factory configuration of a remote handler.
type Config struct {
	URL string `json:"url"`
	// CacheTTL, a Go duration such as "30s", enables the document cache.
	CacheTTL string `json:"cache_ttl,omitempty"`
}

// Factory builds a remote Handler from {"url": "..."}.
func Factory(raw json.RawMessage, deps registry.Dependencies) (handler.Handler, error) {
	var cfg Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.WrapInvalid(err, "remote", "Factory", "decode config")
		}
	}
	if cfg.URL == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: url", errors.ErrMissingConfig), "remote", "Factory", "validate config")
	}
	opts := optionsFrom(deps)
	if cfg.CacheTTL != "" {
		ttl, err := time.ParseDuration(cfg.CacheTTL)
		if err != nil || ttl <= 0 {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: cache_ttl %q", errors.ErrInvalidConfig, cfg.CacheTTL),
				"remote", "Factory", "validate config")
		}
		opts = append(opts, WithDocumentCache(ttl))
	}
	return New(cfg.URL, opts...)
}

func optionsFrom(deps registry.Dependencies) []Option {
	opts := []Option{
		WithHTTPClient(deps.HTTPClient),
		WithTimeout(deps.Timeout),
		WithLogger(deps.Logger),
	}
	if deps.Retry.MaxRetries > 0 {
		opts = append(opts, WithRetry(deps.Retry))
	}
	return opts
}

// Register adds the remote factory to catalog. Its handlers default to the
// decorator role with no stage; handler entries set both as needed.
func Register(catalog *registry.Catalog) error {
	return catalog.RegisterWithConfig(registry.RegistrationConfig{
		Name:        FactoryName,
		Role:        handler.RoleDecorator,
		Stage:       handler.StageNone,
		Description: "Handler service reached over HTTP",
		Version:     "1.0.0",
		Factory:     Factory,
	})
}
