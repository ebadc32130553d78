package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/config"
	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/store"
)

// MaxNameLength bounds handler and factory names.
const MaxNameLength = 128

// Dependencies are the shared services handed to every factory.
type Dependencies struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
	Timeout    time.Duration
	Retry      errors.RetryConfig
	// Store gives handlers read access to the persisted result. May be nil.
	Store store.Store
}

// Factory creates a handler from its raw JSON configuration. Factories must not
// perform I/O.
type Factory func(rawConfig json.RawMessage, deps Dependencies) (handler.Handler, error)

// Registration holds a factory and the role and stage its handlers take by default.
type Registration struct {
	Name        string        `json:"name"`
	Role        handler.Role  `json:"role"`
	Stage       handler.Stage `json:"stage"`
	Description string        `json:"description"`
	Version     string        `json:"version"`
	Factory     Factory       `json:"-"`
}

// RegistrationConfig is the argument to RegisterWithConfig.
type RegistrationConfig struct {
	Name        string
	Role        handler.Role
	Stage       handler.Stage
	Description string
	Version     string
	Factory     Factory
}

// Catalog is the explicit handler registration table: factory name to role,
// stage and constructor. It is safe for concurrent use.
type Catalog struct {
	factories map[string]*Registration
	mu        sync.RWMutex
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]*Registration)}
}

// RegisterFactory adds a registration under name. Names are unique.
func (c *Catalog) RegisterFactory(name string, registration *Registration) error {
	if err := ValidateName(name); err != nil {
		return errors.Wrap(err, "Catalog", "RegisterFactory", "factory name validation")
	}
	if registration == nil || registration.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Catalog", "RegisterFactory", "factory function validation")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.factories[name]; exists {
		return errors.WrapInvalid(fmt.Errorf("factory '%s' is already registered", name),
			"Catalog", "RegisterFactory", "duplicate factory check")
	}

	c.factories[name] = registration
	return nil
}

// RegisterWithConfig registers a factory described by cfg.
func (c *Catalog) RegisterWithConfig(cfg RegistrationConfig) error {
	return c.RegisterFactory(cfg.Name, &Registration{
		Name:        cfg.Name,
		Role:        cfg.Role,
		Stage:       cfg.Stage,
		Description: cfg.Description,
		Version:     cfg.Version,
		Factory:     cfg.Factory,
	})
}

// GetFactory returns the registration for name.
func (c *Catalog) GetFactory(name string) (*Registration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	reg, ok := c.factories[name]
	return reg, ok
}

// ListFactories returns a copy of the registration table.
func (c *Catalog) ListFactories() map[string]*Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.factories)
}

// Create builds one descriptor from a configured handler entry. Role and stage
// in the entry override the registration defaults. An entry with a URL and no
// factory uses the "remote" factory.
func (c *Catalog) Create(entry config.HandlerConfig, deps Dependencies) (handler.Descriptor, error) {
	if err := ValidateName(entry.Name); err != nil {
		return handler.Descriptor{}, errors.Wrap(err, "Catalog", "Create", "handler name validation")
	}

	factoryName := entry.Factory
	if factoryName == "" && entry.URL != "" {
		factoryName = "remote"
	}

	reg, ok := c.GetFactory(factoryName)
	if !ok {
		return handler.Descriptor{}, errors.WrapInvalid(
			fmt.Errorf("unknown handler factory '%s' for handler '%s'", factoryName, entry.Name),
			"Catalog", "Create", "factory lookup")
	}

	role, stage := reg.Role, reg.Stage
	var err error
	if entry.Role != "" {
		if role, err = handler.ParseRole(entry.Role); err != nil {
			return handler.Descriptor{}, errors.WrapInvalid(err, "Catalog", "Create", "role parsing")
		}
	}
	if entry.Stage != "" {
		if stage, err = handler.ParseStage(entry.Stage); err != nil {
			return handler.Descriptor{}, errors.WrapInvalid(err, "Catalog", "Create", "stage parsing")
		}
	}

	raw, err := entry.FactoryConfig()
	if err != nil {
		return handler.Descriptor{}, errors.WrapInvalid(err, "Catalog", "Create", "factory config")
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("handler", entry.Name)

	instance, err := reg.Factory(raw, deps)
	if err != nil {
		return handler.Descriptor{}, errors.Wrap(err, "Catalog", "Create", fmt.Sprintf("factory '%s'", factoryName))
	}

	return handler.Descriptor{Name: entry.Name, Role: role, Stage: stage, Instance: instance}, nil
}

// CatalogSource is the Source adapter for configured catalog entries.
type CatalogSource struct {
	Catalog *Catalog
	Entries []config.HandlerConfig
	Deps    Dependencies
}

// Discover implements Source. Entries are created in order; the first failure
// aborts discovery.
func (s CatalogSource) Discover(_ context.Context) ([]handler.Descriptor, error) {
	out := make([]handler.Descriptor, 0, len(s.Entries))
	for _, entry := range s.Entries {
		d, err := s.Catalog.Create(entry, s.Deps)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ValidateName checks a handler or factory name: non-empty, bounded, and limited
// to letters, digits, dash, underscore and dot.
func ValidateName(name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "registry", "ValidateName", "empty name")
	}
	if len(name) > MaxNameLength {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "registry", "ValidateName", "name too long")
	}
	if strings.IndexFunc(name, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.')
	}) >= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "registry", "ValidateName", "invalid name characters")
	}
	return nil
}
