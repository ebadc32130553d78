// Package componentregistry registers every handler factory the gateway ships with.
package componentregistry

import (
	"errors"

	pkgerrors "github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler/builtin"
	"github.com/Ironwood-Cyber/decorator-demo/handler/remote"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
)

// Register adds all handler factories to catalog:
//
//   - builtin handlers (base-multiplier, the arithmetic decorators, extensions)
//   - the remote handler, which reaches a handler service over HTTP
func Register(catalog *registry.Catalog) error {
	if catalog == nil {
		return pkgerrors.WrapFatal(
			errors.New("catalog cannot be nil"),
			"ComponentRegistry", "Register", "catalog validation")
	}

	if err := builtin.Register(catalog); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "builtin handler registration")
	}

	if err := remote.Register(catalog); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "remote handler registration")
	}

	return nil
}

// NewCatalog returns a catalog with every factory registered.
func NewCatalog() (*registry.Catalog, error) {
	catalog := registry.NewCatalog()
	if err := Register(catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}
