package builtin

import (
	"encoding/json"
	"log/slog"

	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
	"github.com/Ironwood-Cyber/decorator-demo/store"
)

const version = "1.0.0"

type depsView struct {
	logger *slog.Logger
	store  store.Store
}

func adapt(fn func(json.RawMessage, depsView) (handler.Handler, error)) registry.Factory {
	return func(raw json.RawMessage, deps registry.Dependencies) (handler.Handler, error) {
		logger := deps.Logger
		if logger == nil {
			logger = slog.Default()
		}
		return fn(raw, depsView{logger: logger, store: deps.Store})
	}
}

// Register adds the in-process handler factories to catalog.
func Register(catalog *registry.Catalog) error {
	registrations := []registry.RegistrationConfig{
		{
			Name:        "base-multiplier",
			Role:        handler.RoleBase,
			Description: "Base handler: result = firstNumber * 5; serves the base form",
			Factory: adapt(newArithmetic(
				ArithmeticConfig{Input: "firstNumber", Output: "result", Factor: 5}, "base")),
		},
		{
			Name:        "override-hundred",
			Role:        handler.RoleDecorator,
			Stage:       handler.StageOverrideBase,
			Description: "Replaces the base handler: result = firstNumber * 100",
			Factory: adapt(newArithmetic(
				ArithmeticConfig{Input: "firstNumber", Output: "result", Factor: 100}, "override-hundred")),
		},
		{
			Name:        "after-doubler",
			Role:        handler.RoleDecorator,
			Stage:       handler.StageAfterBase,
			Description: "Doubles the base result",
			Factory: adapt(newArithmetic(
				ArithmeticConfig{Input: "result", Output: "result", Factor: 2}, "after-doubler")),
		},
		{
			Name:        "before-defaults",
			Role:        handler.RoleDecorator,
			Stage:       handler.StageBeforeBase,
			Description: "Fills missing payload fields before the base handler",
			Factory:     adapt(newDefaults),
		},
		{
			Name:        "schema-extension",
			Role:        handler.RoleDecorator,
			Description: "Adds a comment field to data, schema and UI schema",
			Factory:     adapt(newExtension("schema-extension")),
		},
		{
			Name:        "script-extension",
			Role:        handler.RoleDecorator,
			Description: "Adds a calculation group and the client-side event script",
			Factory:     adapt(newExtension("script-extension")),
		},
	}

	for _, r := range registrations {
		r.Version = version
		if err := catalog.RegisterWithConfig(r); err != nil {
			return err
		}
	}
	return nil
}
