package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ironwood-Cyber/decorator-demo/config"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
	"github.com/Ironwood-Cyber/decorator-demo/store"
)

func newCatalog(t *testing.T) *registry.Catalog {
	t.Helper()
	c := registry.NewCatalog()
	require.NoError(t, Register(c))
	return c
}

func create(t *testing.T, c *registry.Catalog, entry config.HandlerConfig, deps registry.Dependencies) handler.Descriptor {
	t.Helper()
	d, err := c.Create(entry, deps)
	require.NoError(t, err)
	return d
}

func TestRegister_RolesAndStages(t *testing.T) {
	c := newCatalog(t)

	tests := []struct {
		factory string
		role    handler.Role
		stage   handler.Stage
	}{
		{"base-multiplier", handler.RoleBase, handler.StageNone},
		{"override-hundred", handler.RoleDecorator, handler.StageOverrideBase},
		{"after-doubler", handler.RoleDecorator, handler.StageAfterBase},
		{"before-defaults", handler.RoleDecorator, handler.StageBeforeBase},
		{"schema-extension", handler.RoleDecorator, handler.StageNone},
		{"script-extension", handler.RoleDecorator, handler.StageNone},
	}
	for _, tt := range tests {
		t.Run(tt.factory, func(t *testing.T) {
			reg, ok := c.GetFactory(tt.factory)
			require.True(t, ok)
			assert.Equal(t, tt.role, reg.Role)
			assert.Equal(t, tt.stage, reg.Stage)
			assert.Equal(t, version, reg.Version)
		})
	}

	assert.Error(t, Register(c), "registering twice must fail")
}

func TestBaseMultiplier_HandleEvent(t *testing.T) {
	c := newCatalog(t)
	base := create(t, c, config.HandlerConfig{Name: "base", Factory: "base-multiplier"}, registry.Dependencies{})
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"integer", `{"firstNumber":5}`, `{"firstNumber":5,"result":25}`},
		{"numeric string", `{"firstNumber":"3"}`, `{"firstNumber":"3","result":15}`},
		{"fraction", `{"firstNumber":0.5}`, `{"firstNumber":0.5,"result":2.5}`},
		{"keeps other fields", `{"firstNumber":1,"comment":"x"}`, `{"comment":"x","firstNumber":1,"result":5}`},
		{"missing input", `{"other":1}`, ``},
		{"non-numeric input", `{"firstNumber":"five"}`, ``},
		{"not an object", `[1,2]`, ``},
		{"invalid json", `{"firstNumber":`, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := base.Instance.HandleEvent(ctx, json.RawMessage(tt.payload))
			require.True(t, res.IsSupported())
			if tt.want == "" {
				assert.Empty(t, res.Value(), "expected a null result")
				return
			}
			assert.JSONEq(t, tt.want, string(res.Value()))
		})
	}
}

func TestAfterDoublerAndOverride(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	doubler := create(t, c, config.HandlerConfig{Name: "d", Factory: "after-doubler"}, registry.Dependencies{})
	res := doubler.Instance.HandleEvent(ctx, json.RawMessage(`{"firstNumber":5,"result":25}`))
	require.True(t, res.IsSupported())
	assert.JSONEq(t, `{"firstNumber":5,"result":50}`, string(res.Value()))

	override := create(t, c, config.HandlerConfig{Name: "o", Factory: "override-hundred"}, registry.Dependencies{})
	res = override.Instance.HandleEvent(ctx, json.RawMessage(`{"firstNumber":5}`))
	assert.JSONEq(t, `{"firstNumber":5,"result":500}`, string(res.Value()))

	triple := create(t, c, config.HandlerConfig{
		Name: "t", Factory: "after-doubler", Config: json.RawMessage(`{"factor":3}`),
	}, registry.Dependencies{})
	res = triple.Instance.HandleEvent(ctx, json.RawMessage(`{"result":2}`))
	assert.JSONEq(t, `{"result":6}`, string(res.Value()))

	assert.True(t, doubler.Instance.Schema(ctx).IsNotSupported())
	assert.True(t, override.Instance.UISchema(ctx).IsSupported())
}

func TestArithmetic_InvalidConfig(t *testing.T) {
	c := newCatalog(t)
	_, err := c.Create(config.HandlerConfig{
		Name: "bad", Factory: "after-doubler", Config: json.RawMessage(`{"input":""}`),
	}, registry.Dependencies{})
	assert.Error(t, err)

	_, err = c.Create(config.HandlerConfig{
		Name: "bad", Factory: "after-doubler", Config: json.RawMessage(`{"factor":"x"}`),
	}, registry.Dependencies{})
	assert.Error(t, err)
}

func TestBaseMultiplier_DataPrefersStoredRecord(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	mem := store.NewMemoryStore()

	base := create(t, c, config.HandlerConfig{Name: "base", Factory: "base-multiplier"},
		registry.Dependencies{Store: mem})

	res := base.Instance.Data(ctx)
	require.True(t, res.IsSupported())
	assert.JSONEq(t, `{"firstNumber":1}`, string(res.Value()))

	require.NoError(t, mem.Upsert(ctx, json.RawMessage(`{"firstNumber":5,"result":50}`)))
	res = base.Instance.Data(ctx)
	assert.JSONEq(t, `{"firstNumber":5,"result":50}`, string(res.Value()))
}

func TestDecorator_DataIgnoresStore(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Upsert(ctx, json.RawMessage(`{"firstNumber":5,"result":50}`)))

	doubler := create(t, c, config.HandlerConfig{Name: "doubler", Factory: "after-doubler"},
		registry.Dependencies{Store: mem})
	assert.True(t, doubler.Instance.Data(ctx).IsNotSupported())
}

type brokenStore struct{ store.MemoryStore }

func (*brokenStore) FindFirst(context.Context) (store.Record, bool, error) {
	return store.Record{}, false, errors.New("unavailable")
}

func TestBaseMultiplier_DataFallsBackWhenStoreFails(t *testing.T) {
	c := newCatalog(t)
	base := create(t, c, config.HandlerConfig{Name: "base", Factory: "base-multiplier"},
		registry.Dependencies{Store: &brokenStore{}})

	res := base.Instance.Data(context.Background())
	require.True(t, res.IsSupported())
	assert.JSONEq(t, `{"firstNumber":1}`, string(res.Value()))
}

func TestBeforeDefaults(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	d := create(t, c, config.HandlerConfig{
		Name: "defaults", Factory: "before-defaults",
		Config: json.RawMessage(`{"defaults":{"firstNumber":7,"comment":"none"}}`),
	}, registry.Dependencies{})

	res := d.Instance.HandleEvent(ctx, json.RawMessage(`{"firstNumber":5}`))
	require.True(t, res.IsSupported())
	assert.JSONEq(t, `{"firstNumber":5,"comment":"none"}`, string(res.Value()))

	res = d.Instance.HandleEvent(ctx, json.RawMessage(`{}`))
	assert.JSONEq(t, `{"firstNumber":7,"comment":"none"}`, string(res.Value()))

	res = d.Instance.HandleEvent(ctx, json.RawMessage(`"text"`))
	assert.Empty(t, res.Value())
}

func TestExtensions(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	schemaExt := create(t, c, config.HandlerConfig{Name: "s", Factory: "schema-extension"}, registry.Dependencies{})
	assert.True(t, schemaExt.Instance.Data(ctx).IsSupported())
	assert.True(t, schemaExt.Instance.Schema(ctx).IsSupported())
	assert.True(t, schemaExt.Instance.UISchema(ctx).IsSupported())
	assert.True(t, schemaExt.Instance.ClientEventScript(ctx).IsNotSupported())
	assert.True(t, schemaExt.Instance.HandleEvent(ctx, json.RawMessage(`{}`)).IsNotSupported())

	scriptExt := create(t, c, config.HandlerConfig{Name: "x", Factory: "script-extension"}, registry.Dependencies{})
	script := scriptExt.Instance.ClientEventScript(ctx)
	require.True(t, script.IsSupported())
	assert.Contains(t, script.Value(), "function (data)")
	assert.True(t, scriptExt.Instance.Schema(ctx).IsNotSupported())
}

func TestNumber(t *testing.T) {
	assert.Equal(t, int64(25), number(25))
	assert.Equal(t, 2.5, number(2.5))
	assert.Equal(t, int64(-4), number(-4))
}
