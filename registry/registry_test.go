package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ironwood-Cyber/decorator-demo/config"
	gwerrors "github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/testutil"
)

func base(name string) handler.Descriptor {
	return handler.Descriptor{Name: name, Role: handler.RoleBase, Instance: testutil.NewMockHandler()}
}

func decorator(name string, stage handler.Stage) handler.Descriptor {
	return handler.Descriptor{Name: name, Role: handler.RoleDecorator, Stage: stage, Instance: testutil.NewMockHandler()}
}

func TestNewSet_BaseInvariant(t *testing.T) {
	tests := []struct {
		name        string
		descriptors []handler.Descriptor
		wantErr     bool
	}{
		{"empty", nil, true},
		{"decorators only", []handler.Descriptor{decorator("a", handler.StageAfterBase)}, true},
		{"one base", []handler.Descriptor{base("b")}, false},
		{"base among decorators", []handler.Descriptor{
			decorator("a", handler.StageBeforeBase), base("b"), decorator("c", handler.StageNone),
		}, false},
		{"two bases", []handler.Descriptor{base("b1"), decorator("a", handler.StageNone), base("b2")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewSet(tt.descriptors)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.True(t, set.Base().IsBase())
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, gwerrors.ErrRegistryInvariant))
			assert.True(t, gwerrors.IsFatal(err))
			assert.Nil(t, set)
		})
	}
}

func TestNewSet_RejectsBadDescriptors(t *testing.T) {
	tests := []struct {
		name        string
		descriptors []handler.Descriptor
	}{
		{"duplicate name", []handler.Descriptor{base("x"), decorator("x", handler.StageNone)}},
		{"blank name", []handler.Descriptor{base(" ")}},
		{"nil instance", []handler.Descriptor{base("b"), {Name: "d", Role: handler.RoleDecorator}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.descriptors)
			require.Error(t, err)
			assert.True(t, gwerrors.IsInvalid(err))
		})
	}
}

func TestSet_OrderAndStages(t *testing.T) {
	set := MustNewSet(
		decorator("before-1", handler.StageBeforeBase),
		decorator("after-1", handler.StageAfterBase),
		base("base"),
		decorator("static", handler.StageNone),
		decorator("after-2", handler.StageAfterBase),
		decorator("override", handler.StageOverrideBase),
	)

	assert.Equal(t, []string{"before-1", "after-1", "base", "static", "after-2", "override"}, set.Names())
	assert.Equal(t, 6, set.Len())
	assert.Equal(t, "base", set.Base().Name)

	names := func(ds []handler.Descriptor) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			out = append(out, d.Name)
		}
		return out
	}
	assert.Equal(t, []string{"after-1", "after-2"}, names(set.InStage(handler.StageAfterBase)))
	assert.Equal(t, []string{"before-1"}, names(set.InStage(handler.StageBeforeBase)))
	assert.Equal(t, []string{"override"}, names(set.InStage(handler.StageOverrideBase)))
	assert.Empty(t, set.InStage(handler.StageNone))
}

func TestSet_Immutable(t *testing.T) {
	input := []handler.Descriptor{base("base"), decorator("d", handler.StageAfterBase)}
	set, err := NewSet(input)
	require.NoError(t, err)

	input[0].Name = "mutated"
	all := set.All()
	all[1].Name = "also-mutated"

	assert.Equal(t, []string{"base", "d"}, set.Names())
}

func TestMustNewSet_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNewSet() })
}

func TestLoad(t *testing.T) {
	set, err := Load(context.Background(), Static{base("base"), decorator("d", handler.StageBeforeBase)})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	discoverErr := fmt.Errorf("discovery down")
	_, err = Load(context.Background(), SourceFunc(func(context.Context) ([]handler.Descriptor, error) {
		return nil, discoverErr
	}))
	assert.ErrorIs(t, err, discoverErr)

	_, err = Load(context.Background(), Static{})
	assert.ErrorIs(t, err, gwerrors.ErrRegistryInvariant)
}

func TestConcat(t *testing.T) {
	src := Concat{
		Static{decorator("first", handler.StageNone)},
		Static{base("base"), decorator("last", handler.StageAfterBase)},
	}
	set, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "base", "last"}, set.Names())

	discoverErr := fmt.Errorf("remote listing failed")
	_, err = Concat{Static{base("base")}, SourceFunc(func(context.Context) ([]handler.Descriptor, error) {
		return nil, discoverErr
	})}.Discover(context.Background())
	assert.ErrorIs(t, err, discoverErr)
}

func mockFactory(calls *[]json.RawMessage) Factory {
	return func(raw json.RawMessage, deps Dependencies) (handler.Handler, error) {
		*calls = append(*calls, raw)
		if deps.Logger == nil {
			return nil, fmt.Errorf("logger not provided")
		}
		return testutil.NewMockHandler(), nil
	}
}

func TestCatalog_RegisterFactory(t *testing.T) {
	c := NewCatalog()
	var calls []json.RawMessage

	require.NoError(t, c.RegisterWithConfig(RegistrationConfig{
		Name: "mock", Role: handler.RoleDecorator, Stage: handler.StageAfterBase, Factory: mockFactory(&calls),
	}))

	err := c.RegisterWithConfig(RegistrationConfig{Name: "mock", Factory: mockFactory(&calls)})
	assert.True(t, gwerrors.IsInvalid(err), "duplicate registration")

	assert.Error(t, c.RegisterFactory("nofactory", &Registration{}))
	assert.Error(t, c.RegisterFactory("bad name!", &Registration{Factory: mockFactory(&calls)}))
	assert.Error(t, c.RegisterFactory(strings.Repeat("a", MaxNameLength+1), &Registration{Factory: mockFactory(&calls)}))

	reg, ok := c.GetFactory("mock")
	require.True(t, ok)
	assert.Equal(t, handler.StageAfterBase, reg.Stage)
	assert.Len(t, c.ListFactories(), 1)
}

func TestCatalog_Create(t *testing.T) {
	c := NewCatalog()
	var calls []json.RawMessage
	require.NoError(t, c.RegisterWithConfig(RegistrationConfig{
		Name: "mock", Role: handler.RoleDecorator, Stage: handler.StageAfterBase, Factory: mockFactory(&calls),
	}))
	require.NoError(t, c.RegisterWithConfig(RegistrationConfig{
		Name: "remote", Role: handler.RoleDecorator, Factory: mockFactory(&calls),
	}))

	t.Run("registration defaults", func(t *testing.T) {
		d, err := c.Create(config.HandlerConfig{Name: "m1", Factory: "mock"}, Dependencies{})
		require.NoError(t, err)
		assert.Equal(t, handler.RoleDecorator, d.Role)
		assert.Equal(t, handler.StageAfterBase, d.Stage)
	})

	t.Run("entry overrides role and stage", func(t *testing.T) {
		d, err := c.Create(config.HandlerConfig{Name: "m2", Factory: "mock", Role: "base", Stage: "none"}, Dependencies{})
		require.NoError(t, err)
		assert.True(t, d.IsBase())
		assert.Equal(t, handler.StageNone, d.Stage)
	})

	t.Run("url without factory uses remote", func(t *testing.T) {
		calls = nil
		_, err := c.Create(config.HandlerConfig{Name: "svc", URL: "http://svc:1"}, Dependencies{})
		require.NoError(t, err)
		require.Len(t, calls, 1)
		assert.JSONEq(t, `{"url":"http://svc:1"}`, string(calls[0]))
	})

	t.Run("failures", func(t *testing.T) {
		for _, entry := range []config.HandlerConfig{
			{Name: "x", Factory: "missing"},
			{Name: "x", Factory: "mock", Role: "boss"},
			{Name: "x", Factory: "mock", Stage: "sideways"},
			{Name: "", Factory: "mock"},
		} {
			_, err := c.Create(entry, Dependencies{})
			assert.Error(t, err, "%+v", entry)
		}
	})
}

func TestCatalogSource(t *testing.T) {
	c := NewCatalog()
	var calls []json.RawMessage
	require.NoError(t, c.RegisterWithConfig(RegistrationConfig{Name: "mock", Factory: mockFactory(&calls)}))

	src := CatalogSource{Catalog: c, Entries: []config.HandlerConfig{
		{Name: "first", Factory: "mock", Role: "decorator", Stage: "before"},
		{Name: "base", Factory: "mock", Role: "base"},
		{Name: "last", Factory: "mock", Role: "decorator", Stage: "after", Config: json.RawMessage(`{"factor":3}`)},
	}}

	set, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "base", "last"}, set.Names())
	assert.JSONEq(t, `{"factor":3}`, string(calls[2]))

	src.Entries = append(src.Entries, config.HandlerConfig{Name: "broken", Factory: "missing"})
	_, err = src.Discover(context.Background())
	assert.Error(t, err)
}
