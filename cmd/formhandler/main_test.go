package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ironwood-Cyber/decorator-demo/componentregistry"
)

func TestServable(t *testing.T) {
	catalog, err := componentregistry.NewCatalog()
	require.NoError(t, err)

	names := servable(catalog)
	assert.Contains(t, names, "base-multiplier")
	assert.NotContains(t, names, "remote")
	assert.IsIncreasing(t, names)
}

func TestBuildHandler(t *testing.T) {
	catalog, err := componentregistry.NewCatalog()
	require.NoError(t, err)

	h, err := buildHandler(catalog, options{factory: "base-multiplier"}, slog.Default())
	require.NoError(t, err)
	res := h.HandleEvent(context.Background(), json.RawMessage(`{"firstNumber":5}`))
	require.True(t, res.IsSupported())
	assert.JSONEq(t, `{"firstNumber":5,"result":25}`, string(res.Value()))

	_, err = buildHandler(catalog, options{factory: "remote"}, slog.Default())
	assert.Error(t, err)

	_, err = buildHandler(catalog, options{factory: "no-such-factory"}, slog.Default())
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--factory=after-doubler", "--addr=:9000", `--handler-config={"factor":3}`})
	require.NoError(t, err)
	assert.Equal(t, "after-doubler", opts.factory)
	assert.Equal(t, ":9000", opts.address)

	_, err = parseFlags([]string{"--handler-config={"})
	assert.Error(t, err)
}
