package aggregator_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ironwood-Cyber/decorator-demo/aggregator"
	"github.com/Ironwood-Cyber/decorator-demo/config"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/handler/builtin"
	"github.com/Ironwood-Cyber/decorator-demo/handler/invoke"
	"github.com/Ironwood-Cyber/decorator-demo/health"
	"github.com/Ironwood-Cyber/decorator-demo/jsonmerge"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
	"github.com/Ironwood-Cyber/decorator-demo/testutil"
)

func base(m *testutil.MockHandler) handler.Descriptor {
	return handler.Descriptor{Name: "base", Role: handler.RoleBase, Instance: m}
}

func decorator(name string, m *testutil.MockHandler) handler.Descriptor {
	return handler.Descriptor{Name: name, Role: handler.RoleDecorator, Instance: m}
}

func newAggregator(t *testing.T, logs *testutil.LogRecorder, opts []aggregator.Option, ds ...handler.Descriptor) *aggregator.Aggregator {
	t.Helper()
	opts = append(opts, aggregator.WithInvoker(invoke.New(invoke.WithLogger(logs.Logger()))))
	agg, err := aggregator.New(registry.MustNewSet(ds...), opts...)
	require.NoError(t, err)
	return agg
}

// canonical round-trips a document through encoding/json so json.Number and
// float64 values compare equal.
func canonical(t *testing.T, doc jsonmerge.Document) map[string]any {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func mustJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestNew_NilSet(t *testing.T) {
	_, err := aggregator.New(nil)
	assert.Error(t, err)
}

func TestData_MergesInRegistryOrder(t *testing.T) {
	b := testutil.NewMockHandler()
	b.DataFunc = testutil.JSON(`{"firstNumber":1,"nested":{"a":1}}`)
	first := testutil.NewMockHandler()
	first.DataFunc = testutil.JSON(`{"firstNumber":2,"nested":{"b":2}}`)
	second := testutil.NewMockHandler()
	second.DataFunc = testutil.JSON(`{"firstNumber":3}`)

	logs := testutil.NewLogRecorder()
	agg := newAggregator(t, logs, nil, base(b), decorator("first", first), decorator("second", second))

	got := canonical(t, agg.Data(context.Background()))
	want := mustJSON(t, `{"firstNumber":3,"nested":{"a":1,"b":2}}`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Data() mismatch (-want +got):\n%s", diff)
	}
}

func TestData_NotSupportedIsSilent(t *testing.T) {
	b := testutil.NewMockHandler()
	b.DataFunc = testutil.JSON(`{"firstNumber":1}`)
	noData := testutil.NewMockHandler()

	logs := testutil.NewLogRecorder()
	agg := newAggregator(t, logs, nil, base(b), decorator("no-data", noData))

	got := canonical(t, agg.Data(context.Background()))
	assert.Equal(t, mustJSON(t, `{"firstNumber":1}`), got)
	assert.Equal(t, 1, noData.Calls(handler.CapabilityData))
	assert.Empty(t, logs.AtLevel(slog.LevelWarn))
	assert.Empty(t, logs.AtLevel(slog.LevelError))

	rec, ok := logs.Find("capability not supported")
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, rec.Level)
}

func TestSchema_FailureIsLoggedAndSkipped(t *testing.T) {
	b := testutil.NewMockHandler()
	b.SchemaFunc = testutil.JSON(`{"type":"object","properties":{"a":{"type":"string"}}}`)
	broken := testutil.NewMockHandler()
	broken.SchemaFunc = testutil.JSON(`{"type":`)
	failing := testutil.NewMockHandler()
	failing.SchemaFunc = func(context.Context) handler.Result[json.RawMessage] {
		return handler.Failed[json.RawMessage](stderrors.New("disk on fire"))
	}
	scalar := testutil.NewMockHandler()
	scalar.SchemaFunc = testutil.JSON(`[1,2]`)

	logs := testutil.NewLogRecorder()
	monitor := health.NewMonitor()
	agg, err := aggregator.New(
		registry.MustNewSet(base(b), decorator("broken", broken), decorator("failing", failing), decorator("scalar", scalar)),
		aggregator.WithInvoker(invoke.New(invoke.WithLogger(logs.Logger()), invoke.WithHealth(monitor))),
	)
	require.NoError(t, err)

	got := canonical(t, agg.Schema(context.Background()))
	assert.Equal(t, mustJSON(t, `{"type":"object","properties":{"a":{"type":"string"}}}`), got)
	assert.Len(t, logs.AtLevel(slog.LevelWarn), 3)

	status, ok := monitor.Get("broken")
	require.True(t, ok)
	assert.Equal(t, health.StateDegraded, status.State)
	status, ok = monitor.Get("base")
	require.True(t, ok)
	assert.True(t, status.Healthy)
}

func TestUISchema_MergesAndSortsByID(t *testing.T) {
	b := testutil.NewMockHandler()
	b.UISchemaFunc = testutil.JSON(`{"type":"VerticalLayout","elements":[
		{"type":"Control","scope":"#/properties/result","$id":3},
		{"type":"Control","scope":"#/properties/firstNumber","$id":1,"label":"First"}]}`)
	ext := testutil.NewMockHandler()
	ext.UISchemaFunc = testutil.JSON(`{"type":"VerticalLayout","elements":[
		{"type":"Group","label":"Extra"},
		{"type":"Control","scope":"#/properties/comment","$id":2},
		{"type":"Control","scope":"#/properties/firstNumber","options":{"focus":true}}]}`)

	agg := newAggregator(t, testutil.NewLogRecorder(), nil, base(b), decorator("ext", ext))

	got := canonical(t, agg.UISchema(context.Background()))
	want := mustJSON(t, `{"type":"VerticalLayout","elements":[
		{"type":"Control","scope":"#/properties/firstNumber","$id":1,"label":"First","options":{"focus":true}},
		{"type":"Control","scope":"#/properties/comment","$id":2},
		{"type":"Control","scope":"#/properties/result","$id":3},
		{"type":"Group","label":"Extra"}]}`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UISchema() mismatch (-want +got):\n%s", diff)
	}
}

func TestUISchema_EmptyWhenNobodyContributes(t *testing.T) {
	agg := newAggregator(t, testutil.NewLogRecorder(), nil, base(testutil.NewMockHandler()))
	assert.Empty(t, agg.UISchema(context.Background()))
}

func TestClientEventScript(t *testing.T) {
	script := func(s string) func(context.Context) handler.Result[string] {
		return func(context.Context) handler.Result[string] { return handler.Supported(s) }
	}

	t.Run("none", func(t *testing.T) {
		agg := newAggregator(t, testutil.NewLogRecorder(), nil, base(testutil.NewMockHandler()))
		assert.Empty(t, agg.ClientEventScript(context.Background()))
	})

	t.Run("last wins", func(t *testing.T) {
		first := testutil.NewMockHandler()
		first.ClientEventScriptFunc = script("function (d) { return 1; }")
		second := testutil.NewMockHandler()
		second.ClientEventScriptFunc = script("function (d) { return 2; }")

		agg := newAggregator(t, testutil.NewLogRecorder(), nil,
			base(testutil.NewMockHandler()), decorator("first", first), decorator("second", second))
		got := agg.ClientEventScript(context.Background())
		assert.Equal(t, jsonmerge.Document{aggregator.ScriptKey: "function (d) { return 2; }"}, got)
	})

	t.Run("syntax check", func(t *testing.T) {
		good := testutil.NewMockHandler()
		good.ClientEventScriptFunc = script("function (d) { return d; }")
		bad := testutil.NewMockHandler()
		bad.ClientEventScriptFunc = script("function (d) { return d;")

		logs := testutil.NewLogRecorder()
		agg := newAggregator(t, logs, []aggregator.Option{aggregator.WithScriptCheck(true)},
			base(testutil.NewMockHandler()), decorator("good", good), decorator("bad", bad))

		got := agg.ClientEventScript(context.Background())
		assert.Equal(t, "function (d) { return d; }", got[aggregator.ScriptKey])
		rec, ok := logs.Find("handler call failed")
		require.True(t, ok)
		assert.Equal(t, "bad", rec.Attrs["handler"])
	})
}

func TestBuiltinForm(t *testing.T) {
	catalog := registry.NewCatalog()
	require.NoError(t, builtin.Register(catalog))

	var descriptors []handler.Descriptor
	for _, entry := range []config.HandlerConfig{
		{Name: "base", Factory: "base-multiplier"},
		{Name: "schema-extension", Factory: "schema-extension"},
		{Name: "script-extension", Factory: "script-extension"},
		{Name: "doubler", Factory: "after-doubler"},
	} {
		d, err := catalog.Create(entry, registry.Dependencies{})
		require.NoError(t, err)
		descriptors = append(descriptors, d)
	}

	logs := testutil.NewLogRecorder()
	agg := newAggregator(t, logs, []aggregator.Option{aggregator.WithScriptCheck(true)}, descriptors...)
	ctx := context.Background()

	assert.Equal(t, mustJSON(t, `{"firstNumber":1,"comment":""}`), canonical(t, agg.Data(ctx)))

	schema := canonical(t, agg.Schema(ctx))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "firstNumber")
	assert.Contains(t, props, "comment")
	assert.Contains(t, props, "result")

	ui := canonical(t, agg.UISchema(ctx))
	elements, ok := ui["elements"].([]any)
	require.True(t, ok)
	var ids []float64
	for _, e := range elements {
		ids = append(ids, e.(map[string]any)["$id"].(float64))
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, ids)

	script := agg.ClientEventScript(ctx)
	assert.Contains(t, script[aggregator.ScriptKey], "firstNumber * 10")

	assert.Empty(t, logs.AtLevel(slog.LevelWarn))
	assert.Empty(t, logs.AtLevel(slog.LevelError))
}
