package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, cfg.Pipeline.HandlerTimeout)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	require.Len(t, cfg.Handlers, 4)
	assert.Equal(t, "base-multiplier", cfg.Handlers[0].Factory)
}

func TestLoader_LoadJSON(t *testing.T) {
	path := writeFile(t, "gateway.json", `{
		"server": {"address": ":9000"},
		"nats": {"enabled": true, "urls": ["nats://a:4222"], "reconnect_wait": "5s", "drain_timeout": "3s"},
		"store": {"backend": "nats"},
		"pipeline": {"handler_timeout": "750ms"},
		"handlers": [
			{"name": "base", "factory": "base-multiplier"},
			{"name": "hundred", "factory": "override-hundred", "stage": "override"}
		]
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxRequestSize, "defaults survive partial layers")
	assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, 3*time.Second, cfg.NATS.DrainTimeout)
	assert.Equal(t, "formgateway.events", cfg.NATS.Subject)
	assert.Equal(t, 750*time.Millisecond, cfg.Pipeline.HandlerTimeout)
	require.Len(t, cfg.Handlers, 2, "handler list replaces the default list")
	assert.Equal(t, "override", cfg.Handlers[1].Stage)
}

func TestLoader_YAMLLayerOverridesJSON(t *testing.T) {
	base := writeFile(t, "base.json", `{"server": {"address": ":8000", "event_rate_limit": 5}}`)
	overlay := writeFile(t, "overlay.yaml", `
server:
  address: ":8001"
handlers:
  - name: base
    factory: base-multiplier
  - name: defaults
    factory: before-defaults
    config:
      first_number: 7
`)

	l := NewLoader()
	l.AddLayer(base)
	l.AddLayer(overlay)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8001", cfg.Server.Address)
	assert.Equal(t, 5.0, cfg.Server.EventRateLimit)
	require.Len(t, cfg.Handlers, 2)
	assert.JSONEq(t, `{"first_number":7}`, string(cfg.Handlers[1].Config))
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("FORMGW_SERVER_ADDRESS", ":7070")
	t.Setenv("FORMGW_HANDLER_TIMEOUT", "2s")
	t.Setenv("FORMGW_NATS_URLS", "nats://x:1,nats://y:2")
	t.Setenv("FORMGW_NATS_USERNAME", "gateway")
	t.Setenv("FORMGW_NATS_PASSWORD", "secret")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.HandlerTimeout)
	assert.Equal(t, []string{"nats://x:1", "nats://y:2"}, cfg.NATS.URLs)
	assert.Equal(t, "gateway", cfg.NATS.Username)
	assert.Equal(t, "secret", cfg.NATS.Password)
	assert.NotContains(t, cfg.String(), "secret")
}

func TestLoader_BadEnvDuration(t *testing.T) {
	t.Setenv("FORMGW_HANDLER_TIMEOUT", "soon")
	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_RejectsBadPaths(t *testing.T) {
	_, err := NewLoader().LoadFile("../etc/passwd.json")
	assert.Error(t, err)

	_, err = NewLoader().LoadFile(writeFile(t, "config.toml", "x = 1"))
	assert.Error(t, err)
}

func TestLoader_RejectsDeepJSON(t *testing.T) {
	deep := ""
	for i := 0; i <= maxJSONDepth; i++ {
		deep += `{"a":`
	}
	path := writeFile(t, "deep.json", deep)

	_, err := NewLoader().LoadFile(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"zero timeout", func(c *Config) { c.Pipeline.HandlerTimeout = 0 }},
		{"nats store without nats", func(c *Config) { c.Store.Backend = StoreNATS }},
		{"redis without address", func(c *Config) { c.Store.Backend = StoreRedis }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"wildcard subject", func(c *Config) { c.NATS.Enabled = true; c.NATS.Subject = "form.*" }},
		{"nats password without username", func(c *Config) { c.NATS.Enabled = true; c.NATS.Password = "secret" }},
		{"no handlers", func(c *Config) { c.Handlers = nil }},
		{"handler without factory", func(c *Config) { c.Handlers = []HandlerConfig{{Name: "x"}} }},
		{"remote without base", func(c *Config) { c.Remote = &RemoteConfig{} }},
		{"remote with unnamed handler", func(c *Config) {
			c.Remote = &RemoteConfig{BaseURL: "http://base:8081"}
			c.Handlers = []HandlerConfig{{Factory: "schema-extension"}}
		}},
		{"tls server without cert", func(c *Config) { c.TLS.Server.Enabled = true }},
		{"tls client cert without key", func(c *Config) { c.TLS.Client.CertFile = "client.pem" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestConfig_ValidateRemoteOnly(t *testing.T) {
	cfg := Default()
	cfg.Handlers = nil
	cfg.Remote = &RemoteConfig{BaseURL: "http://base:8081"}
	assert.NoError(t, cfg.Validate())
}

func TestHandlerConfig_FactoryConfig(t *testing.T) {
	h := HandlerConfig{Name: "r", URL: "http://svc:8080", Config: json.RawMessage(`{"timeout":"1s"}`)}
	raw, err := h.FactoryConfig()
	require.NoError(t, err)
	assert.JSONEq(t, `{"timeout":"1s","url":"http://svc:8080"}`, string(raw))

	plain := HandlerConfig{Name: "p", Config: json.RawMessage(`{"a":1}`)}
	raw, err = plain.FactoryConfig()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	_, err = HandlerConfig{Name: "bad", URL: "http://x", Config: json.RawMessage(`[1]`)}.FactoryConfig()
	assert.Error(t, err)
}
