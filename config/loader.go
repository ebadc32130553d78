package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader builds a Config from defaults, ordered file layers and environment
// overrides. Later layers win; objects are merged key by key, arrays replace.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a loader with validation enabled and the FORMGW env prefix.
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  "FORMGW",
	}
}

// AddLayer appends a JSON or YAML file layer.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation toggles validation at the end of Load.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the environment variable prefix.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// LoadFile loads defaults plus a single layer.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load applies defaults, every layer, env overrides and validation.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		merged = deepMergeMaps(merged, raw)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode merged config: %w", err)
	}

	if err := l.applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		// handler configs are passed on as raw JSON
		normalized, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("normalize yaml: %w", err)
		}
		raw = nil
		if err := json.Unmarshal(normalized, &raw); err != nil {
			return nil, err
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}

	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
// Nil override values are ignored.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// durationFields lists section.key pairs holding durations written as strings.
var durationFields = [][2]string{
	{"nats", "reconnect_wait"},
	{"nats", "drain_timeout"},
	{"pipeline", "handler_timeout"},
}

// parseDurations converts duration strings to nanoseconds for json decoding.
func parseDurations(data map[string]any) error {
	for _, field := range durationFields {
		section, ok := data[field[0]].(map[string]any)
		if !ok {
			continue
		}
		s, ok := section[field[1]].(string)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", field[0], field[1], err)
		}
		section[field[1]] = d.Nanoseconds()
	}
	return nil
}

func (l *Loader) env(key string) (string, bool) {
	val, ok := os.LookupEnv(l.envPrefix + "_" + key)
	if !ok || val == "" || len(val) > maxEnvVarLen {
		return "", false
	}
	return val, true
}

func (l *Loader) applyEnvOverrides(cfg *Config) error {
	if val, ok := l.env("SERVER_ADDRESS"); ok {
		cfg.Server.Address = val
	}
	if val, ok := l.env("NATS_URLS"); ok {
		cfg.NATS.URLs = strings.Split(val, ",")
	}
	if val, ok := l.env("NATS_ENABLED"); ok {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s_NATS_ENABLED: %w", l.envPrefix, err)
		}
		cfg.NATS.Enabled = enabled
	}
	if val, ok := l.env("NATS_USERNAME"); ok {
		cfg.NATS.Username = val
	}
	if val, ok := l.env("NATS_PASSWORD"); ok {
		cfg.NATS.Password = val
	}
	if val, ok := l.env("NATS_SUBJECT"); ok {
		cfg.NATS.Subject = val
	}
	if val, ok := l.env("STORE_BACKEND"); ok {
		cfg.Store.Backend = val
	}
	if val, ok := l.env("REDIS_ADDR"); ok {
		cfg.Store.RedisAddr = val
	}
	if val, ok := l.env("HANDLER_TIMEOUT"); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%s_HANDLER_TIMEOUT: %w", l.envPrefix, err)
		}
		cfg.Pipeline.HandlerTimeout = d
	}
	if val, ok := l.env("LOG_LEVEL"); ok {
		cfg.Log.Level = val
	}
	return nil
}
