package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "APP_"

// Option adjusts Load.
type Option func(*loader)

type loader struct {
	dir string
}

// WithConfigDir reads the YAML layers from dir instead of ./configs.
func WithConfigDir(dir string) Option {
	return func(l *loader) { l.dir = dir }
}

// layer is one source in the merge. Later layers win.
type layer struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

// Load merges, in increasing precedence, the built-in defaults,
// configs/base.yaml, configs/<profile>.yaml and APP_* environment variables,
// then validates the result.
//
// An environment variable names a key by replacing the dots with
// underscores: APP_LOCKING_SLOW_HOLD_THRESHOLD sets locking.slow_hold_threshold.
// Variables that name no known key are ignored.
func Load(profile string, opts ...Option) (*Config, error) {
	if err := checkProfile(profile); err != nil {
		return nil, err
	}

	l := loader{dir: "configs"}
	for _, opt := range opts {
		opt(&l)
	}

	k := koanf.New(".")
	files := []layer{
		{"defaults", confmap.Provider(defaults(), "."), nil},
		{"base config", file.Provider(filepath.Join(l.dir, "base.yaml")), yaml.Parser()},
		{profile + " config", file.Provider(filepath.Join(l.dir, profile+".yaml")), yaml.Parser()},
	}
	for _, ly := range files {
		if err := k.Load(ly.provider, ly.parser); err != nil {
			return nil, fmt.Errorf("loading %s: %w", ly.name, err)
		}
	}

	// Keys contain underscores too, so env names are matched against the
	// keys already loaded rather than split on every underscore.
	known := envNames(k.Keys())
	envLayer := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(name, value string) (string, any) {
			return known[strings.ToLower(strings.TrimPrefix(name, envPrefix))], value
		},
	})
	if err := k.Load(envLayer, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", profile, err)
	}
	return &cfg, nil
}

// checkProfile accepts names made of letters, digits, '-' and '_', since the
// profile becomes a file name under the config directory.
func checkProfile(profile string) error {
	if profile == "" {
		return fmt.Errorf("empty profile name")
	}
	for _, r := range profile {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("profile %q: invalid character %q", profile, r)
		}
	}
	return nil
}

// envNames maps "locking_slow_hold_threshold" to "locking.slow_hold_threshold"
// for every loaded key.
func envNames(keys []string) map[string]string {
	names := make(map[string]string, len(keys))
	for _, key := range keys {
		names[strings.ReplaceAll(key, ".", "_")] = key
	}
	return names
}
