package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MSYNC_"

// legacyKeys maps the keys of the original spreadsheet-data.json onto ours.
var legacyKeys = map[string]string{
	"spreadsheet_id":      "destination_id",
	"cvs_path":            "csv_path",
	"xml_con_sensor_path": "sensor_doc_dir",
	"xml_sin_sensor_path": "no_sensor_doc_dir",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML, or JSON by extension) at path, or at MSYNC_CONFIG when path is empty
//  3. env (prefix MSYNC_)
//
// Load does not validate; call Validate before a sync run.
func Load(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
		applyLegacyKeys(k)
	}

	// Map env keys like MSYNC_CSV_PATH -> csv_path (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	return &cfg, nil
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Parser()
	}
	return yaml.Parser()
}

// applyLegacyKeys copies legacy keys onto their current names unless the
// current name is already set.
func applyLegacyKeys(k *koanf.Koanf) {
	for legacy, current := range legacyKeys {
		if k.Exists(legacy) && !k.Exists(current) {
			_ = k.Set(current, k.Get(legacy))
		}
	}
}
