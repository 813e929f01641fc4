package domain

import (
	"strings"
	"unicode"
)

// ModelConfig is a Triton model configuration in its JSON mapping form,
// keyed by protobuf field names.
type ModelConfig map[string]any

// mapFields hold user-chosen keys that must never be renamed.
var mapFields = map[string]bool{
	"parameters":            true,
	"cc_model_filenames":    true,
	"metric_tags":           true,
	"input_map":             true,
	"output_map":            true,
	"priority_queue_policy": true,
}

// nestedMapFields are map-typed only inside the named parent message.
var nestedMapFields = map[string]bool{
	"model_warmup.inputs": true,
	"graph_spec.input":    true,
	"lower_bound.input":   true,
}

func isMapField(parent, name string) bool {
	return mapFields[name] || nestedMapFields[parent+"."+name]
}

// VersionPolicyConfig pins Triton to serve exactly the given version.
func VersionPolicyConfig(version int) ModelConfig {
	return ModelConfig{
		"version_policy": map[string]any{
			"specific": map[string]any{
				"versions": []any{version},
			},
		},
	}
}

// MergeModelConfigs combines configs left to right; later keys win at the
// top level. Inputs are not modified.
func MergeModelConfigs(configs ...ModelConfig) ModelConfig {
	merged := ModelConfig{}
	for _, cfg := range configs {
		for k, v := range NormalizeKeys(cfg) {
			merged[k] = v
		}
	}
	return merged
}

// NormalizeKeys returns a copy of cfg with camelCase field names rewritten
// to the snake_case names used by the protobuf schema.
func NormalizeKeys(cfg ModelConfig) ModelConfig {
	if cfg == nil {
		return ModelConfig{}
	}
	return ModelConfig(normalizeMessage(cfg, ""))
}

func normalizeMessage(msg map[string]any, parent string) map[string]any {
	out := make(map[string]any, len(msg))
	for k, v := range msg {
		key := toSnakeCase(k)
		if isMapField(parent, key) {
			out[key] = normalizeEntries(v, key)
			continue
		}
		out[key] = normalizeValue(v, key)
	}
	return out
}

// normalizeEntries keeps map keys as given and normalizes the entry values.
func normalizeEntries(v any, field string) any {
	entries, ok := asMessage(v)
	if !ok {
		return v
	}
	out := make(map[string]any, len(entries))
	for k, e := range entries {
		out[k] = normalizeValue(e, field)
	}
	return out
}

func normalizeValue(v any, field string) any {
	if msg, ok := asMessage(v); ok {
		return normalizeMessage(msg, field)
	}
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = normalizeValue(item, field)
		}
		return out
	}
	return v
}

func asMessage(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case ModelConfig:
		return val, true
	}
	return nil, false
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
