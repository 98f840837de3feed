package catalog

import (
	"maps"
	"strings"

	"tap_amazon_ads/internal/domain"
	"tap_amazon_ads/internal/stream"
)

// Schema generates a permissive JSON schema for def: key properties and the
// replication key are declared, everything else passes through.
func Schema(def stream.Definition) map[string]any {
	props := map[string]any{}
	for _, key := range def.KeyProperties {
		props[key] = map[string]any{"type": []string{"null", "string", "integer"}}
	}

	if def.Incremental() {
		addPath(props, strings.Split(def.ReplicationKey, "."))
	}

	return object(props)
}

func addPath(props map[string]any, path []string) {
	if len(path) == 1 {
		props[path[0]] = map[string]any{
			"type":   []string{"null", "string"},
			"format": "date-time",
		}
		return
	}

	var nested map[string]any
	if child, ok := props[path[0]].(map[string]any); ok {
		nested, _ = child["properties"].(map[string]any)
	}
	if nested == nil {
		nested = map[string]any{}
		props[path[0]] = object(nested)
	}
	addPath(nested, path[1:])
}

func object(props map[string]any) map[string]any {
	return map[string]any{
		"type":                 []string{"null", "object"},
		"additionalProperties": true,
		"properties":           props,
	}
}

// normalizeDateTimes walks schema alongside record. Nested objects are copied
// before they change since the caller's record shares them.
func normalizeDateTimes(record map[string]any, schema map[string]any) {
	props, _ := schema["properties"].(map[string]any)
	for field, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		value, ok := record[field]
		if !ok || value == nil {
			continue
		}

		if prop["format"] == "date-time" {
			if _, isString := value.(string); isString {
				continue
			}
			if ts, err := domain.ParseTimestamp(value); err == nil {
				record[field] = domain.FormatTimestamp(ts)
			}
			continue
		}

		if nested, ok := value.(map[string]any); ok {
			if _, hasProps := prop["properties"].(map[string]any); hasProps {
				copied := maps.Clone(nested)
				normalizeDateTimes(copied, prop)
				record[field] = copied
			}
		}
	}
}
