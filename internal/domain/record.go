package domain

import "strings"

// Record is a raw vendor object as decoded from a response body.
type Record map[string]any

// Lookup resolves a dotted path such as "extendedData.lastUpdateDateTime".
func (r Record) Lookup(path string) (any, bool) {
	var value any = map[string]any(r)
	for _, key := range strings.Split(path, ".") {
		obj, ok := asObject(value)
		if !ok {
			return nil, false
		}
		value, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func asObject(v any) (map[string]any, bool) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, true
	case Record:
		return obj, true
	}
	return nil, false
}
