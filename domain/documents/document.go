// Package documents models the loosely-typed persisted trees (parameter
// files, case files, node-registry files, external feed payloads) and the
// path grammar used to read and write them.
//
// Typed graph entities never appear here; they cross into document form only
// through the adapter in adapter.go, keeping the dynamic shape confined to
// the persistence boundary.
package documents

import (
	"gopkg.in/yaml.v3"

	"flowsync-core/pkg/utils"
)

// Document is a loosely-typed tree as produced by YAML/JSON deserialization.
type Document = map[string]interface{}

// DeepCopy returns a fully independent copy of the document. Every operation
// on a document clones first so callers keep ownership of their inputs.
func DeepCopy(doc Document) Document {
	if doc == nil {
		return nil
	}
	return copyValue(doc).(Document)
}

func copyValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, val := range typed {
			out[k] = copyValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, val := range typed {
			out[i] = copyValue(val)
		}
		return out
	default:
		return v
	}
}

// LatestIndex returns the index of the array element with the greatest
// window_from timestamp. Files receive out-of-order appends, so "latest" is
// never positional. Elements without a parsable window sort lowest; ties keep
// the earliest index, which makes the selection deterministic.
func LatestIndex(arr []interface{}) (int, bool) {
	best := -1
	var bestTime int64
	for i, el := range arr {
		entry, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		raw, _ := entry["window_from"].(string)
		t, ok := utils.ParseWindow(raw)
		if !ok {
			if best == -1 {
				best = i
				bestTime = -1 << 62
			}
			continue
		}
		if best == -1 || t.UnixNano() > bestTime {
			best = i
			bestTime = t.UnixNano()
		}
	}
	return best, best >= 0
}

// ToDocument converts a typed value into its document form via a yaml
// round-trip, so the document keys match the struct's yaml tags exactly.
func ToDocument(v interface{}) (Document, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// FromDocument writes a document back into a typed value
func FromDocument(doc Document, out interface{}) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, out)
}
