package documents

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "flowsync-core/pkg/errors"
)

// Path grammar: dotted segments. A segment "name[k]" selects array index k,
// "name[latest]" selects the element with the greatest window_from timestamp,
// and a terminal "name[]" appends a new element on write (invalid on read).

type segmentKind int

const (
	segPlain segmentKind = iota
	segIndex
	segLatest
	segAppend
)

type segment struct {
	key   string
	kind  segmentKind
	index int
}

func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, pkgerrors.NewValidationError("empty path")
	}

	parts := strings.Split(path, ".")
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		open := strings.IndexByte(part, '[')
		if open == -1 {
			if part == "" {
				return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid path %q: empty segment", path))
			}
			segments = append(segments, segment{key: part, kind: segPlain})
			continue
		}
		if !strings.HasSuffix(part, "]") || open == 0 {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid path segment %q", part))
		}

		key := part[:open]
		selector := part[open+1 : len(part)-1]
		switch selector {
		case "":
			segments = append(segments, segment{key: key, kind: segAppend})
		case "latest":
			segments = append(segments, segment{key: key, kind: segLatest})
		default:
			idx, err := strconv.Atoi(selector)
			if err != nil || idx < 0 {
				return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid array selector %q", selector))
			}
			segments = append(segments, segment{key: key, kind: segIndex, index: idx})
		}
	}

	for i, seg := range segments {
		if seg.kind == segAppend && i != len(segments)-1 {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid path %q: append segment must be terminal", path))
		}
	}

	return segments, nil
}

// Get reads the value at path. The second return reports whether the path
// resolved to a present value; the error is reserved for malformed paths and
// append segments, which are write-only.
func Get(doc Document, path string) (interface{}, bool, error) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, false, err
	}

	var current interface{} = map[string]interface{}(doc)
	for _, seg := range segments {
		if seg.kind == segAppend {
			return nil, false, pkgerrors.NewValidationError(fmt.Sprintf("cannot read append segment %q[]", seg.key))
		}

		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false, nil
		}
		value, exists := m[seg.key]
		if !exists {
			return nil, false, nil
		}

		switch seg.kind {
		case segPlain:
			current = value
		case segIndex:
			arr, ok := value.([]interface{})
			if !ok || seg.index >= len(arr) {
				return nil, false, nil
			}
			current = arr[seg.index]
		case segLatest:
			arr, ok := value.([]interface{})
			if !ok {
				return nil, false, nil
			}
			idx, found := LatestIndex(arr)
			if !found {
				return nil, false, nil
			}
			current = arr[idx]
		}
	}

	return current, true, nil
}

// Set writes value at path, creating intermediate objects for plain segments.
// Arrays are never implicitly created except by a terminal append segment;
// indexing or latest-selecting a missing array is an error, since that always
// indicates a mapping pointed at the wrong document shape.
func Set(doc Document, path string, value interface{}) error {
	segments, err := parsePath(path)
	if err != nil {
		return err
	}

	current := map[string]interface{}(doc)
	for i, seg := range segments {
		terminal := i == len(segments)-1

		switch seg.kind {
		case segAppend:
			arr, _ := current[seg.key].([]interface{})
			current[seg.key] = append(arr, value)
			return nil

		case segPlain:
			if terminal {
				current[seg.key] = value
				return nil
			}
			next, exists := current[seg.key]
			if !exists {
				child := map[string]interface{}{}
				current[seg.key] = child
				current = child
				continue
			}
			child, ok := next.(map[string]interface{})
			if !ok {
				return pkgerrors.NewValidationError(fmt.Sprintf("path %q: segment %q is not an object", path, seg.key))
			}
			current = child

		case segIndex, segLatest:
			arr, ok := current[seg.key].([]interface{})
			if !ok {
				return pkgerrors.NewValidationError(fmt.Sprintf("path %q: segment %q is not an array", path, seg.key))
			}
			idx := seg.index
			if seg.kind == segLatest {
				latest, found := LatestIndex(arr)
				if !found {
					return pkgerrors.NewValidationError(fmt.Sprintf("path %q: array %q has no selectable element", path, seg.key))
				}
				idx = latest
			}
			if idx >= len(arr) {
				return pkgerrors.NewValidationError(fmt.Sprintf("path %q: index %d out of range for %q", path, idx, seg.key))
			}
			if terminal {
				arr[idx] = value
				return nil
			}
			child, ok := arr[idx].(map[string]interface{})
			if !ok {
				return pkgerrors.NewValidationError(fmt.Sprintf("path %q: element %d of %q is not an object", path, idx, seg.key))
			}
			current = child
		}
	}

	return nil
}
