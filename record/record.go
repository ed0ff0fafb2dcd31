// Package record implements the dot-path addressable form record used by
// wizard sessions. A Record is schemaless at the storage layer; validators
// interpret values opportunistically.
package record

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Record maps field names to primitive, array, or nested-record values.
// Nested fields are addressed with dot paths ("price.total", "rows.0.name").
type Record map[string]any

// New returns an empty Record.
func New() Record {
	return Record{}
}

// Get resolves a dot path through nested maps and arrays. It never panics;
// missing segments report ok=false.
func (r Record) Get(path string) (any, bool) {
	if r == nil || path == "" {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case Record:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set returns a copy of the record with the value at path set. Absent
// intermediate objects are created; a numeric segment grows the enclosing
// array as needed. The receiver is not mutated.
func (r Record) Set(path string, value any) Record {
	out := r.Clone()
	if out == nil {
		out = New()
	}
	if path == "" {
		return out
	}
	setPath(map[string]any(out), strings.Split(path, "."), value)
	return out
}

func setPath(node map[string]any, segs []string, value any) {
	key := segs[0]
	if len(segs) == 1 {
		node[key] = value
		return
	}
	rest := segs[1:]
	if idx, err := strconv.Atoi(rest[0]); err == nil && idx >= 0 {
		arr, _ := node[key].([]any)
		for len(arr) <= idx {
			arr = append(arr, nil)
		}
		node[key] = arr
		setArrayPath(arr, idx, rest[1:], value)
		return
	}
	child, ok := node[key].(map[string]any)
	if !ok {
		if rec, isRec := node[key].(Record); isRec {
			child = map[string]any(rec)
		} else {
			child = map[string]any{}
		}
		node[key] = child
	}
	setPath(child, rest, value)
}

func setArrayPath(arr []any, idx int, segs []string, value any) {
	if len(segs) == 0 {
		arr[idx] = value
		return
	}
	if nextIdx, err := strconv.Atoi(segs[0]); err == nil && nextIdx >= 0 {
		inner, _ := arr[idx].([]any)
		for len(inner) <= nextIdx {
			inner = append(inner, nil)
		}
		arr[idx] = inner
		setArrayPath(inner, nextIdx, segs[1:], value)
		return
	}
	child, ok := arr[idx].(map[string]any)
	if !ok {
		child = map[string]any{}
		arr[idx] = child
	}
	setPath(child, segs, value)
}

// Delete returns a copy of the record with the value at path removed.
// Missing paths are a no-op.
func (r Record) Delete(path string) Record {
	out := r.Clone()
	if out == nil || path == "" {
		return out
	}
	segs := strings.Split(path, ".")
	parentPath := strings.Join(segs[:len(segs)-1], ".")
	last := segs[len(segs)-1]
	var parent any = map[string]any(out)
	if parentPath != "" {
		v, ok := out.Get(parentPath)
		if !ok {
			return out
		}
		parent = v
	}
	if m, ok := parent.(map[string]any); ok {
		delete(m, last)
	}
	return out
}

// Clone deep-copies the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(copyValue(map[string]any(r)).(map[string]any))
}

func copyValue(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[k] = copyValue(val)
		}
		return out
	case Record:
		return copyValue(map[string]any(node))
	case []any:
		out := make([]any, len(node))
		for i, val := range node {
			out[i] = copyValue(val)
		}
		return out
	default:
		return v
	}
}

// Equal reports structural equality of two records after JSON normalization,
// so an int written by a setter compares equal to the float64 a decoder
// produced for the same field.
func Equal(a, b Record) bool {
	na, errA := normalize(a)
	nb, errB := normalize(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(na, nb)
}

func normalize(r Record) (any, error) {
	if len(r) == 0 {
		return map[string]any{}, nil
	}
	raw, err := sonic.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out any
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StringAt returns the string value at path, ok=false when absent or not a
// string.
func (r Record) StringAt(path string) (string, bool) {
	v, ok := r.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// NumberAt returns the numeric value at path coerced to float64. Absent,
// nil, or non-numeric values report ok=false; numeric strings are not
// coerced.
func (r Record) NumberAt(path string) (float64, bool) {
	v, ok := r.Get(path)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// BoolAt returns the boolean value at path; absent or non-bool is false.
func (r Record) BoolAt(path string) bool {
	v, ok := r.Get(path)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// SliceAt returns the array value at path.
func (r Record) SliceAt(path string) ([]any, bool) {
	v, ok := r.Get(path)
	if !ok {
		return nil, false
	}
	s, ok := v.([]any)
	return s, ok
}

// JSON serializes the record.
func (r Record) JSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return sonic.Marshal(map[string]any(r))
}

// FromJSON deserializes a record.
func FromJSON(data []byte) (Record, error) {
	var out map[string]any
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return Record(out), nil
}
