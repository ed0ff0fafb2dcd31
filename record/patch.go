package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

const (
	OpAdd     = "add"
	OpReplace = "replace"
	OpRemove  = "remove"
)

// Operation is a single RFC 6902 patch operation. Path uses JSON pointer
// notation ("/price/total").
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// ApplyOps applies RFC 6902 operations to a record and returns the result.
// Replace ops against missing paths are downgraded to add, and remove ops
// against missing paths are dropped, so bulk edits from sparse UI state do
// not fail on untouched fields.
func ApplyOps(r Record, ops []Operation) (Record, error) {
	if len(ops) == 0 {
		return r.Clone(), nil
	}
	currentJSON, err := r.JSON()
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	ops = fixOps(currentJSON, ops)

	patchJSON, err := sonic.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("marshal patch operations: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	modified, err := patch.Apply(currentJSON)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	out, err := FromJSON(modified)
	if err != nil {
		return nil, fmt.Errorf("unmarshal patched record: %w", err)
	}
	return out, nil
}

func fixOps(currentJSON []byte, ops []Operation) []Operation {
	var doc any
	if err := sonic.Unmarshal(currentJSON, &doc); err != nil {
		return ops
	}

	fixed := make([]Operation, 0, len(ops))
	for _, op := range ops {
		switch op.Op {
		case OpReplace:
			if !pointerExists(doc, op.Path) {
				op.Op = OpAdd
			}
			fixed = append(fixed, op)
		case OpRemove:
			if pointerExists(doc, op.Path) {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}
	return fixed
}

func pointerExists(doc any, path string) bool {
	if path == "" {
		return true
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	cur := doc
	for _, token := range strings.Split(path[1:], "/") {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")
		switch node := cur.(type) {
		case map[string]any:
			value, ok := node[token]
			if !ok {
				return false
			}
			cur = value
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return false
			}
			cur = node[index]
		default:
			return false
		}
	}
	return true
}

// DotToPointer converts a dot path ("price.total", "rows.0.name") to a JSON
// pointer ("/price/total").
func DotToPointer(path string) string {
	if path == "" {
		return ""
	}
	segs := strings.Split(path, ".")
	for i, s := range segs {
		s = strings.ReplaceAll(s, "~", "~0")
		s = strings.ReplaceAll(s, "/", "~1")
		segs[i] = s
	}
	return "/" + strings.Join(segs, "/")
}

// PointerToDot converts a JSON pointer back to a dot path.
func PointerToDot(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	segs := strings.Split(pointer, "/")
	for i, s := range segs {
		s = strings.ReplaceAll(s, "~1", "/")
		s = strings.ReplaceAll(s, "~0", "~")
		segs[i] = s
	}
	return strings.Join(segs, ".")
}
