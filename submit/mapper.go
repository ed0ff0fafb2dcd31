// Package submit sends completed form records to the backend API and maps
// heterogeneous backend error payloads into field-keyed messages.
package submit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/propdesk/formflow/types"
)

// FallbackMessage is used when a failure payload yields no usable message.
const FallbackMessage = "submission failed, please try again"

// Backend validation error codes whose errors field carries per-field detail.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeDBValidationError = "DB_VALIDATION_ERROR"
)

// backendError is the envelope the API uses for failures. errors may be a
// field-keyed object or an array of free-text messages.
type backendError struct {
	Error   string `json:"error"`
	Errors  any    `json:"errors"`
	Message string `json:"message"`
}

// pathMessageRe extracts a leading field-path token from free-text messages
// such as "Path `location.address` is required." The path may use dot or
// bracket notation.
var pathMessageRe = regexp.MustCompile("^Path\\s+[`'\"]?([A-Za-z_$][A-Za-z0-9_$]*(?:\\.[A-Za-z0-9_$]+|\\[[0-9]+\\])*)[`'\"]?\\s*(.*)$")

var bracketRe = regexp.MustCompile(`\[([0-9]+)\]`)

// MapResponseBody parses a raw failure body into an ErrorMap. It is total:
// an unparseable body maps to the catch-all submit entry and nothing is ever
// propagated as an error.
func MapResponseBody(body []byte) types.ErrorMap {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return types.ErrorMap{types.SubmitKey: FallbackMessage}
	}

	var envelope backendError
	if err := sonic.Unmarshal(body, &envelope); err == nil {
		if envelope.Errors != nil {
			out := MapErrors(envelope.Errors)
			if len(out) > 0 {
				return out
			}
		}
		if envelope.Message != "" {
			return MapErrors(envelope.Message)
		}
	}

	// Not the known envelope; try the payload as-is.
	var generic any
	if err := sonic.Unmarshal(body, &generic); err == nil {
		return MapErrors(generic)
	}
	out := types.ErrorMap{}
	out.AppendSubmit(trimmed)
	return out
}

// MapErrors converts a decoded error payload into an ErrorMap. Handled
// shapes: a field-keyed object, an array of free-text messages with a
// leading field-path token, and bare strings. Messages matching no known
// pattern land under the submit key, concatenated with "; ".
func MapErrors(payload any) types.ErrorMap {
	out := types.ErrorMap{}
	switch v := payload.(type) {
	case map[string]any:
		for field, msg := range v {
			out[normalizePath(field)] = stringify(msg)
		}
	case []any:
		for _, item := range v {
			mapMessage(stringify(item), out)
		}
	case []string:
		for _, item := range v {
			mapMessage(item, out)
		}
	case string:
		mapMessage(v, out)
	case nil:
		// fall through to the fallback below
	default:
		mapMessage(stringify(v), out)
	}
	if len(out) == 0 {
		out[types.SubmitKey] = FallbackMessage
	}
	return out
}

// mapMessage routes one free-text message: field-keyed when a leading path
// token is found, submit catch-all otherwise.
func mapMessage(msg string, out types.ErrorMap) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	if m := pathMessageRe.FindStringSubmatch(msg); m != nil {
		field := normalizePath(m[1])
		rest := strings.TrimSpace(m[2])
		if rest == "" {
			rest = "is invalid"
		}
		if prev, ok := out[field]; ok && prev != "" {
			out[field] = prev + "; " + rest
		} else {
			out[field] = rest
		}
		return
	}
	out.AppendSubmit(msg)
}

// normalizePath rewrites bracket indices into dot-path form:
// "rows[0].name" -> "rows.0.name".
func normalizePath(path string) string {
	return bracketRe.ReplaceAllString(path, ".$1")
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
