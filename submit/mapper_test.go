package submit

import (
	"testing"

	"github.com/propdesk/formflow/types"
)

func TestMapErrorsPathToken(t *testing.T) {
	t.Parallel()
	out := MapErrors([]any{"Path `location.address` is required."})
	if got := out["location.address"]; got != "is required." {
		t.Errorf("MapErrors = %v, want location.address: %q", out, "is required.")
	}
	if len(out) != 1 {
		t.Errorf("unexpected extra entries: %v", out)
	}
}

func TestMapErrorsUnmatchedFallsToSubmit(t *testing.T) {
	t.Parallel()
	out := MapErrors([]any{"unexpected failure"})
	if got := out[types.SubmitKey]; got != "unexpected failure" {
		t.Errorf("MapErrors = %v, want submit: %q", out, "unexpected failure")
	}
}

func TestMapErrorsMixedConcatenatesSubmit(t *testing.T) {
	t.Parallel()
	out := MapErrors([]any{
		"Path `price` must be positive",
		"something broke",
		"something else broke",
	})
	if out["price"] != "must be positive" {
		t.Errorf("field entry missing: %v", out)
	}
	if out[types.SubmitKey] != "something broke; something else broke" {
		t.Errorf("catch-all should concatenate with ;: %q", out[types.SubmitKey])
	}
}

func TestMapErrorsKeyedObject(t *testing.T) {
	t.Parallel()
	out := MapErrors(map[string]any{
		"title":           "Title is required",
		"rows[0].percent": "must be at most 100",
	})
	if out["title"] != "Title is required" {
		t.Errorf("keyed object entry missing: %v", out)
	}
	if out["rows.0.percent"] != "must be at most 100" {
		t.Errorf("bracket notation should normalize to dots: %v", out)
	}
}

func TestMapErrorsBracketPathInMessage(t *testing.T) {
	t.Parallel()
	out := MapErrors([]any{"Path `milestones[2].percent` exceeds the maximum"})
	if out["milestones.2.percent"] != "exceeds the maximum" {
		t.Errorf("bracket path should map to a dot path: %v", out)
	}
}

func TestMapErrorsTotalOnGarbage(t *testing.T) {
	t.Parallel()
	for _, payload := range []any{nil, 42, []any{}, map[string]any{}} {
		out := MapErrors(payload)
		if len(out) == 0 {
			t.Errorf("MapErrors(%v) must return at least a submit entry", payload)
		}
	}
}

func TestMapResponseBodyValidationEnvelope(t *testing.T) {
	t.Parallel()
	body := []byte(`{"error":"VALIDATION_ERROR","errors":["Path ` + "`location.address`" + ` is required."],"message":"validation failed"}`)
	out := MapResponseBody(body)
	if out["location.address"] != "is required." {
		t.Errorf("envelope errors should win over message: %v", out)
	}
}

func TestMapResponseBodyGenericMessage(t *testing.T) {
	t.Parallel()
	out := MapResponseBody([]byte(`{"message":"internal error"}`))
	if out[types.SubmitKey] != "internal error" {
		t.Errorf("generic message should land under submit: %v", out)
	}
}

func TestMapResponseBodyUnparseable(t *testing.T) {
	t.Parallel()
	out := MapResponseBody([]byte(`<html>bad gateway</html>`))
	if out[types.SubmitKey] == "" {
		t.Errorf("unparseable body must degrade to the submit catch-all: %v", out)
	}

	out = MapResponseBody(nil)
	if out[types.SubmitKey] != FallbackMessage {
		t.Errorf("empty body should use the fallback message: %v", out)
	}
}
