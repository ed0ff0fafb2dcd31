package record

import (
	"reflect"
	"testing"
)

func TestGetDotPath(t *testing.T) {
	t.Parallel()
	r := Record{
		"title": "Marina loft",
		"price": map[string]any{"total": 1850000.0},
		"rows": []any{
			map[string]any{"name": "foundation"},
			map[string]any{"name": "structure"},
		},
	}

	if v, ok := r.Get("price.total"); !ok || v != 1850000.0 {
		t.Errorf("Get(price.total) = %v, %v; want 1850000, true", v, ok)
	}
	if v, ok := r.Get("rows.1.name"); !ok || v != "structure" {
		t.Errorf("Get(rows.1.name) = %v, %v; want structure, true", v, ok)
	}
	if _, ok := r.Get("price.currency"); ok {
		t.Error("Get on a missing leaf should report absent")
	}
	if _, ok := r.Get("missing.deep.path"); ok {
		t.Error("Get through missing intermediates should report absent, not panic")
	}
	if _, ok := r.Get("rows.7.name"); ok {
		t.Error("Get past the end of an array should report absent")
	}
	if _, ok := r.Get("title.sub"); ok {
		t.Error("Get through a scalar should report absent")
	}
}

func TestSetCreatesIntermediates(t *testing.T) {
	t.Parallel()
	r := New()
	r = r.Set("location.address", "12 Harbour Walk")
	r = r.Set("milestones.1.percent", 40)

	if v, ok := r.Get("location.address"); !ok || v != "12 Harbour Walk" {
		t.Fatalf("nested set failed: %v, %v", v, ok)
	}
	if v, ok := r.Get("milestones.1.percent"); !ok || v != 40 {
		t.Fatalf("array set failed: %v, %v", v, ok)
	}
	if rows, ok := r.SliceAt("milestones"); !ok || len(rows) != 2 {
		t.Fatalf("array should have grown to index+1, got %v", rows)
	}
}

func TestSetDoesNotMutateReceiver(t *testing.T) {
	t.Parallel()
	base := Record{"price": map[string]any{"total": 100.0}}
	next := base.Set("price.total", 200)

	if v, _ := base.Get("price.total"); v != 100.0 {
		t.Errorf("Set mutated the receiver: %v", v)
	}
	if v, _ := next.Get("price.total"); v != 200 {
		t.Errorf("Set lost the new value: %v", v)
	}
}

func TestCloneIsolation(t *testing.T) {
	t.Parallel()
	r := Record{"nested": map[string]any{"a": 1}, "arr": []any{1, 2}}
	c := r.Clone()
	c["nested"].(map[string]any)["a"] = 99
	c["arr"].([]any)[0] = 99

	if v, _ := r.Get("nested.a"); v != 1 {
		t.Errorf("clone shares nested map: %v", v)
	}
	if v, _ := r.Get("arr.0"); v != 1 {
		t.Errorf("clone shares array: %v", v)
	}
}

func TestEqualNormalizesNumbers(t *testing.T) {
	t.Parallel()
	// A setter writes int, a decoder produces float64. Structural equality
	// must not treat them as different.
	a := Record{"bedrooms": 2}
	b := Record{"bedrooms": 2.0}
	if !Equal(a, b) {
		t.Error("int and float64 of the same value should compare equal")
	}
	if Equal(a, Record{"bedrooms": 3}) {
		t.Error("different values should not compare equal")
	}
	if !Equal(nil, Record{}) {
		t.Error("nil and empty should compare equal")
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	r := Record{"price": map[string]any{"total": 1.0, "currency": "AED"}}
	r = r.Delete("price.currency")
	if _, ok := r.Get("price.currency"); ok {
		t.Error("Delete left the value in place")
	}
	if _, ok := r.Get("price.total"); !ok {
		t.Error("Delete removed a sibling")
	}
	// Missing paths are a no-op.
	r = r.Delete("nothing.here")
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()
	r := Record{"title": "x", "price": map[string]any{"total": 5.0}}
	raw, err := r.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	back, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if !Equal(r, back) {
		t.Errorf("round trip changed the record: %v vs %v", r, back)
	}
}

func TestNumberAtCoercion(t *testing.T) {
	t.Parallel()
	r := Record{"a": 1, "b": 2.5, "c": int64(3), "d": "4", "e": nil}
	cases := []struct {
		path string
		want float64
		ok   bool
	}{
		{"a", 1, true},
		{"b", 2.5, true},
		{"c", 3, true},
		{"d", 0, false},
		{"e", 0, false},
		{"missing", 0, false},
	}
	for _, tc := range cases {
		got, ok := r.NumberAt(tc.path)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NumberAt(%s) = %v, %v; want %v, %v", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPointerConversion(t *testing.T) {
	t.Parallel()
	if got := DotToPointer("price.total"); got != "/price/total" {
		t.Errorf("DotToPointer = %q", got)
	}
	if got := PointerToDot("/rows/0/name"); got != "rows.0.name" {
		t.Errorf("PointerToDot = %q", got)
	}
	if got := PointerToDot(DotToPointer("a.b.c")); got != "a.b.c" {
		t.Errorf("round trip = %q", got)
	}
}

func TestSliceAt(t *testing.T) {
	t.Parallel()
	r := Record{"rows": []any{1, 2}}
	rows, ok := r.SliceAt("rows")
	if !ok || !reflect.DeepEqual(rows, []any{1, 2}) {
		t.Errorf("SliceAt = %v, %v", rows, ok)
	}
	if _, ok := r.SliceAt("missing"); ok {
		t.Error("SliceAt on missing path should report absent")
	}
}
