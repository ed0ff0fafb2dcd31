package record

import "testing"

func TestApplyOpsBasic(t *testing.T) {
	t.Parallel()
	r := Record{"title": "old", "price": map[string]any{"total": 100.0}}

	out, err := ApplyOps(r, []Operation{
		{Op: OpReplace, Path: "/title", Value: "new"},
		{Op: OpReplace, Path: "/price/total", Value: 250},
	})
	if err != nil {
		t.Fatalf("ApplyOps failed: %v", err)
	}
	if v, _ := out.Get("title"); v != "new" {
		t.Errorf("title = %v", v)
	}
	if v, _ := out.NumberAt("price.total"); v != 250 {
		t.Errorf("price.total = %v", v)
	}
	// Source untouched.
	if v, _ := r.Get("title"); v != "old" {
		t.Errorf("ApplyOps mutated the input: %v", v)
	}
}

func TestApplyOpsFixups(t *testing.T) {
	t.Parallel()
	r := Record{"title": "x"}

	// Replace against a missing path downgrades to add; remove against a
	// missing path is dropped instead of failing the whole patch.
	out, err := ApplyOps(r, []Operation{
		{Op: OpReplace, Path: "/status", Value: "ready"},
		{Op: OpRemove, Path: "/ghost"},
	})
	if err != nil {
		t.Fatalf("ApplyOps failed: %v", err)
	}
	if v, _ := out.Get("status"); v != "ready" {
		t.Errorf("status = %v", v)
	}
}

func TestApplyOpsEmpty(t *testing.T) {
	t.Parallel()
	r := Record{"a": 1}
	out, err := ApplyOps(r, nil)
	if err != nil {
		t.Fatalf("ApplyOps(nil) failed: %v", err)
	}
	if !Equal(r, out) {
		t.Error("empty ops should return an equal record")
	}
}
