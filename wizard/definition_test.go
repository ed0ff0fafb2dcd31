package wizard

import (
	"testing"

	"github.com/propdesk/formflow/record"
)

// completeProperty fills every required field of every property step.
func completeProperty() record.Record {
	r := Property().InitialRecord()
	for path, value := range map[string]any{
		"title":            "Marina loft",
		"propertyType":     "apartment",
		"bedrooms":         2,
		"bathrooms":        0,
		"floorLevel":       14,
		"area":             "1250 sq ft",
		"location.address": "12 Harbour Walk",
		"location.city":    "Dubai",
		"price.total":      1850000,
	} {
		r = r.Set(path, value)
	}
	return r
}

func TestCompleteRecordIsSubmitReady(t *testing.T) {
	t.Parallel()
	def := Property()
	ok, errs := def.StatusForAllSteps(completeProperty())
	if !ok {
		t.Fatalf("complete record should be submit-ready, got errors: %v", errs)
	}
}

func TestClearingFieldInvalidatesOnlyItsStep(t *testing.T) {
	t.Parallel()
	def := Property()
	r := completeProperty().Delete("location.address")

	per := def.StatusPerStep(r)
	if per["location"].IsValid {
		t.Error("location step should be invalid after clearing its required field")
	}
	if per["location"].ErrorCount != 1 {
		t.Errorf("location step error count = %d, want 1", per["location"].ErrorCount)
	}
	for _, id := range []string{"basics", "pricing", "contacts"} {
		if !per[id].IsValid {
			t.Errorf("step %s should be unaffected", id)
		}
	}
}

func TestStepCompletenessIsPureFunctionOfData(t *testing.T) {
	t.Parallel()
	// No visited-state machine: a previously valid step flips back to
	// invalid the moment its data does.
	def := Property()
	r := completeProperty()

	status, _ := def.StatusForStep(0, r)
	if !status.IsValid {
		t.Fatal("basics should start valid")
	}
	r = r.Set("title", "")
	status, errs := def.StatusForStep(0, r)
	if status.IsValid {
		t.Error("basics should be invalid again after clearing title")
	}
	if errs["title"] == "" {
		t.Errorf("expected a title error, got %v", errs)
	}
}

func TestStatusForStepOutOfRange(t *testing.T) {
	t.Parallel()
	def := Property()
	status, errs := def.StatusForStep(99, record.New())
	if !status.IsValid || len(errs) != 0 {
		t.Errorf("out-of-range step should report valid: %+v %v", status, errs)
	}
}

func TestProjectMilestoneAdvisoryDoesNotBlock(t *testing.T) {
	t.Parallel()
	def := Project()
	r := record.Record{
		"name":      "Harbour Heights",
		"status":    "under_construction",
		"city":      "Dubai",
		"community": "Marina East",
		"milestones": []any{
			map[string]any{"name": "foundation", "percent": 70.0},
			map[string]any{"name": "structure", "percent": 60.0},
		},
	}

	ok, errs := def.StatusForAllSteps(r)
	if !ok {
		t.Fatalf("advisory overflow must not block submission: %v", errs)
	}

	milestoneStep := -1
	for i, s := range def.Steps {
		if s.ID == "milestones" {
			milestoneStep = i
		}
	}
	warnings := def.WarningsForStep(milestoneStep, r)
	if len(warnings) != 1 {
		t.Errorf("expected a percent-sum warning, got %v", warnings)
	}
}

func TestLoadDefinitionYAML(t *testing.T) {
	t.Parallel()
	doc := []byte(`
kind: career
create_path: /api/careers
update_path: /api/careers/%s
steps:
  - id: basics
    title: Basics
    required: [title, department]
    rules:
      - {type: required_string, path: title, label: Title}
      - {type: required_string, path: department, label: Department}
      - {type: required_number, path: openings, label: Openings, min: 1, max: 50}
  - id: contact
    rules:
      - {type: email, path: contactEmail, label: Contact email}
      - {type: required_string, path: managerName, label: Manager name, when_any: [managerName, managerEmail]}
`)
	def, err := LoadDefinition(doc)
	if err != nil {
		t.Fatalf("LoadDefinition failed: %v", err)
	}
	if def.Kind != "career" || len(def.Steps) != 2 {
		t.Fatalf("unexpected definition: %+v", def)
	}

	r := record.Record{"title": "Agent", "department": "Sales", "openings": 2}
	if ok, errs := def.StatusForAllSteps(r); !ok {
		t.Errorf("valid record rejected: %v", errs)
	}

	bad := record.Record{"title": "Agent", "department": "Sales", "openings": 0, "managerEmail": "m@x.com"}
	ok, errs := def.StatusForAllSteps(bad)
	if ok {
		t.Fatal("invalid record accepted")
	}
	if errs["openings"] == "" {
		t.Errorf("range rule from YAML not applied: %v", errs)
	}
	if errs["managerName"] == "" {
		t.Errorf("when_any gate from YAML not applied: %v", errs)
	}
}

func TestLoadDefinitionRejectsUnknownRule(t *testing.T) {
	t.Parallel()
	_, err := LoadDefinition([]byte(`
kind: x
steps:
  - id: s
    rules:
      - {type: regexish, path: a}
`))
	if err == nil {
		t.Fatal("unknown rule type should fail loading")
	}
}
