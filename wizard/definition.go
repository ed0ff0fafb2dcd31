// Package wizard defines multi-step form definitions for the back-office
// entity kinds and computes per-step validation status over a record.
package wizard

import (
	"github.com/propdesk/formflow/record"
	"github.com/propdesk/formflow/types"
	"github.com/propdesk/formflow/validate"
)

// Step is one page of a wizard. It owns a subset of fields, the blocking
// rules for them, and any non-blocking advisories. Steps are fixed at
// definition time and immutable during a session.
type Step struct {
	ID             string
	Title          string
	RequiredFields []string
	Rules          []validate.Rule
	Advisories     []validate.Advisory
}

func (s Step) validate(r record.Record) types.ErrorMap {
	return validate.Rules(s.Rules...)(r)
}

// Definition describes a wizard for one entity kind: its ordered steps,
// endpoints, and the shape transforms between records and entity payloads.
type Definition struct {
	Kind       string
	Steps      []Step
	CreatePath string
	// UpdatePath is a format string taking the entity id, e.g.
	// "/api/properties/%s".
	UpdatePath string

	// Transform maps the session record to the submit payload (e.g. flatten
	// price.total into price). Nil means identity.
	Transform func(r record.Record) record.Record
	// FromEntity maps a persisted entity into a session record for edit
	// mode. Nil means the entity is used as-is.
	FromEntity func(entity map[string]any) record.Record

	// Defaults is the initial record for add mode.
	Defaults record.Record
}

func (d *Definition) StepCount() int {
	return len(d.Steps)
}

// StatusForStep validates one step. Out-of-range indexes report valid with
// no errors.
func (d *Definition) StatusForStep(index int, r record.Record) (types.StepStatus, types.ErrorMap) {
	if index < 0 || index >= len(d.Steps) {
		return types.StepStatus{IsValid: true}, nil
	}
	errs := d.Steps[index].validate(r)
	return statusOf(errs), errs
}

// WarningsForStep collects the step's advisory messages.
func (d *Definition) WarningsForStep(index int, r record.Record) []string {
	if index < 0 || index >= len(d.Steps) {
		return nil
	}
	var out []string
	for _, adv := range d.Steps[index].Advisories {
		out = append(out, adv(r)...)
	}
	return out
}

// StatusForAllSteps unions every step's errors. The record is submit-ready
// iff the union is empty.
func (d *Definition) StatusForAllSteps(r record.Record) (bool, types.ErrorMap) {
	all := types.ErrorMap{}
	for _, step := range d.Steps {
		all.Merge(step.validate(r))
	}
	return all.IsEmpty(), all
}

// StatusPerStep computes every step's status for progress indicators. A step
// is "complete" purely as a function of current data, not visit history, so
// clearing a field immediately invalidates its owning step again.
func (d *Definition) StatusPerStep(r record.Record) map[string]types.StepStatus {
	out := make(map[string]types.StepStatus, len(d.Steps))
	for _, step := range d.Steps {
		out[step.ID] = statusOf(step.validate(r))
	}
	return out
}

func statusOf(errs types.ErrorMap) types.StepStatus {
	return types.StepStatus{
		IsValid:    errs.IsEmpty(),
		HasErrors:  !errs.IsEmpty(),
		ErrorCount: len(errs),
	}
}

// OutboundPayload applies the kind-specific submit transform.
func (d *Definition) OutboundPayload(r record.Record) record.Record {
	if d.Transform == nil {
		return r.Clone()
	}
	return d.Transform(r.Clone())
}

// RecordFromEntity applies the kind-specific edit-mode mapping.
func (d *Definition) RecordFromEntity(entity map[string]any) record.Record {
	if entity == nil {
		entity = map[string]any{}
	}
	if d.FromEntity == nil {
		return record.Record(entity).Clone()
	}
	return d.FromEntity(entity)
}

// InitialRecord is the default record for add mode.
func (d *Definition) InitialRecord() record.Record {
	if d.Defaults == nil {
		return record.New()
	}
	return d.Defaults.Clone()
}
