// Package types holds the shared leaf types of the form session engine.
package types

import (
	"sort"
	"strings"
)

// Phase is the lifecycle state of a form session.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseInitializing  Phase = "initializing"
	PhaseDraftOffered  Phase = "draft_offered"
	PhaseEditing       Phase = "editing"
	PhaseSubmitting    Phase = "submitting"
	PhaseClosed        Phase = "closed"
)

// SubmitKey is the catch-all error key for failures that map to no field.
// Errors under this key never block resubmission.
const SubmitKey = "submit"

// ErrorMap maps a dot-path field name to a human-readable message. Local
// validators and the backend error mapper both produce this shape; renderers
// cannot tell them apart.
type ErrorMap map[string]string

func (m ErrorMap) IsEmpty() bool {
	return len(m) == 0
}

func (m ErrorMap) Clone() ErrorMap {
	if m == nil {
		return nil
	}
	out := make(ErrorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge copies entries from other into m. Colliding field entries are
// overwritten; colliding SubmitKey entries are concatenated with "; ".
func (m ErrorMap) Merge(other ErrorMap) {
	for k, v := range other {
		if k == SubmitKey {
			m.AppendSubmit(v)
			continue
		}
		m[k] = v
	}
}

// AppendSubmit adds msg to the catch-all SubmitKey entry.
func (m ErrorMap) AppendSubmit(msg string) {
	if msg == "" {
		return
	}
	if prev, ok := m[SubmitKey]; ok && prev != "" {
		m[SubmitKey] = prev + "; " + msg
		return
	}
	m[SubmitKey] = msg
}

// HasBlocking reports whether any field error other than the synthetic
// SubmitKey entry is present.
func (m ErrorMap) HasBlocking() bool {
	for k := range m {
		if k != SubmitKey {
			return true
		}
	}
	return false
}

// Fields returns the sorted field paths present in the map.
func (m ErrorMap) Fields() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m ErrorMap) String() string {
	parts := make([]string, 0, len(m))
	for _, k := range m.Fields() {
		parts = append(parts, k+": "+m[k])
	}
	return strings.Join(parts, "; ")
}

// StepStatus summarizes one step's validity for progress indicators.
type StepStatus struct {
	IsValid    bool `json:"is_valid"`
	HasErrors  bool `json:"has_errors"`
	ErrorCount int  `json:"error_count"`
}
