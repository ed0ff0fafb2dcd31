// Package session implements the form session controller: one instance per
// open wizard, holding the record, step index, error state, and draft
// lifecycle, and orchestrating navigation and submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/propdesk/formflow/draft"
	"github.com/propdesk/formflow/record"
	"github.com/propdesk/formflow/submit"
	"github.com/propdesk/formflow/types"
	"github.com/propdesk/formflow/wizard"
)

// Mode selects between creating a new entity and editing an existing one.
// Edit sessions mutate a real entity and never touch drafts.
type Mode string

const (
	ModeAdd  Mode = "add"
	ModeEdit Mode = "edit"
)

var (
	ErrNotOpen        = errors.New("session is not open for editing")
	ErrAlreadyOpen    = errors.New("session already opened")
	ErrDraftPending   = errors.New("a draft offer is pending; restore or discard it first")
	ErrNoDraftOffer   = errors.New("no draft offer is pending")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	ErrValidation     = errors.New("record has validation errors")
	ErrEditModeDraft  = errors.New("edit sessions do not save drafts")
	ErrCloseBlocked   = errors.New("session is dirty; resolve the close confirmation")
)

// DefaultDebounce is the quiet period before an auto-save fires.
const DefaultDebounce = 2500 * time.Millisecond

// NewEntityKey is the draft key used by add-mode sessions.
const NewEntityKey = "new"

// Session is a single wizard run. All methods are safe for concurrent use;
// internally one mutex serializes the event flow.
type Session struct {
	id  string
	def *wizard.Definition

	mode     Mode
	entityID string

	drafts    draft.Store
	submitter submit.Submitter
	logger    *slog.Logger
	onSuccess func(entity map[string]any)

	debounceDur time.Duration

	mu       sync.Mutex
	phase    types.Phase
	rec      record.Record
	initial  record.Record
	step     int
	errs     types.ErrorMap
	debounce *time.Timer
}

// Option configures a session.
type Option func(*Session)

// WithEntityID sets the entity being edited; required for edit mode.
func WithEntityID(id string) Option {
	return func(s *Session) { s.entityID = id }
}

// WithDraftStore enables draft persistence for add-mode sessions.
func WithDraftStore(store draft.Store) Option {
	return func(s *Session) { s.drafts = store }
}

// WithSubmitter sets the backend collaborator.
func WithSubmitter(sub submit.Submitter) Option {
	return func(s *Session) { s.submitter = sub }
}

// WithLogger overrides the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithDebounce overrides the auto-save quiet period.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounceDur = d }
}

// WithOnSuccess registers the callback receiving the saved entity.
func WithOnSuccess(fn func(entity map[string]any)) Option {
	return func(s *Session) { s.onSuccess = fn }
}

// New creates a session in the Uninitialized phase. Call Open to start it.
func New(def *wizard.Definition, mode Mode, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		def:         def,
		mode:        mode,
		logger:      slog.Default(),
		debounceDur: DefaultDebounce,
		phase:       types.PhaseUninitialized,
		errs:        types.ErrorMap{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id, "kind", def.Kind, "mode", string(mode))
	return s
}

// ID returns the session identifier used in log lines.
func (s *Session) ID() string {
	return s.id
}

// Open initializes the session. In edit mode the entity is converted into
// the form record and drafts are never consulted. In add mode a fresh draft
// moves the session into the DraftOffered phase, blocking edits until the
// user restores or discards it.
func (s *Session) Open(ctx context.Context, entity map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhaseUninitialized {
		return ErrAlreadyOpen
	}
	s.phase = types.PhaseInitializing

	if s.mode == ModeEdit {
		s.rec = s.def.RecordFromEntity(entity)
		s.initial = s.rec.Clone()
		s.phase = types.PhaseEditing
		s.logger.Debug("session opened", "phase", s.phase, "entity_id", s.entityID)
		return nil
	}

	s.rec = s.def.InitialRecord()
	s.initial = s.rec.Clone()
	if s.drafts != nil && s.drafts.Exists(ctx, s.draftKey()) {
		s.phase = types.PhaseDraftOffered
		s.logger.Debug("session opened with draft offer")
		return nil
	}
	s.phase = types.PhaseEditing
	s.logger.Debug("session opened", "phase", s.phase)
	return nil
}

// RestoreDraft resolves a pending draft offer by loading the stored record.
// The restored session is dirty relative to the defaults snapshot. If the
// draft expired between the offer and the restore, the session falls back to
// the defaults.
func (s *Session) RestoreDraft(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhaseDraftOffered {
		return ErrNoDraftOffer
	}
	if data, ok := s.drafts.Load(ctx, s.draftKey()); ok {
		s.rec = data
	}
	s.phase = types.PhaseEditing
	s.logger.Debug("draft restored", "dirty", s.dirtyLocked())
	return nil
}

// DiscardDraft resolves a pending draft offer by deleting the stored record
// and starting from the defaults.
func (s *Session) DiscardDraft(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhaseDraftOffered {
		return ErrNoDraftOffer
	}
	s.drafts.Clear(ctx, s.draftKey())
	s.phase = types.PhaseEditing
	s.logger.Debug("draft discarded")
	return nil
}

// SetField updates one field. The update is applied to a copy, the field's
// existing error entry is cleared optimistically regardless of the new
// value, and a debounced auto-save is scheduled for dirty add-mode sessions.
// Re-validation happens on navigation or submit, not on every keystroke.
func (s *Session) SetField(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEditing(); err != nil {
		return err
	}
	s.rec = s.rec.Set(path, value)
	delete(s.errs, path)
	s.scheduleAutosaveLocked()
	return nil
}

// ApplyOps applies an RFC 6902 bulk edit with the same optimistic error
// clearing and dirty semantics as SetField.
func (s *Session) ApplyOps(ops []record.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEditing(); err != nil {
		return err
	}
	next, err := record.ApplyOps(s.rec, ops)
	if err != nil {
		return fmt.Errorf("apply ops: %w", err)
	}
	s.rec = next
	for _, op := range ops {
		delete(s.errs, record.PointerToDot(op.Path))
	}
	s.scheduleAutosaveLocked()
	return nil
}

// Next advances to the next step if the current step validates. On failure
// the step's errors merge into the session errors and the step does not
// change. The index caps at the last step.
func (s *Session) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhaseEditing {
		return false
	}
	status, errs := s.def.StatusForStep(s.step, s.rec)
	if !status.IsValid {
		s.errs.Merge(errs)
		return false
	}
	if s.step < s.def.StepCount()-1 {
		s.step++
	}
	return true
}

// Previous moves one step back; it always succeeds unless already at the
// first step.
func (s *Session) Previous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhaseEditing || s.step == 0 {
		return false
	}
	s.step--
	return true
}

// Jump moves directly to a step index; navigation via the step indicator is
// never gated.
func (s *Session) Jump(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhaseEditing {
		return
	}
	if index < 0 {
		index = 0
	}
	if max := s.def.StepCount() - 1; index > max {
		index = max
	}
	s.step = index
}

// Submit validates the whole record and sends it to the backend. Local
// validation failure returns ErrValidation with no network call. A second
// submit while one is in flight returns ErrSubmitInFlight. Success clears
// the draft (add mode), resets dirtiness, moves the session to Closed, and
// invokes the success callback. Failure maps the response into session
// errors and returns to Editing at the current step.
func (s *Session) Submit(ctx context.Context) (map[string]any, error) {
	s.mu.Lock()
	if s.phase == types.PhaseSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if s.phase != types.PhaseEditing {
		s.mu.Unlock()
		return nil, ErrNotOpen
	}
	if s.submitter == nil {
		s.mu.Unlock()
		return nil, errors.New("no submitter configured")
	}

	// Transient errors are cleared before the full re-validation.
	s.errs = types.ErrorMap{}
	ok, errs := s.def.StatusForAllSteps(s.rec)
	if !ok {
		s.errs = errs
		s.mu.Unlock()
		return nil, ErrValidation
	}

	s.phase = types.PhaseSubmitting
	s.cancelAutosaveLocked()
	req := submit.Request{
		Method: "POST",
		Path:   s.def.CreatePath,
		Body:   s.def.OutboundPayload(s.rec),
	}
	if s.mode == ModeEdit {
		req.Method = "PUT"
		req.Path = fmt.Sprintf(s.def.UpdatePath, s.entityID)
	}
	submitter := s.submitter
	s.mu.Unlock()

	entity, err := submitter.Submit(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		var subErr *submit.Error
		if errors.As(err, &subErr) {
			s.errs.Merge(subErr.Fields)
		} else {
			s.errs.AppendSubmit(err.Error())
		}
		s.phase = types.PhaseEditing
		s.logger.Debug("submit failed", "errors", len(s.errs))
		return nil, err
	}

	if s.mode == ModeAdd && s.drafts != nil {
		s.drafts.Clear(ctx, s.draftKey())
	}
	s.initial = s.rec.Clone()
	s.phase = types.PhaseClosed
	s.logger.Debug("submit succeeded")
	if s.onSuccess != nil {
		s.onSuccess(entity)
	}
	return entity, nil
}

// Close attempts to end the session. A clean session closes immediately. A
// dirty session returns ErrCloseBlocked; the caller resolves it with
// DiscardAndClose, SaveDraftAndClose, or by abandoning the close. Closing is
// blocked while a submission is in flight.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case types.PhaseClosed:
		return nil
	case types.PhaseSubmitting:
		return ErrSubmitInFlight
	case types.PhaseUninitialized:
		s.phase = types.PhaseClosed
		return nil
	}
	if s.dirtyLocked() {
		return ErrCloseBlocked
	}
	s.closeLocked()
	return nil
}

// DiscardAndClose resolves a blocked close: the draft is cleared (add mode),
// the record resets to its initialization snapshot, and the session closes.
func (s *Session) DiscardAndClose(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == types.PhaseSubmitting {
		return ErrSubmitInFlight
	}
	if s.mode == ModeAdd && s.drafts != nil {
		s.drafts.Clear(ctx, s.draftKey())
	}
	s.rec = s.initial.Clone()
	s.closeLocked()
	return nil
}

// SaveDraftAndClose resolves a blocked close by persisting the draft first.
// Add mode only.
func (s *Session) SaveDraftAndClose(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == types.PhaseSubmitting {
		return ErrSubmitInFlight
	}
	if s.mode != ModeAdd {
		return ErrEditModeDraft
	}
	if s.drafts != nil {
		s.drafts.Save(ctx, s.draftKey(), s.rec.Clone())
	}
	s.closeLocked()
	return nil
}

func (s *Session) closeLocked() {
	s.cancelAutosaveLocked()
	s.phase = types.PhaseClosed
	s.logger.Debug("session closed")
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() types.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// StepIndex returns the current step.
func (s *Session) StepIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Record returns a copy of the current record.
func (s *Session) Record() record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Clone()
}

// Errors returns a copy of the current error state.
func (s *Session) Errors() types.ErrorMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs.Clone()
}

// Dirty reports whether the record differs structurally from the snapshot
// captured at initialization.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

// CanSubmit reports whether any known field error blocks submission. The
// synthetic submit entry does not block a retry.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == types.PhaseEditing && !s.errs.HasBlocking()
}

// StepStatuses recomputes every step's status for progress indicators.
func (s *Session) StepStatuses() map[string]types.StepStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def.StatusPerStep(s.rec)
}

// Warnings returns the current step's advisory messages.
func (s *Session) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def.WarningsForStep(s.step, s.rec)
}

// FlushDraft persists the draft immediately, bypassing the debounce. Only
// dirty add-mode editing sessions write.
func (s *Session) FlushDraft(ctx context.Context) {
	s.mu.Lock()
	store := s.drafts
	write := s.mode == ModeAdd && store != nil && s.phase == types.PhaseEditing && s.dirtyLocked()
	var data record.Record
	var key string
	if write {
		s.cancelAutosaveLocked()
		data = s.rec.Clone()
		key = s.draftKey()
	}
	s.mu.Unlock()
	if write {
		store.Save(ctx, key, data)
	}
}

func (s *Session) requireEditing() error {
	switch s.phase {
	case types.PhaseEditing:
		return nil
	case types.PhaseDraftOffered:
		return ErrDraftPending
	case types.PhaseSubmitting:
		return ErrSubmitInFlight
	default:
		return ErrNotOpen
	}
}

func (s *Session) dirtyLocked() bool {
	return !record.Equal(s.rec, s.initial)
}

func (s *Session) draftKey() string {
	if s.entityID != "" {
		return s.entityID
	}
	return NewEntityKey
}

// scheduleAutosaveLocked resets the pending debounce timer. Only the timer
// that survives the quiet period performs a write, so rapid edits coalesce
// into one save holding the last state.
func (s *Session) scheduleAutosaveLocked() {
	if s.mode != ModeAdd || s.drafts == nil {
		return
	}
	if !s.dirtyLocked() {
		return
	}
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.debounceDur, func() {
		s.FlushDraft(context.Background())
	})
}

func (s *Session) cancelAutosaveLocked() {
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}
