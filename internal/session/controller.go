// Package session buffers the edits a user makes to one component's year of
// values and flushes them to the persistence collaborator when the user
// moves on.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/input"
	applog "bilancio/internal/log"
)

// State of the controller's state machine.
type State int

const (
	Idle State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "idle"
}

var ErrNotEditing = errors.New("no entity is being edited")

// Store is the subset of the persistence collaborator a session needs.
type Store interface {
	core.HierarchyReader
	core.ValueStore
	core.NoteStore
}

// FlushErrorFunc is called from the flush goroutine when a flush fails.
type FlushErrorFunc func(ref core.EntityRef, err error)

// Snapshot is a copy of the controller's buffer.
type Snapshot struct {
	State      State
	Ref        core.EntityRef
	Values     core.Months
	Notes      core.MonthNotes
	Dirty      bool
	NotesDirty bool
}

type flushJob struct {
	ref         core.EntityRef
	values      core.Months
	notes       core.MonthNotes
	writeValues bool
	writeNotes  bool
	done        chan struct{}
}

// overlaps reports whether loading ref now could read what this job has
// not written yet. Notes are shared by both kinds of a component's year.
func (j *flushJob) overlaps(ref core.EntityRef) bool {
	if j.ref.ComponentID != ref.ComponentID || j.ref.Year != ref.Year {
		return false
	}
	return j.writeNotes || (j.writeValues && j.ref.Kind == ref.Kind)
}

func (j *flushJob) finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Controller is the Idle/Editing state machine. All buffered state lives
// here; mutations hold mu so a flush never captures a half-applied fill.
type Controller struct {
	store   Store
	logger  *applog.Logger
	onError FlushErrorFunc

	mu         sync.Mutex
	state      State
	ref        core.EntityRef
	values     core.Months
	notes      core.MonthNotes
	dirty      bool
	notesDirty bool

	flushes sync.WaitGroup
	// dispatched jobs, pruned once finished
	inflight []*flushJob
}

// Option configures a Controller.
type Option func(*Controller)

// WithFlushErrorHandler wires a callback for failed flushes. Without one,
// failures are only logged.
func WithFlushErrorHandler(fn FlushErrorFunc) Option {
	return func(c *Controller) { c.onError = fn }
}

func NewController(store Store, logger *applog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	c := &Controller{
		store:  store,
		logger: logger.WithComponent(applog.ComponentSession),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin starts editing ref. If another entity is being edited with pending
// changes, its flush is dispatched before ref's values are loaded. Loading
// waits for this controller's in-flight flushes of the same values or notes,
// so the buffer never starts from a state older than the last commit.
func (c *Controller) Begin(ctx context.Context, ref core.EntityRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Editing {
		c.dispatchFlushLocked(ctx)
		c.resetLocked()
	}

	if err := c.awaitOverlappingLocked(ctx, ref); err != nil {
		return err
	}

	sections, err := c.store.Hierarchy(ctx)
	if err != nil {
		return fmt.Errorf("load hierarchy: %w", err)
	}
	if _, ok := core.FindComponent(sections, ref.ComponentID); !ok {
		return fmt.Errorf("component %d: %w", ref.ComponentID, core.ErrNotFound)
	}

	values, err := c.store.Values(ctx, ref.Kind, ref.Year)
	if err != nil {
		return fmt.Errorf("load %s values: %w", ref.Kind, err)
	}
	notes, err := c.store.Notes(ctx, ref.Year)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}

	c.state = Editing
	c.ref = ref
	c.values = values[ref.ComponentID]
	c.notes = notes[ref.ComponentID]
	c.dirty = false
	c.notesDirty = false
	return nil
}

// ApplyKeystroke commits the text typed into a month cell and returns the
// stored value.
func (c *Controller) ApplyKeystroke(month int, raw string) (decimal.Decimal, error) {
	if !core.ValidMonth(month) {
		return decimal.Zero, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Editing {
		return decimal.Zero, ErrNotEditing
	}
	v := input.ParseCellInput(raw)
	c.values[month-1] = v
	c.dirty = true
	return v, nil
}

// SetNote buffers a month's note; empty text deletes it on flush.
func (c *Controller) SetNote(month int, text string) error {
	if !core.ValidMonth(month) {
		return fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Editing {
		return ErrNotEditing
	}
	c.notes[month-1] = core.NormalizeNote(text)
	c.notesDirty = true
	return nil
}

// PreviewPaste parses a pasted row without touching the buffer so the
// caller can show the warnings and let the user abort.
func (c *Controller) PreviewPaste(text string) input.ClipboardResult {
	return input.ParseClipboard(text)
}

// ApplyPaste writes the parsed row into consecutive months starting at
// anchorMonth. Cells that failed to parse are written as zero; values that
// would land after December are dropped.
func (c *Controller) ApplyPaste(text string, anchorMonth int) (input.ClipboardResult, error) {
	if !core.ValidMonth(anchorMonth) {
		return input.ClipboardResult{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, anchorMonth)
	}
	res := input.ParseClipboard(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Editing {
		return res, ErrNotEditing
	}
	if len(res.Values) == 0 {
		return res, nil
	}
	for i, v := range res.Values {
		month := anchorMonth + i
		if month > 12 {
			break
		}
		c.values[month-1] = v
	}
	c.dirty = true
	return res, nil
}

// ApplyFillDrag overwrites the inclusive range between source and target
// with the buffered source value. It reports whether anything was written.
func (c *Controller) ApplyFillDrag(source, target int) (bool, error) {
	if !core.ValidMonth(source) || !core.ValidMonth(target) {
		return false, core.ErrInvalidMonth
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Editing {
		return false, ErrNotEditing
	}
	if !input.ApplyFill(&c.values, source, target) {
		return false, nil
	}
	c.dirty = true
	return true, nil
}

// Commit dispatches the pending flush, if any, and returns to Idle without
// waiting for it.
func (c *Controller) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Editing {
		return ErrNotEditing
	}
	c.dispatchFlushLocked(ctx)
	c.resetLocked()
	return nil
}

// Discard drops the buffer and returns to Idle without flushing.
func (c *Controller) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Close makes a best-effort final flush and waits for every flush this
// controller has dispatched.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	if c.state == Editing {
		c.dispatchFlushLocked(ctx)
		c.resetLocked()
	}
	c.mu.Unlock()
	c.Wait()
}

// Wait blocks until in-flight flushes have completed.
func (c *Controller) Wait() {
	c.flushes.Wait()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:      c.state,
		Ref:        c.ref,
		Values:     c.values,
		Notes:      c.notes,
		Dirty:      c.dirty,
		NotesDirty: c.notesDirty,
	}
}

func (c *Controller) resetLocked() {
	c.state = Idle
	c.ref = core.EntityRef{}
	c.values = core.Months{}
	c.notes = core.MonthNotes{}
	c.dirty = false
	c.notesDirty = false
}

// dispatchFlushLocked hands a by-value copy of the buffer to a goroutine.
// The flush outlives the caller's request, so it keeps ctx's values but
// not its cancellation.
func (c *Controller) dispatchFlushLocked(ctx context.Context) {
	if !c.dirty && !c.notesDirty {
		return
	}
	job := &flushJob{
		ref:         c.ref,
		values:      c.values,
		notes:       c.notes,
		writeValues: c.dirty,
		writeNotes:  c.notesDirty,
		done:        make(chan struct{}),
	}
	c.dirty = false
	c.notesDirty = false

	live := c.inflight[:0]
	for _, j := range c.inflight {
		if !j.finished() {
			live = append(live, j)
		}
	}
	c.inflight = append(live, job)

	flushCtx := context.WithoutCancel(ctx)
	c.flushes.Add(1)
	go func() {
		defer c.flushes.Done()
		defer close(job.done)
		c.flush(flushCtx, job)
	}()
}

// awaitOverlappingLocked blocks until every in-flight flush touching ref's
// keys has finished. Flush goroutines never take mu, so holding it here
// cannot deadlock.
func (c *Controller) awaitOverlappingLocked(ctx context.Context, ref core.EntityRef) error {
	for _, j := range c.inflight {
		if !j.overlaps(ref) {
			continue
		}
		select {
		case <-j.done:
		case <-ctx.Done():
			return fmt.Errorf("wait for pending flush: %w", ctx.Err())
		}
	}
	return nil
}

func (c *Controller) flush(ctx context.Context, job *flushJob) {
	fields := applog.NewFields().
		WithEntity(int64(job.ref.ComponentID), job.ref.Year, string(job.ref.Kind)).
		WithOperation(applog.OpFlush)

	if job.writeValues {
		if err := c.store.UpsertValues(ctx, job.ref.Kind, job.ref.ComponentID, job.ref.Year, job.values.Map()); err != nil {
			c.fail(ctx, job.ref, fmt.Errorf("flush values: %w", err), fields)
			return
		}
	}
	if job.writeNotes {
		if err := c.store.UpsertNotes(ctx, job.ref.ComponentID, job.ref.Year, job.notes.Map()); err != nil {
			c.fail(ctx, job.ref, fmt.Errorf("flush notes: %w", err), fields)
			return
		}
	}
	c.logger.DebugContext(ctx, "Edit session flushed", fields.ToSlice()...)
}

func (c *Controller) fail(ctx context.Context, ref core.EntityRef, err error, fields applog.LogFields) {
	c.logger.ErrorContext(ctx, "Edit session flush failed", fields.WithError(err).ToSlice()...)
	if c.onError != nil {
		c.onError(ref, err)
	}
}
