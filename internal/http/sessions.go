package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/session"
)

// editSession pairs a controller with the bookkeeping the registry needs.
type editSession struct {
	id   string
	ctrl *session.Controller

	mu        sync.Mutex
	lastUsed  time.Time
	lastError string
}

func (e *editSession) touch(now time.Time) {
	e.mu.Lock()
	e.lastUsed = now
	e.mu.Unlock()
}

func (e *editSession) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

func (e *editSession) setFlushError(err error) {
	e.mu.Lock()
	e.lastError = err.Error()
	e.mu.Unlock()
}

func (e *editSession) flushError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

func (e *editSession) dto() SessionDTO {
	return toSessionDTO(e.id, e.ctrl.Snapshot(), e.flushError())
}

// SessionRegistry owns the open edit sessions. Sessions unused for longer
// than the idle timeout are closed, which makes their best-effort flush.
type SessionRegistry struct {
	store       session.Store
	logger      *applog.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*editSession

	stop     chan struct{}
	stopOnce sync.Once
	sweeper  sync.WaitGroup
}

func NewSessionRegistry(store session.Store, idleTimeout time.Duration, logger *applog.Logger) *SessionRegistry {
	if logger == nil {
		logger = applog.Discard()
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &SessionRegistry{
		store:       store,
		logger:      logger.WithComponent(applog.ComponentSession),
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*editSession),
		stop:        make(chan struct{}),
	}
}

// Create opens an idle session and returns it.
func (r *SessionRegistry) Create() *editSession {
	sess := &editSession{id: uuid.NewString(), lastUsed: r.now()}
	sess.ctrl = session.NewController(r.store, r.logger,
		session.WithFlushErrorHandler(func(_ core.EntityRef, err error) { sess.setFlushError(err) }))

	r.mu.Lock()
	r.sessions[sess.id] = sess
	r.mu.Unlock()

	r.logger.Debug("Edit session opened", applog.FieldSessionID, sess.id)
	return sess
}

// Get returns the session and marks it as used.
func (r *SessionRegistry) Get(id string) (*editSession, error) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, core.ErrNotFound)
	}
	sess.touch(r.now())
	return sess, nil
}

// Remove closes the session, waiting for its final flush.
func (r *SessionRegistry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q: %w", id, core.ErrNotFound)
	}
	sess.ctrl.Close(ctx)
	r.logger.DebugContext(ctx, "Edit session closed", applog.FieldSessionID, id)
	return nil
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes every session idle for longer than the timeout and returns
// how many were closed.
func (r *SessionRegistry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTimeout)

	var expired []*editSession
	r.mu.Lock()
	for id, sess := range r.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range expired {
		sess.ctrl.Close(ctx)
		r.logger.InfoContext(ctx, "Idle edit session closed", applog.FieldSessionID, sess.id)
	}
	return len(expired)
}

// StartSweeper runs Sweep every interval until Close.
func (r *SessionRegistry) StartSweeper(interval time.Duration) {
	r.sweeper.Add(1)
	go func() {
		defer r.sweeper.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep(context.Background())
			case <-r.stop:
				return
			}
		}
	}()
}

// Close stops the sweeper and closes every session, so pending edits get
// their final flush before shutdown.
func (r *SessionRegistry) Close(ctx context.Context) {
	r.stopOnce.Do(func() { close(r.stop) })
	r.sweeper.Wait()

	r.mu.Lock()
	open := make([]*editSession, 0, len(r.sessions))
	for id, sess := range r.sessions {
		open = append(open, sess)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, sess := range open {
		sess.ctrl.Close(ctx)
	}
	if len(open) > 0 {
		r.logger.InfoContext(ctx, "Edit sessions closed", "count", len(open))
	}
}
