package panel

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	model "github.com/zhouzirui/z-panel/backend/internal/model/panel"
)

// DefaultSessionTTL is the idle time after which a session is dropped.
const DefaultSessionTTL = 30 * time.Minute

type entry struct {
	session *model.Session
	// sem serializes turns on one session; a full channel means a turn holds it.
	sem chan struct{}
}

// idleExpired reports whether the session is past ttl and no turn holds it.
// The expiry check runs while holding the session's lock, so it never reads
// fields a turn is writing.
func (e *entry) idleExpired(now time.Time, ttl time.Duration) bool {
	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
		return e.session.Expired(now, ttl)
	default:
		return false
	}
}

// Store keeps panel sessions in memory. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	registry *model.Registry
	now      func() time.Time
	logger   *zap.Logger
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock replaces the wall clock used to stamp sessions.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithStoreLogger attaches a logger.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty store. registry may be nil, in which case only
// custom sessions can be created.
func NewStore(registry *model.Registry, opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*entry),
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFromTemplate builds a new session from a registered template. The
// session is not stored until Put is called.
func (s *Store) CreateFromTemplate(templateID string, includeModerator bool) (*model.Session, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrTemplateNotFound, templateID)
	}
	tmpl, ok := s.registry.Template(templateID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrTemplateNotFound, templateID)
	}

	session := s.newSession(tmpl.ID, tmpl.PersonaIDs, includeModerator)
	s.logger.Info("created panel session",
		zap.String("session", session.ID),
		zap.String("template", tmpl.ID))
	return session, nil
}

// CreateCustom builds a session from an explicit persona list. When known is
// non-nil every id must be a member of it.
func (s *Store) CreateCustom(personaIDs []string, includeModerator bool, known map[string]struct{}) (*model.Session, error) {
	if n := len(personaIDs); n < model.MinPanelists || n > model.MaxPanelists {
		return nil, &model.PersonaCountError{Got: n}
	}

	ids := make([]string, len(personaIDs))
	for i, id := range personaIDs {
		ids[i] = strings.TrimSpace(id)
	}

	if known != nil {
		var unknown []string
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				unknown = append(unknown, id)
			}
		}
		if len(unknown) > 0 {
			return nil, &model.UnknownPersonaError{IDs: unknown}
		}
	}

	session := s.newSession(model.CustomTemplateID, ids, includeModerator)
	s.logger.Info("created custom panel session",
		zap.String("session", session.ID),
		zap.Int("personas", len(ids)))
	return session, nil
}

func (s *Store) newSession(templateID string, personaIDs []string, includeModerator bool) *model.Session {
	now := s.now()
	return &model.Session{
		ID:           "panel-" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		TemplateID:   templateID,
		PersonaIDs:   slices.Clone(personaIDs),
		HasModerator: includeModerator,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Put stores or replaces session under its id and marks it active now.
func (s *Store) Put(session *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.LastActivity = s.now()
	if e, ok := s.sessions[session.ID]; ok {
		e.session = session
		return
	}
	s.sessions[session.ID] = &entry{session: session, sem: make(chan struct{}, 1)}
}

// Get returns the session when present and not expired. An expired session
// is removed on the first lookup; later lookups simply miss. Sessions with a
// turn in flight never expire.
func (s *Store) Get(id string, now time.Time, ttl time.Duration) (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if e.idleExpired(now, ttl) {
		delete(s.sessions, id)
		s.logger.Info("session expired and removed", zap.String("session", id))
		return nil, false
	}
	return e.session, true
}

// Delete removes and returns the session. Callers that read the returned
// session must hold its lock.
func (s *Store) Delete(id string) (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	delete(s.sessions, id)
	return e.session, true
}

// SweepExpired drops every idle session older than ttl and returns how many
// were removed.
func (s *Store) SweepExpired(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if !e.idleExpired(now, ttl) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	if removed > 0 {
		s.logger.Info("cleaned up expired panel sessions", zap.Int("removed", removed))
	}
	return removed
}

// Len reports the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Lock waits for exclusive use of a session. It reports false when the id is
// unknown; the error is non-nil only when ctx ends first.
func (s *Store) Lock(ctx context.Context, id string) (unlock func(), ok bool, err error) {
	s.mu.Lock()
	e, found := s.sessions[id]
	s.mu.Unlock()
	if !found {
		return nil, false, nil
	}

	select {
	case e.sem <- struct{}{}:
		return func() { <-e.sem }, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepExpired(s.now(), ttl)
		}
	}
}
