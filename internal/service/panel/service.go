package panel

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"

	model "github.com/zhouzirui/z-panel/backend/internal/model/panel"
	"github.com/zhouzirui/z-panel/backend/internal/model/persona"
)

const farewellMessage = "Thank you for participating in this panel discussion. " +
	"The panel members hope their diverse perspectives were helpful!"

// Event names emitted by the streaming operations.
const (
	EventSessionStarted = "session-started"
	EventModeratorIntro = "moderator-intro"
	EventPanelResponse  = "panel-response"
	EventTurnComplete   = "turn-complete"
	EventError          = "error"
)

// Event is one step of a streamed turn.
type Event struct {
	Name      string          `json:"event"`
	SessionID string          `json:"session_id,omitempty"`
	Response  *model.Response `json:"response,omitempty"`
	State     *model.State    `json:"state,omitempty"`
	Error     string          `json:"error,omitempty"`
	// Err keeps the original error for callers that map it to a status.
	Err error `json:"-"`
}

// StartRequest opens a session. PersonaIDs, when set, takes precedence over
// TemplateID and creates a custom panel.
type StartRequest struct {
	TemplateID       string   `json:"panel_config_id"`
	PersonaIDs       []string `json:"persona_ids"`
	IncludeModerator bool     `json:"include_moderator"`
	Message          string   `json:"message"`
	Skip             []string `json:"skip_personas"`
}

// StartResult is the outcome of Start.
type StartResult struct {
	SessionID string           `json:"session_id"`
	Intro     *model.Response  `json:"moderator_intro,omitempty"`
	Responses []model.Response `json:"responses"`
	State     model.State      `json:"panel_state"`
}

// TurnResult is the outcome of Continue.
type TurnResult struct {
	Responses []model.Response `json:"responses"`
	State     model.State      `json:"panel_state"`
}

// EndReport closes a session.
type EndReport struct {
	TotalExchanges  int    `json:"total_exchanges"`
	InsightsCount   int    `json:"insights_count"`
	FarewellMessage string `json:"farewell_message"`
}

// Config tunes a Service. Zero values take defaults.
type Config struct {
	SessionTTL           time.Duration
	SummaryThreshold     int
	MaxPreviousExchanges int
	CallTimeout          time.Duration
	Now                  func() time.Time
	Logger               *zap.Logger
}

// Service exposes panel sessions to the request layer.
type Service struct {
	store     *Store
	registry  *model.Registry
	personas  persona.Store
	orch      *Orchestrator
	moderator *Moderator
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires the panel subsystem. registry may be nil when only custom
// panels are offered.
func NewService(gen Generator, registry *model.Registry, personas persona.Store, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	var identity model.Moderator
	if registry != nil {
		identity, _ = registry.Moderator()
	}

	return &Service{
		store:    NewStore(registry, WithClock(cfg.Now), WithStoreLogger(cfg.Logger)),
		registry: registry,
		personas: personas,
		orch: NewOrchestrator(gen, personas, OrchestratorConfig{
			MaxPreviousExchanges: cfg.MaxPreviousExchanges,
			CallTimeout:          cfg.CallTimeout,
			Now:                  cfg.Now,
			Logger:               cfg.Logger,
		}),
		moderator: NewModerator(gen, personas, ModeratorConfig{
			Identity:         identity,
			SummaryThreshold: cfg.SummaryThreshold,
			CallTimeout:      cfg.CallTimeout,
			Now:              cfg.Now,
			Logger:           cfg.Logger,
		}),
		ttl:    cfg.SessionTTL,
		now:    cfg.Now,
		logger: cfg.Logger,
	}
}

// Store exposes the underlying session store.
func (s *Service) Store() *Store { return s.store }

// Personas lists the persona catalogue.
func (s *Service) Personas() []persona.Persona { return s.personas.List() }

// Templates lists the configured panel templates.
func (s *Service) Templates() []model.Template {
	if s.registry == nil {
		return []model.Template{}
	}
	return s.registry.Templates()
}

// Moderator returns the moderator persona in use.
func (s *Service) Moderator() model.Moderator { return s.moderator.identity }

// RunSweeper drops idle sessions every interval until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	return s.store.RunSweeper(ctx, interval, s.ttl)
}

// Start creates a session, introduces the panel when a moderator is
// included, and runs the first turn.
func (s *Service) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	var result StartResult
	for ev := range s.StartStream(ctx, req) {
		switch ev.Name {
		case EventSessionStarted:
			result.SessionID = ev.SessionID
		case EventModeratorIntro:
			result.Intro = ev.Response
		case EventPanelResponse:
			result.Responses = append(result.Responses, *ev.Response)
		case EventTurnComplete:
			result.State = *ev.State
		case EventError:
			return result, ev.Err
		}
	}
	if result.Responses == nil {
		result.Responses = []model.Response{}
	}
	return result, nil
}

// StartStream is the streaming form of Start. Nothing happens until the
// sequence is iterated; abandoning it mid-turn aborts the turn.
func (s *Service) StartStream(ctx context.Context, req StartRequest) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		s.sweep()

		session, err := s.create(req)
		if err != nil {
			yield(errorEvent("", err))
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			yield(errorEvent("", model.ErrEmptyMessage))
			return
		}

		s.store.Put(session)
		unlock, ok, err := s.store.Lock(ctx, session.ID)
		if err != nil || !ok {
			yield(errorEvent(session.ID, lockError(err)))
			return
		}
		defer unlock()

		if !yield(Event{Name: EventSessionStarted, SessionID: session.ID}) {
			return
		}

		if session.HasModerator {
			intro := s.moderator.Intro(ctx, session)
			if !yield(Event{Name: EventModeratorIntro, SessionID: session.ID, Response: &intro}) {
				return
			}
		}

		s.turn(ctx, session, req.Message, req.Skip, yield)
	}
}

// Continue runs one more turn. found is false when the session is unknown or
// expired.
func (s *Service) Continue(ctx context.Context, sessionID, message string, skip []string) (TurnResult, bool, error) {
	result := TurnResult{Responses: []model.Response{}}
	for ev := range s.ContinueStream(ctx, sessionID, message, skip) {
		switch ev.Name {
		case EventPanelResponse:
			result.Responses = append(result.Responses, *ev.Response)
		case EventTurnComplete:
			result.State = *ev.State
		case EventError:
			if errors.Is(ev.Err, ErrSessionNotFound) {
				return result, false, nil
			}
			return result, true, ev.Err
		}
	}
	return result, true, nil
}

// ErrSessionNotFound is carried by the error event of a stream whose session
// is unknown or expired.
var ErrSessionNotFound = errors.New("session not found or expired")

// ContinueStream is the streaming form of Continue.
func (s *Service) ContinueStream(ctx context.Context, sessionID, message string, skip []string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		s.sweep()

		if strings.TrimSpace(message) == "" {
			yield(errorEvent(sessionID, model.ErrEmptyMessage))
			return
		}

		session, unlock, err := s.acquire(ctx, sessionID)
		if err != nil {
			yield(errorEvent(sessionID, err))
			return
		}
		defer unlock()

		s.turn(ctx, session, message, skip, yield)
	}
}

// Summarize asks the moderator to recap the discussion so far.
func (s *Service) Summarize(ctx context.Context, sessionID string) (Summary, bool, error) {
	session, unlock, err := s.acquire(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, true, err
	}
	defer unlock()

	summary, err := s.moderator.Summarize(ctx, session)
	if err != nil {
		return Summary{}, true, err
	}
	return summary, true, nil
}

// End waits for any turn in flight, then deletes the session and reports on
// it. The error is non-nil only when ctx ends while waiting.
func (s *Service) End(ctx context.Context, sessionID string) (EndReport, bool, error) {
	unlock, ok, err := s.store.Lock(ctx, sessionID)
	if err != nil {
		return EndReport{}, true, err
	}
	if !ok {
		return EndReport{}, false, nil
	}
	defer unlock()

	session, ok := s.store.Delete(sessionID)
	if !ok {
		return EndReport{}, false, nil
	}
	s.logger.Info("panel session ended",
		zap.String("session", sessionID),
		zap.Int("exchanges", session.ExchangeCount))
	return EndReport{
		TotalExchanges:  session.ExchangeCount,
		InsightsCount:   session.ResponseCount(),
		FarewellMessage: farewellMessage,
	}, true, nil
}

// State snapshots the session as clients see it after a turn.
func (s *Service) State(session *model.Session) model.State {
	return model.State{
		Active:          true,
		ExchangeCount:   session.ExchangeCount,
		TotalPersonas:   len(session.PersonaIDs),
		HasModerator:    session.HasModerator,
		ShouldSummarize: s.moderator.ShouldSummarize(session),
	}
}

func (s *Service) turn(ctx context.Context, session *model.Session, message string, skip []string, yield func(Event) bool) {
	turn, err := s.orch.NewTurn(session, message, skip)
	if err != nil {
		yield(errorEvent(session.ID, err))
		return
	}

	for resp := range turn.Responses(ctx) {
		if !yield(Event{Name: EventPanelResponse, SessionID: session.ID, Response: &resp}) {
			return
		}
	}

	if turn.State() != TurnComplete {
		err := ctx.Err()
		if err == nil {
			err = errors.New("turn aborted")
		}
		yield(errorEvent(session.ID, err))
		return
	}

	state := s.State(session)
	yield(Event{Name: EventTurnComplete, SessionID: session.ID, State: &state})
}

func (s *Service) create(req StartRequest) (*model.Session, error) {
	if len(req.PersonaIDs) > 0 {
		known := make(map[string]struct{})
		for _, p := range s.personas.List() {
			known[p.ID] = struct{}{}
		}
		return s.store.CreateCustom(req.PersonaIDs, req.IncludeModerator, known)
	}
	return s.store.CreateFromTemplate(req.TemplateID, req.IncludeModerator)
}

// acquire looks up a live session and takes its lock.
func (s *Service) acquire(ctx context.Context, sessionID string) (*model.Session, func(), error) {
	if _, ok := s.store.Get(sessionID, s.now(), s.ttl); !ok {
		return nil, nil, ErrSessionNotFound
	}
	unlock, ok, err := s.store.Lock(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	// The session may have been ended while we waited.
	session, ok := s.store.Get(sessionID, s.now(), s.ttl)
	if !ok {
		unlock()
		return nil, nil, ErrSessionNotFound
	}
	return session, unlock, nil
}

func (s *Service) sweep() {
	s.store.SweepExpired(s.now(), s.ttl)
}

func lockError(err error) error {
	if err != nil {
		return err
	}
	return ErrSessionNotFound
}

func errorEvent(sessionID string, err error) Event {
	return Event{Name: EventError, SessionID: sessionID, Error: err.Error(), Err: err}
}
