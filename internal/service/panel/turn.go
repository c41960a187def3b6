package panel

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-panel/backend/internal/analysis/mood"
	model "github.com/zhouzirui/z-panel/backend/internal/model/panel"
	"github.com/zhouzirui/z-panel/backend/internal/model/persona"
)

// DefaultCallTimeout bounds a single generation call.
const DefaultCallTimeout = 30 * time.Second

// TurnState tracks a turn through its lifecycle.
type TurnState int

const (
	TurnPending TurnState = iota
	TurnInProgress
	TurnComplete
	TurnAborted
)

func (s TurnState) String() string {
	switch s {
	case TurnPending:
		return "pending"
	case TurnInProgress:
		return "in_progress"
	case TurnComplete:
		return "complete"
	case TurnAborted:
		return "aborted"
	default:
		return fmt.Sprintf("TurnState(%d)", int(s))
	}
}

// Orchestrator drives turns: every non-skipped persona answers the user
// message in session order, each seeing what earlier panelists said.
type Orchestrator struct {
	gen         Generator
	personas    persona.Store
	builder     ContextBuilder
	callTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// OrchestratorConfig tunes an Orchestrator. Zero values take defaults.
type OrchestratorConfig struct {
	MaxPreviousExchanges int
	CallTimeout          time.Duration
	Now                  func() time.Time
	Logger               *zap.Logger
}

// NewOrchestrator wires a generator and persona catalogue.
func NewOrchestrator(gen Generator, personas persona.Store, cfg OrchestratorConfig) *Orchestrator {
	o := &Orchestrator{
		gen:         gen,
		personas:    personas,
		builder:     ContextBuilder{MaxPreviousExchanges: cfg.MaxPreviousExchanges},
		callTimeout: cfg.CallTimeout,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
	if o.callTimeout <= 0 {
		o.callTimeout = DefaultCallTimeout
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Turn is a single pass over a session's panel. Its response sequence can be
// consumed once; later iterations yield nothing.
type Turn struct {
	o        *Orchestrator
	session  *model.Session
	message  string
	skip     map[string]struct{}
	state    TurnState
	exchange int
}

// NewTurn validates the message and prepares a turn. The caller must hold
// the session's lock until the turn's sequence has been consumed.
func (o *Orchestrator) NewTurn(session *model.Session, userMessage string, skip []string) (*Turn, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, model.ErrEmptyMessage
	}
	set := make(map[string]struct{}, len(skip))
	for _, id := range skip {
		set[id] = struct{}{}
	}
	return &Turn{o: o, session: session, message: userMessage, skip: set, exchange: -1}, nil
}

// Run is the eager form of a turn: it drains the sequence into a slice.
func (o *Orchestrator) Run(ctx context.Context, session *model.Session, userMessage string, skip []string) ([]model.Response, error) {
	turn, err := o.NewTurn(session, userMessage, skip)
	if err != nil {
		return nil, err
	}
	responses := slices.Collect(turn.Responses(ctx))
	if turn.State() == TurnAborted {
		return responses, ctx.Err()
	}
	return responses, nil
}

// State reports where the turn is in its lifecycle.
func (t *Turn) State() TurnState { return t.state }

// Responses yields each persona's response as soon as it is appended to the
// session history. Stopping early or cancelling ctx aborts the turn: the
// responses already produced stay in history but the exchange counter is not
// advanced.
func (t *Turn) Responses(ctx context.Context) iter.Seq[model.Response] {
	return func(yield func(model.Response) bool) {
		if t.state != TurnPending {
			return
		}
		t.state = TurnInProgress

		panelists := t.o.panelists(t.session)
		asked := 0
		for _, id := range t.session.PersonaIDs {
			if _, skipped := t.skip[id]; skipped {
				continue
			}
			if err := ctx.Err(); err != nil {
				t.abort(err)
				return
			}

			p, ok := t.o.personas.FindByID(id)
			if !ok {
				t.o.logger.Warn("persona config not found, skipping",
					zap.String("session", t.session.ID),
					zap.String("persona", id))
				continue
			}

			resp := t.o.respond(ctx, t, p)
			if err := ctx.Err(); err != nil {
				t.abort(err)
				return
			}
			resp.References = DetectReferences(resp.Text, p.ID, panelists)
			t.append(resp)
			asked++

			if !yield(resp) {
				t.abort(errors.New("consumer stopped"))
				return
			}
		}

		t.complete(asked)
	}
}

func (t *Turn) append(resp model.Response) {
	if t.exchange < 0 {
		t.session.History = append(t.session.History, model.Exchange{UserMessage: t.message})
		t.exchange = len(t.session.History) - 1
	}
	ex := &t.session.History[t.exchange]
	ex.Responses = append(ex.Responses, resp)
}

func (t *Turn) complete(asked int) {
	if t.exchange < 0 {
		// Nobody answered; the exchange is still recorded so the counter and
		// history length stay equal.
		t.session.History = append(t.session.History, model.Exchange{UserMessage: t.message})
	}
	t.session.ExchangeCount++
	t.session.LastActivity = t.o.now()
	t.state = TurnComplete

	t.o.logger.Info("panel turn complete",
		zap.String("session", t.session.ID),
		zap.Int("responses", asked),
		zap.Int("exchange_count", t.session.ExchangeCount))
}

func (t *Turn) abort(reason error) {
	t.state = TurnAborted
	t.o.logger.Info("panel turn aborted",
		zap.String("session", t.session.ID),
		zap.Error(reason))
}

// respond produces one persona's answer. Generation failures come back as a
// shocked response instead of an error.
func (o *Orchestrator) respond(ctx context.Context, t *Turn, p persona.Persona) model.Response {
	session := t.session
	past, current := session.History, (*model.Exchange)(nil)
	if t.exchange >= 0 {
		past, current = session.History[:t.exchange], &session.History[t.exchange]
	}
	prompt, err := o.builder.render(p, len(session.PersonaIDs), past, current, t.message)
	if err != nil {
		return o.failure(p, err)
	}
	prompt += responseInstructions()

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	raw, err := o.gen.Generate(callCtx, prompt)
	if err != nil {
		o.logger.Error("persona generation failed",
			zap.String("session", session.ID),
			zap.String("persona", p.ID),
			zap.Error(err))
		return o.failure(p, err)
	}

	text, m := ParseReply(raw)
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("I need a moment to process this... %s", p.DisplayName())
	}

	o.logger.Debug("generated persona response",
		zap.String("session", session.ID),
		zap.String("persona", p.ID),
		zap.String("mood", string(m)),
		zap.Int("length", len(text)))

	return model.Response{
		PersonaID:   p.ID,
		PersonaName: p.DisplayName(),
		Text:        text,
		Mood:        m,
		References:  []string{},
		Asset:       mood.Asset(p.MoodAssets, m),
		CreatedAt:   o.now(),
	}
}

func (o *Orchestrator) failure(p persona.Persona, err error) model.Response {
	detail := err.Error()
	if r := []rune(detail); len(r) > 50 {
		detail = string(r[:50])
	}
	return model.Response{
		PersonaID:   p.ID,
		PersonaName: p.DisplayName(),
		Text:        fmt.Sprintf("[Error: I'm experiencing technical difficulties. %s]", detail),
		Mood:        mood.Shocked,
		References:  []string{},
		Asset:       mood.Asset(p.MoodAssets, mood.Shocked),
		CreatedAt:   o.now(),
	}
}

// panelists resolves the session's personas as reference candidates.
func (o *Orchestrator) panelists(session *model.Session) []Candidate {
	out := make([]Candidate, 0, len(session.PersonaIDs))
	for _, id := range session.PersonaIDs {
		if p, ok := o.personas.FindByID(id); ok {
			out = append(out, Candidate{ID: p.ID, Name: p.Name})
		}
	}
	return out
}
