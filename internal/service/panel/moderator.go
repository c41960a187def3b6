package panel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-panel/backend/internal/analysis/mood"
	model "github.com/zhouzirui/z-panel/backend/internal/model/panel"
	"github.com/zhouzirui/z-panel/backend/internal/model/persona"
)

const (
	// DefaultSummaryThreshold is the exchange count at which a summary is offered.
	DefaultSummaryThreshold = 3

	defaultModeratorID   = "moderator-dr-panel"
	defaultModeratorName = "Dr. Panel"

	fallbackIntro   = "Welcome! Today's panel is ready to discuss your concerns."
	fallbackSummary = "The panel has provided diverse perspectives on your situation. " +
		"Key themes include understanding your feelings and finding practical solutions."
)

// ShouldSummarize reports whether the session has reached threshold exchanges.
func ShouldSummarize(session *model.Session, threshold int) bool {
	return session.ExchangeCount >= threshold
}

// Summary is the moderator's recap of recent exchanges.
type Summary struct {
	model.Response
	KeyInsights []string `json:"key_insights"`
}

// Moderator introduces the panel and summarizes its discussion.
type Moderator struct {
	gen         Generator
	personas    persona.Store
	identity    model.Moderator
	threshold   int
	callTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// ModeratorConfig tunes a Moderator. Zero values take defaults.
type ModeratorConfig struct {
	// Identity is the configured moderator persona; a zero value falls back
	// to the built-in Dr. Panel.
	Identity         model.Moderator
	SummaryThreshold int
	CallTimeout      time.Duration
	Now              func() time.Time
	Logger           *zap.Logger
}

// NewModerator builds a moderator around gen.
func NewModerator(gen Generator, personas persona.Store, cfg ModeratorConfig) *Moderator {
	m := &Moderator{
		gen:         gen,
		personas:    personas,
		identity:    cfg.Identity,
		threshold:   cfg.SummaryThreshold,
		callTimeout: cfg.CallTimeout,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
	if m.identity.ID == "" {
		m.identity.ID = defaultModeratorID
	}
	if m.identity.Name == "" {
		m.identity.Name = defaultModeratorName
	}
	if m.threshold <= 0 {
		m.threshold = DefaultSummaryThreshold
	}
	if m.callTimeout <= 0 {
		m.callTimeout = DefaultCallTimeout
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Threshold returns the configured summary threshold.
func (m *Moderator) Threshold() int { return m.threshold }

// ShouldSummarize applies the configured threshold to session.
func (m *Moderator) ShouldSummarize(session *model.Session) bool {
	return ShouldSummarize(session, m.threshold)
}

// Intro welcomes the user and names the panelists. Generation failures fall
// back to a fixed welcome.
func (m *Moderator) Intro(ctx context.Context, session *model.Session) model.Response {
	names := make([]string, 0, len(session.PersonaIDs))
	for _, id := range session.PersonaIDs {
		if p, ok := m.personas.FindByID(id); ok {
			names = append(names, p.DisplayName())
			continue
		}
		names = append(names, titleFromID(id))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, the moderator of this therapeutic panel discussion.\n", m.identity.Name)
	if instr := strings.TrimSpace(m.identity.SystemInstructions); instr != "" {
		sb.WriteString("\n")
		sb.WriteString(instr)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nThe panel includes: %s\n\n", joinNames(names))
	sb.WriteString("Generate a brief, warm welcome message (1-2 sentences) introducing these panelists to the user.\n")
	sb.WriteString("Keep it professional but friendly.")

	text, err := m.generate(ctx, sb.String())
	if err != nil {
		m.logger.Error("moderator intro failed",
			zap.String("session", session.ID),
			zap.Error(err))
		text = fallbackIntro
	}
	if text = stripCodeFences(text); text == "" {
		text = fallbackIntro
	}

	m.logger.Info("generated moderator introduction", zap.String("session", session.ID))
	return m.response(text, []string{})
}

// Summarize recaps the most recent exchanges and credits the panelists it
// mentions. It fails only when the session has no history.
func (m *Moderator) Summarize(ctx context.Context, session *model.Session) (Summary, error) {
	if len(session.History) == 0 {
		return Summary{}, model.ErrNoHistory
	}

	var transcript strings.Builder
	for _, ex := range session.RecentExchanges(m.threshold) {
		fmt.Fprintf(&transcript, "User: %s\n", ex.UserMessage)
		for _, r := range ex.Responses {
			fmt.Fprintf(&transcript, "%s: %s\n", r.PersonaName, r.Text)
		}
	}

	prompt := fmt.Sprintf(`You are %s, the moderator of this therapeutic panel discussion.

Review the following discussion and provide a concise summary:

%s
Please respond in JSON format:
{
  "summary": "Brief summary of the discussion with key themes (3-5 sentences)",
  "key_insights": ["Insight 1", "Insight 2", "Insight 3"]
}

Credit specific panelists by name when mentioning their insights.`, m.identity.Name, transcript.String())

	raw, err := m.generate(ctx, prompt)
	if err != nil {
		m.logger.Error("moderator summary failed",
			zap.String("session", session.ID),
			zap.Error(err))
		return Summary{Response: m.response(fallbackSummary, []string{}), KeyInsights: []string{}}, nil
	}

	text, insights, ok := parseSummary(raw)
	if !ok {
		m.logger.Warn("summary was not json, using raw text", zap.String("session", session.ID))
	}
	text = renderInsights(text, insights)
	if insights == nil {
		insights = []string{}
	}

	refs := DetectReferences(text, m.identity.ID, historyCandidates(session))
	m.logger.Info("generated panel summary",
		zap.String("session", session.ID),
		zap.Int("referenced", len(refs)))

	return Summary{Response: m.response(text, refs), KeyInsights: insights}, nil
}

func (m *Moderator) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	raw, err := m.gen.Generate(callCtx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (m *Moderator) response(text string, refs []string) model.Response {
	return model.Response{
		PersonaID:   m.identity.ID,
		PersonaName: m.identity.Name,
		Text:        text,
		Mood:        mood.Neutral,
		References:  refs,
		Asset:       mood.Asset(m.identity.MoodAssets, mood.Neutral),
		CreatedAt:   m.now(),
	}
}

// historyCandidates lists every persona that ever answered in the session,
// in order of first appearance.
func historyCandidates(session *model.Session) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})
	for _, ex := range session.History {
		for _, r := range ex.Responses {
			if _, ok := seen[r.PersonaID]; ok {
				continue
			}
			seen[r.PersonaID] = struct{}{}
			out = append(out, Candidate{ID: r.PersonaID, Name: r.PersonaName})
		}
	}
	return out
}

// joinNames renders "A", "A and B" or "A, B, and C".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

// titleFromID turns "dr-luna-cosmos" into "Dr Luna Cosmos".
func titleFromID(id string) string {
	parts := strings.Split(id, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		parts[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(parts, " ")
}
