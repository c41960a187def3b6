package panel

import (
	"time"

	"github.com/zhouzirui/z-panel/backend/internal/analysis/mood"
)

const (
	// MinPanelists and MaxPanelists bound the persona count of every session.
	MinPanelists = 2
	MaxPanelists = 4

	// CustomTemplateID marks sessions assembled from an explicit persona list.
	CustomTemplateID = "custom"
)

// Response is one persona's answer within a turn. It is never mutated after
// it has been appended to a session's history.
type Response struct {
	PersonaID   string    `json:"persona_id"`
	PersonaName string    `json:"persona_name"`
	Text        string    `json:"response"`
	Mood        mood.Mood `json:"mood"`
	References  []string  `json:"references"`
	Asset       string    `json:"ascii_art"`
	CreatedAt   time.Time `json:"timestamp"`
}

// Exchange pairs a user message with the responses it produced.
type Exchange struct {
	UserMessage string     `json:"user_message"`
	Responses   []Response `json:"responses"`
}

// Session is one ongoing panel discussion.
type Session struct {
	ID            string     `json:"session_id"`
	TemplateID    string     `json:"panel_config_id"`
	PersonaIDs    []string   `json:"persona_ids"`
	HasModerator  bool       `json:"has_moderator"`
	ExchangeCount int        `json:"exchange_count"`
	History       []Exchange `json:"discussion_history"`
	CreatedAt     time.Time  `json:"created_at"`
	LastActivity  time.Time  `json:"last_updated"`
}

// State is the panel snapshot reported to clients after a turn.
type State struct {
	Active          bool `json:"active"`
	ExchangeCount   int  `json:"exchange_count"`
	TotalPersonas   int  `json:"total_personas"`
	HasModerator    bool `json:"has_moderator"`
	ShouldSummarize bool `json:"should_summarize"`
}

// Expired reports whether the session has been idle for longer than ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	last := s.LastActivity
	if last.IsZero() {
		last = s.CreatedAt
	}
	if last.IsZero() {
		return false
	}
	return now.Sub(last) > ttl
}

// ResponseCount totals the responses across the whole history.
func (s *Session) ResponseCount() int {
	total := 0
	for _, ex := range s.History {
		total += len(ex.Responses)
	}
	return total
}

// RecentExchanges returns at most n exchanges from the end of the history.
func (s *Session) RecentExchanges(n int) []Exchange {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
