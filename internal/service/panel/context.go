package panel

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/z-panel/backend/internal/analysis/mood"
	model "github.com/zhouzirui/z-panel/backend/internal/model/panel"
	"github.com/zhouzirui/z-panel/backend/internal/model/persona"
)

// DefaultMaxPreviousExchanges bounds how many completed turns feed a prompt.
const DefaultMaxPreviousExchanges = 3

// ContextBuilder assembles the prompt context for one persona in one turn.
type ContextBuilder struct {
	// MaxPreviousExchanges caps the completed exchanges included as history.
	// The exchange being built is always included in full.
	MaxPreviousExchanges int
}

func (b ContextBuilder) window() int {
	if b.MaxPreviousExchanges <= 0 {
		return DefaultMaxPreviousExchanges
	}
	return b.MaxPreviousExchanges
}

// Build renders the context for p answering userMessage. It only reads the
// session: the last exchange counts as the one being built when it is newer
// than the completed-turn counter and carries the same message.
func (b ContextBuilder) Build(session *model.Session, p persona.Persona, userMessage string) (string, error) {
	past, current := splitHistory(session, userMessage)
	return b.render(p, len(session.PersonaIDs), past, current, userMessage)
}

func (b ContextBuilder) render(p persona.Persona, panelSize int, past []model.Exchange, current *model.Exchange, userMessage string) (string, error) {
	if strings.TrimSpace(userMessage) == "" {
		return "", model.ErrEmptyMessage
	}
	if n := b.window(); len(past) > n {
		past = past[len(past)-n:]
	}

	var sb strings.Builder

	sb.WriteString("SYSTEM INSTRUCTIONS:\n")
	sb.WriteString(strings.TrimSpace(p.SystemInstructions))
	sb.WriteString("\n\n")

	sb.WriteString("PANEL DISCUSSION CONTEXT:\n")
	fmt.Fprintf(&sb, "You are participating in a panel discussion with %d personas.\n", panelSize)
	sb.WriteString("Stay true to your own voice and perspective while staying aware of what your co-panelists say.\n")

	if len(past) > 0 {
		sb.WriteString("\nEARLIER DISCUSSION:\n")
		for _, ex := range past {
			fmt.Fprintf(&sb, "User: %s\n", ex.UserMessage)
			for _, r := range ex.Responses {
				fmt.Fprintf(&sb, "%s: %s\n", r.PersonaName, r.Text)
			}
		}
	}

	sb.WriteString("\nUSER'S MESSAGE:\n")
	sb.WriteString(userMessage)
	sb.WriteString("\n")

	if current != nil && len(current.Responses) > 0 {
		sb.WriteString("\nPREVIOUS PANELIST RESPONSES:\n")
		sb.WriteString("The following panel members have already responded to this message:\n")
		for _, r := range current.Responses {
			fmt.Fprintf(&sb, "- %s said: %q\n", r.PersonaName, r.Text)
		}
		sb.WriteString("\nINSTRUCTIONS: You may reference, build upon, or challenge the insights of ")
		sb.WriteString("other panelists by mentioning them by name, but you are not required to. ")
		sb.WriteString("Keep your own perspective and personality.\n")
	}

	return sb.String(), nil
}

func splitHistory(session *model.Session, userMessage string) (past []model.Exchange, current *model.Exchange) {
	history := session.History
	if n := len(history); n > 0 && n > session.ExchangeCount && history[n-1].UserMessage == userMessage {
		return history[:n-1], &history[n-1]
	}
	return history, nil
}

func responseInstructions() string {
	return "\nPlease respond in JSON format with the following structure:\n" +
		"{\n" +
		`  "response": "Your response (2-4 sentences)",` + "\n" +
		`  "mood": "` + mood.Choices() + `"` + "\n" +
		"}\n\nRespond now:"
}
