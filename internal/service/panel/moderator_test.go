package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-panel/backend/internal/analysis/mood"
	model "github.com/zhouzirui/z-panel/backend/internal/model/panel"
)

func TestShouldSummarize(t *testing.T) {
	for count := 0; count <= 5; count++ {
		session := &model.Session{ExchangeCount: count}
		assert.Equal(t, count >= 3, ShouldSummarize(session, 3), "count %d", count)
	}
	assert.True(t, ShouldSummarize(&model.Session{ExchangeCount: 1}, 1))
}

func TestIntroNamesPanelists(t *testing.T) {
	gen := newFakeGenerator()
	gen.reply = func(context.Context, string) (string, error) {
		return "```md\n# heading\n```\nWelcome to the panel!", nil
	}
	mod := NewModerator(gen, testPersonas(), ModeratorConfig{})
	session := newTestSession("alpha", "beta", "ghost-writer")

	resp := mod.Intro(context.Background(), session)
	assert.Equal(t, "Welcome to the panel!", resp.Text)
	assert.Equal(t, "moderator-dr-panel", resp.PersonaID)
	assert.Equal(t, "Dr. Panel", resp.PersonaName)
	assert.Equal(t, mood.Neutral, resp.Mood)
	assert.Empty(t, resp.References)

	prompt := gen.promptFor("moderator")
	assert.Contains(t, prompt, "The panel includes: Dr. Alpha Ames, Beta Bloom, and Ghost Writer")
	assert.Empty(t, session.History, "the intro is not part of the discussion")
}

func TestIntroFallsBack(t *testing.T) {
	gen := newFakeGenerator()
	gen.reply = func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}
	identity := model.Moderator{ID: "mod", Name: "Host", MoodAssets: map[string]string{"neutral": "[H]"}}
	mod := NewModerator(gen, testPersonas(), ModeratorConfig{Identity: identity})

	resp := mod.Intro(context.Background(), newTestSession("alpha", "beta"))
	assert.Equal(t, fallbackIntro, resp.Text)
	assert.Equal(t, "mod", resp.PersonaID)
	assert.Equal(t, "[H]", resp.Asset)
}

func TestJoinNames(t *testing.T) {
	assert.Equal(t, "", joinNames(nil))
	assert.Equal(t, "A", joinNames([]string{"A"}))
	assert.Equal(t, "A and B", joinNames([]string{"A", "B"}))
	assert.Equal(t, "A, B, C, and D", joinNames([]string{"A", "B", "C", "D"}))
}

func TestSummarizeRequiresHistory(t *testing.T) {
	gen := newFakeGenerator()
	mod := NewModerator(gen, testPersonas(), ModeratorConfig{})

	_, err := mod.Summarize(context.Background(), newTestSession("alpha", "beta"))
	assert.ErrorIs(t, err, model.ErrNoHistory)
	assert.Empty(t, gen.calls())
}

func historySession(n int) *model.Session {
	session := newTestSession("alpha", "beta")
	for i := 1; i <= n; i++ {
		session.History = append(session.History, model.Exchange{
			UserMessage: fmt.Sprintf("worry number %d", i),
			Responses: []model.Response{
				{PersonaID: "alpha", PersonaName: "Dr. Alpha Ames", Text: "alpha take"},
				{PersonaID: "beta", PersonaName: "Beta Bloom", Text: "beta take"},
			},
		})
	}
	session.ExchangeCount = n
	return session
}

func TestSummarizeCreditsPanelists(t *testing.T) {
	gen := newFakeGenerator()
	gen.reply = func(context.Context, string) (string, error) {
		return `Here you go: {"summary": "Beta Bloom urged rest while Retired Rita pushed back.", "key_insights": ["Rest", "Boundaries"]}`, nil
	}
	mod := NewModerator(gen, testPersonas(), ModeratorConfig{})
	session := historySession(4)
	session.History[0].Responses = append(session.History[0].Responses,
		model.Response{PersonaID: "rita", PersonaName: "Retired Rita", Text: "old take"})

	summary, err := mod.Summarize(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, "Beta Bloom urged rest while Retired Rita pushed back.\n\nKey Insights:\n1. Rest\n2. Boundaries", summary.Text)
	assert.Equal(t, []string{"Rest", "Boundaries"}, summary.KeyInsights)
	assert.Equal(t, []string{"beta", "rita"}, summary.References)
	assert.Equal(t, "moderator-dr-panel", summary.PersonaID)

	prompt := gen.promptFor("moderator")
	assert.NotContains(t, prompt, "worry number 1\n")
	for i := 2; i <= 4; i++ {
		assert.Contains(t, prompt, fmt.Sprintf("User: worry number %d\n", i))
	}
	assert.Contains(t, prompt, "Beta Bloom: beta take")
}

func TestSummarizeUsesRawTextWhenNotJSON(t *testing.T) {
	gen := newFakeGenerator()
	gen.reply = func(context.Context, string) (string, error) {
		return "Everyone was kind. Dr. Alpha Ames led.", nil
	}
	mod := NewModerator(gen, testPersonas(), ModeratorConfig{SummaryThreshold: 2})

	summary, err := mod.Summarize(context.Background(), historySession(1))
	require.NoError(t, err)
	assert.Equal(t, "Everyone was kind. Dr. Alpha Ames led.", summary.Text)
	assert.Empty(t, summary.KeyInsights)
	assert.Equal(t, []string{"alpha"}, summary.References)
}

func TestSummarizeFallsBackOnFailure(t *testing.T) {
	gen := newFakeGenerator()
	gen.reply = func(context.Context, string) (string, error) {
		return "", errors.New("service unavailable")
	}
	mod := NewModerator(gen, testPersonas(), ModeratorConfig{})

	summary, err := mod.Summarize(context.Background(), historySession(3))
	require.NoError(t, err)
	assert.Equal(t, fallbackSummary, summary.Text)
	assert.True(t, strings.HasPrefix(summary.Text, "The panel has provided diverse perspectives"))
	assert.NotNil(t, summary.References)
}
