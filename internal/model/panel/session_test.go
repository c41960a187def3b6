package panel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{LastActivity: now.Add(-31 * time.Minute)}

	assert.True(t, s.Expired(now, 30*time.Minute))
	assert.False(t, s.Expired(now, time.Hour))

	exact := &Session{LastActivity: now.Add(-30 * time.Minute)}
	assert.False(t, exact.Expired(now, 30*time.Minute), "expiry is strictly greater than ttl")

	fresh := &Session{CreatedAt: now.Add(-time.Minute)}
	assert.False(t, fresh.Expired(now, 30*time.Minute))
}

func TestRecentExchanges(t *testing.T) {
	s := &Session{History: []Exchange{{UserMessage: "1"}, {UserMessage: "2"}, {UserMessage: "3"}, {UserMessage: "4"}}}

	recent := s.RecentExchanges(3)
	assert.Len(t, recent, 3)
	assert.Equal(t, "2", recent[0].UserMessage)
	assert.Len(t, s.RecentExchanges(10), 4)
	assert.Nil(t, s.RecentExchanges(0))
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	assert.True(t, errors.Is(&PersonaCountError{Got: 5}, ErrPersonaCount))
	assert.Contains(t, (&PersonaCountError{Got: 5}).Error(), "2-4")

	unknown := &UnknownPersonaError{IDs: []string{"dr-who"}}
	assert.True(t, errors.Is(unknown, ErrUnknownPersona))
	assert.Contains(t, unknown.Error(), "dr-who")

	assert.True(t, IsInvalidRequest(ErrNoHistory))
	assert.False(t, IsInvalidRequest(errors.New("boom")))
}
