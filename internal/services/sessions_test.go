package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

func (c *mockClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSessions_Lifecycle(t *testing.T) {
	ctx := context.Background()
	clock := &mockClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSessions(openTestDB(t), 24*time.Hour, clock)

	sess, err := s.Create(ctx)
	require.NoError(t, err)
	assert.Len(t, sess.Token, 36)
	assert.True(t, s.Valid(ctx, sess.Token))

	clock.Advance(23 * time.Hour)
	assert.True(t, s.Valid(ctx, sess.Token))

	clock.Advance(2 * time.Hour)
	assert.False(t, s.Valid(ctx, sess.Token), "expired")

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSessions_Revoke(t *testing.T) {
	ctx := context.Background()
	s := NewSessions(openTestDB(t), time.Hour, RealClock{})

	sess, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, sess.Token))
	assert.False(t, s.Valid(ctx, sess.Token))
}

func TestSessions_RejectsGarbage(t *testing.T) {
	s := NewSessions(openTestDB(t), time.Hour, RealClock{})
	assert.False(t, s.Valid(context.Background(), ""))
	assert.False(t, s.Valid(context.Background(), "ok"))
}
