package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/19queue/internal/domain/track"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		status   Status
		valid    bool
		terminal bool
	}{
		{StatusPending, true, false},
		{StatusPlaying, true, false},
		{StatusPlayed, true, true},
		{StatusSkipped, true, true},
		{Status("queued"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}

func TestNewHistoryEntry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	started := now.Add(-3 * time.Minute)

	entry := &Entry{
		ID:          "e1",
		Track:       track.Track{SpotifyID: "t1", Name: "One"},
		AddedBy:     "a@example.com",
		AddedAt:     now.Add(-10 * time.Minute),
		RequestedBy: "Alice",
		Notes:       "birthday",
	}

	t.Run("played without start time uses now", func(t *testing.T) {
		h := NewHistoryEntry("h1", entry, StatusPlayed, "ignored", now)
		assert.Equal(t, "e1", h.EntryID)
		assert.Equal(t, now, h.PlayedAt)
		assert.False(t, h.WasSkipped)
		assert.Empty(t, h.SkipReason)
		assert.Equal(t, "birthday", h.Notes)
	})

	t.Run("skipped keeps start time and reason", func(t *testing.T) {
		e := *entry
		e.PlayedAt = &started
		h := NewHistoryEntry("h2", &e, StatusSkipped, "too loud", now)
		assert.Equal(t, started, h.PlayedAt)
		assert.True(t, h.WasSkipped)
		assert.Equal(t, "too loud", h.SkipReason)
	})
}

func TestSettings_Apply(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	size := 10
	locked := true

	s := DefaultSettings().Apply(SettingsPatch{MaxQueueSize: &size, IsLocked: &locked}, "mod@example.com", now)

	assert.Equal(t, 10, s.MaxQueueSize)
	assert.True(t, s.IsLocked)
	assert.False(t, s.AllowDuplicates)
	assert.Equal(t, int64(600000), s.MaxSongDuration)
	assert.Equal(t, "mod@example.com", s.UpdatedBy)
	assert.Equal(t, now, s.UpdatedAt)

	again := s.Apply(SettingsPatch{}, "other@example.com", now.Add(time.Minute))
	assert.Equal(t, 10, again.MaxQueueSize)
	assert.True(t, again.IsLocked)
	assert.Equal(t, "other@example.com", again.UpdatedBy)
}

func TestSettings_IsRestricted(t *testing.T) {
	s := DefaultSettings()
	assert.False(t, s.IsRestricted("x@example.com"))
	s.RestrictedUsers = []string{"x@example.com"}
	assert.True(t, s.IsRestricted("x@example.com"))
}

func TestSettingsPatch_Empty(t *testing.T) {
	assert.True(t, (&SettingsPatch{}).Empty())
	paused := false
	assert.False(t, (&SettingsPatch{IsPaused: &paused}).Empty())
	assert.False(t, (&SettingsPatch{RestrictedUsers: []string{}}).Empty())
}
