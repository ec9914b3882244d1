package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/domain/user"
)

func tr(id, name, artist string, durationMs int64) track.Track {
	return track.Track{
		SpotifyID:  id,
		Name:       name,
		DurationMs: durationMs,
		Artists:    []track.Artist{{Name: artist}},
	}
}

func pending(tracks ...track.Track) []queue.Entry {
	out := make([]queue.Entry, len(tracks))
	for i, t := range tracks {
		out[i] = queue.Entry{ID: t.SpotifyID, Track: t, Position: i, Status: queue.StatusPending}
	}
	return out
}

func baseRequest(t track.Track) Request {
	return Request{
		Action:    ActionEnqueue,
		Track:     t,
		Submitter: user.User{ID: "u1", Email: "a@example.com", Role: user.RoleUser},
		Settings:  queue.DefaultSettings(),
	}
}

func TestDefaultChain_Order(t *testing.T) {
	c := DefaultChain()
	require.Len(t, c.Rules(), 3)
	assert.Equal(t, "locked_rule", c.Rules()[0].Name())
	assert.Equal(t, "capacity_rule", c.Rules()[1].Name())
	assert.Equal(t, "duplicate_rule", c.Rules()[2].Name())
}

func TestChain_LockedWinsOverEverything(t *testing.T) {
	req := baseRequest(tr("t1", "Song", "A", 1000))
	req.Settings.IsLocked = true
	req.Settings.MaxQueueSize = 1
	req.Pending = pending(tr("t1", "Song", "A", 1000))

	d := DefaultChain().Execute(context.Background(), req)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeLocked, d.Code)
}

func TestChain_CoreRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *Request)
		wantCode string
	}{
		{"allowed", func(r *Request) {}, ""},
		{"full", func(r *Request) {
			r.Settings.MaxQueueSize = 2
			r.Pending = pending(tr("x", "X", "B", 1), tr("y", "Y", "B", 1))
		}, CodeFull},
		{"duplicate", func(r *Request) {
			r.Pending = pending(tr("t1", "Song", "A", 1000))
		}, CodeDuplicate},
		{"duplicates allowed", func(r *Request) {
			r.Settings.AllowDuplicates = true
			r.Pending = pending(tr("t1", "Song", "A", 1000))
		}, ""},
		{"bulk skips capacity", func(r *Request) {
			r.Action = ActionBulkEnqueue
			r.Settings.MaxQueueSize = 1
			r.Pending = pending(tr("x", "X", "B", 1))
		}, ""},
		{"bulk locked", func(r *Request) {
			r.Action = ActionBulkEnqueue
			r.Settings.IsLocked = true
		}, CodeLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(tr("t1", "Song", "A", 1000))
			tt.mutate(&req)
			d := DefaultChain().Execute(context.Background(), req)
			if tt.wantCode == "" {
				assert.True(t, d.Allowed)
				return
			}
			assert.False(t, d.Allowed)
			assert.Equal(t, tt.wantCode, d.Code)
		})
	}
}

func TestBuildChain_OptionalRules(t *testing.T) {
	c, err := BuildChain(map[string]RuleConfig{
		"paused_rule":          {Enabled: true},
		"guest_rule":           {Enabled: true},
		"duration_rule":        {Enabled: false},
		"restricted_user_rule": {Enabled: true},
	})
	require.NoError(t, err)

	var names []string
	for _, r := range c.Rules() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"locked_rule", "capacity_rule", "duplicate_rule",
		"guest_rule", "paused_rule", "restricted_user_rule"}, names)

	req := baseRequest(tr("t1", "Song", "A", 1000))
	req.Settings.IsPaused = true
	assert.Equal(t, CodePaused, c.Execute(context.Background(), req).Code)

	req = baseRequest(tr("t1", "Song", "A", 1000))
	req.Submitter.Role = user.RoleGuest
	assert.Equal(t, CodeGuest, c.Execute(context.Background(), req).Code)

	req = baseRequest(tr("t1", "Song", "A", 1000))
	req.Settings.RestrictedUsers = []string{"a@example.com"}
	assert.Equal(t, CodeRestrictedUser, c.Execute(context.Background(), req).Code)
}

func TestBuildChain_Errors(t *testing.T) {
	_, err := BuildChain(map[string]RuleConfig{"nope": {Enabled: true}})
	assert.Error(t, err)

	_, err = BuildChain(map[string]RuleConfig{
		"duration_rule": {Enabled: true, Settings: map[string]any{"min_minutes": 10, "max_minutes": 2}},
	})
	assert.Error(t, err)

	_, err = BuildChain(map[string]RuleConfig{
		"guest_rule": {Enabled: true, Settings: map[string]any{"deny_roles": []string{"robot"}}},
	})
	assert.Error(t, err)
}

func TestDurationRule(t *testing.T) {
	r := &DurationRule{}
	require.NoError(t, r.ValidateConfig(map[string]any{"min_minutes": "1"}))

	tests := []struct {
		name       string
		durationMs int64
		maxSetting int64
		allowed    bool
	}{
		{"within", 180000, 600000, true},
		{"over setting", 700000, 600000, false},
		{"setting disabled", 700000, 0, true},
		{"under minimum", 30000, 600000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(tr("t1", "Song", "A", tt.durationMs))
			req.Settings.MaxSongDuration = tt.maxSetting
			assert.Equal(t, tt.allowed, r.Check(context.Background(), req).Allowed)
		})
	}
}

func TestDuplicateRule_Remasters(t *testing.T) {
	r := &DuplicateRule{}
	require.NoError(t, r.ValidateConfig(map[string]any{"detect_remasters": true}))

	tests := []struct {
		name    string
		queued  track.Track
		request track.Track
		allowed bool
	}{
		{"remaster", tr("a", "Bohemian Rhapsody", "Queen", 1), tr("b", "Bohemian Rhapsody - 2011 Remaster", "Queen", 1), false},
		{"radio edit", tr("a", "Song (Radio Edit)", "X", 1), tr("b", "Song", "x", 1), false},
		{"cover", tr("a", "Hallelujah", "Leonard Cohen", 1), tr("b", "Hallelujah", "Jeff Buckley", 1), true},
		{"different song", tr("a", "One", "U2", 1), tr("b", "Two", "U2", 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(tt.request)
			req.Pending = pending(tt.queued)
			assert.Equal(t, tt.allowed, r.Check(context.Background(), req).Allowed)
		})
	}

	plain := &DuplicateRule{}
	req := baseRequest(tr("b", "Bohemian Rhapsody - 2011 Remaster", "Queen", 1))
	req.Pending = pending(tr("a", "Bohemian Rhapsody", "Queen", 1))
	assert.True(t, plain.Check(context.Background(), req).Allowed)
}

func TestRecentlyPlayedRule(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	r := &RecentlyPlayedRule{now: func() time.Time { return now }}

	req := baseRequest(tr("t1", "Song", "A", 1))
	req.RecentlyPlayed = []queue.HistoryEntry{{Track: req.Track, PlayedAt: now.Add(-10 * time.Minute)}}
	assert.Equal(t, CodeRecentlyPlayed, r.Check(context.Background(), req).Code)

	req.RecentlyPlayed[0].PlayedAt = now.Add(-time.Hour)
	assert.True(t, r.Check(context.Background(), req).Allowed)
}

func TestNormalizeTrackName(t *testing.T) {
	tests := map[string]string{
		"Bohemian Rhapsody - 2011 Remaster":   "bohemian rhapsody",
		"Yesterday (Remastered 2009)":         "yesterday",
		"Hey Jude [Remastered]":               "hey jude",
		"Song - Live at Wembley":              "song",
		"Song (Single Version)":               "song",
		"  Plain   Title ":                    "plain title",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeTrackName(in), in)
	}
}
