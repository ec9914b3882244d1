package queue

import (
	"slices"
	"time"
)

// Settings is the queue-wide moderation policy.
type Settings struct {
	MaxQueueSize       int       `json:"maxQueueSize" yaml:"max_queue_size" default:"50" validate:"gte=1,lte=1000"`
	AllowDuplicates    bool      `json:"allowDuplicates" yaml:"allow_duplicates"`
	DuplicateThreshold int       `json:"duplicateThreshold" yaml:"duplicate_threshold" default:"30" validate:"gte=0"`
	AutoSkipThreshold  int       `json:"autoSkipThreshold" yaml:"auto_skip_threshold" default:"3" validate:"gte=0"`
	MaxSongDuration    int64     `json:"maxSongDuration" yaml:"max_song_duration" default:"600000" validate:"gte=0"` // ms, 0 disables
	RestrictedUsers    []string  `json:"restrictedUsers" yaml:"restricted_users"`
	IsPaused           bool      `json:"isPaused" yaml:"is_paused"`
	IsLocked           bool      `json:"isLocked" yaml:"is_locked"`
	UpdatedBy          string    `json:"updatedBy,omitempty" yaml:"-"`
	UpdatedAt          time.Time `json:"updatedAt" yaml:"-"`
}

// DefaultSettings returns the policy used when none has been stored.
func DefaultSettings() Settings {
	return Settings{
		MaxQueueSize:       50,
		AllowDuplicates:    false,
		DuplicateThreshold: 30,
		AutoSkipThreshold:  3,
		MaxSongDuration:    600000,
		RestrictedUsers:    []string{},
	}
}

// IsRestricted reports whether the given user may not submit tracks.
func (s *Settings) IsRestricted(user string) bool {
	return slices.Contains(s.RestrictedUsers, user)
}

// SettingsPatch carries a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	MaxQueueSize       *int     `json:"maxQueueSize,omitempty"`
	AllowDuplicates    *bool    `json:"allowDuplicates,omitempty"`
	DuplicateThreshold *int     `json:"duplicateThreshold,omitempty"`
	AutoSkipThreshold  *int     `json:"autoSkipThreshold,omitempty"`
	MaxSongDuration    *int64   `json:"maxSongDuration,omitempty"`
	RestrictedUsers    []string `json:"restrictedUsers,omitempty"`
	IsPaused           *bool    `json:"isPaused,omitempty"`
	IsLocked           *bool    `json:"isLocked,omitempty"`
}

// Empty reports whether the patch changes no policy field.
func (p *SettingsPatch) Empty() bool {
	return p.MaxQueueSize == nil && p.AllowDuplicates == nil && p.DuplicateThreshold == nil &&
		p.AutoSkipThreshold == nil && p.MaxSongDuration == nil && p.RestrictedUsers == nil &&
		p.IsPaused == nil && p.IsLocked == nil
}

// Apply returns s with the patch applied. UpdatedBy and UpdatedAt always refresh.
func (s Settings) Apply(p SettingsPatch, by string, now time.Time) Settings {
	if p.MaxQueueSize != nil {
		s.MaxQueueSize = *p.MaxQueueSize
	}
	if p.AllowDuplicates != nil {
		s.AllowDuplicates = *p.AllowDuplicates
	}
	if p.DuplicateThreshold != nil {
		s.DuplicateThreshold = *p.DuplicateThreshold
	}
	if p.AutoSkipThreshold != nil {
		s.AutoSkipThreshold = *p.AutoSkipThreshold
	}
	if p.MaxSongDuration != nil {
		s.MaxSongDuration = *p.MaxSongDuration
	}
	if p.RestrictedUsers != nil {
		s.RestrictedUsers = slices.Clone(p.RestrictedUsers)
	}
	if p.IsPaused != nil {
		s.IsPaused = *p.IsPaused
	}
	if p.IsLocked != nil {
		s.IsLocked = *p.IsLocked
	}
	s.UpdatedBy = by
	s.UpdatedAt = now
	return s
}
