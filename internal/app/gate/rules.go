package gate

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/domain/user"
)

// Deny codes.
const (
	CodeLocked         = "locked"
	CodeFull           = "full"
	CodeDuplicate      = "duplicate"
	CodeDurationLimit  = "duration_limit_exceeded"
	CodeRestrictedUser = "restricted_user"
	CodePaused         = "paused"
	CodeGuest          = "guest"
	CodeRecentlyPlayed = "recently_played"
)

// decodeSettings decodes a config map into out, applies defaults and validates.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func appliesToEnqueue(action Action) bool {
	return action == ActionEnqueue
}

// LockedRule denies every submission while the queue is locked.
type LockedRule struct{}

func (r *LockedRule) Name() string        { return "locked_rule" }
func (r *LockedRule) Description() string { return "Rejects submissions while the queue is locked" }
func (r *LockedRule) ReturnCodes() []string {
	return []string{CodeLocked}
}
func (r *LockedRule) ValidateConfig(map[string]any) error { return nil }

func (r *LockedRule) AppliesTo(action Action) bool {
	return action == ActionEnqueue || action == ActionBulkEnqueue
}

func (r *LockedRule) Check(_ context.Context, req Request) Decision {
	if req.Settings.IsLocked {
		return Deny(CodeLocked)
	}
	return Allow()
}

// CapacityRule denies submissions once the pending partition is full.
type CapacityRule struct{}

func (r *CapacityRule) Name() string        { return "capacity_rule" }
func (r *CapacityRule) Description() string { return "Rejects submissions when pending tracks reach max_queue_size" }
func (r *CapacityRule) ReturnCodes() []string {
	return []string{CodeFull}
}
func (r *CapacityRule) ValidateConfig(map[string]any) error { return nil }
func (r *CapacityRule) AppliesTo(action Action) bool        { return appliesToEnqueue(action) }

func (r *CapacityRule) Check(_ context.Context, req Request) Decision {
	if len(req.Pending) >= req.Settings.MaxQueueSize {
		return Deny(CodeFull)
	}
	return Allow()
}

// DuplicateConfig represents the configuration for DuplicateRule.
type DuplicateConfig struct {
	DetectRemasters bool `mapstructure:"detect_remasters"`
}

// DuplicateRule denies a track already pending unless duplicates are allowed.
// With detect_remasters it also catches remasters and alternate versions:
// same normalized name and same main artist. Covers by other artists pass.
type DuplicateRule struct {
	config DuplicateConfig
}

func (r *DuplicateRule) Name() string { return "duplicate_rule" }
func (r *DuplicateRule) Description() string {
	return "Rejects tracks already pending in the queue unless duplicates are allowed"
}
func (r *DuplicateRule) ReturnCodes() []string {
	return []string{CodeDuplicate}
}

func (r *DuplicateRule) ValidateConfig(settings map[string]any) error {
	var cfg DuplicateConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return err
	}
	r.config = cfg
	return nil
}

func (r *DuplicateRule) AppliesTo(action Action) bool { return appliesToEnqueue(action) }

func (r *DuplicateRule) Check(_ context.Context, req Request) Decision {
	if req.Settings.AllowDuplicates {
		return Allow()
	}
	for _, e := range req.Pending {
		if e.Track.SpotifyID == req.Track.SpotifyID {
			return Deny(CodeDuplicate)
		}
		if r.config.DetectRemasters && isRemaster(e.Track.Name, e.Track.ArtistNames(), req.Track.Name, req.Track.ArtistNames()) {
			return Deny(CodeDuplicate)
		}
	}
	return Allow()
}

// DurationConfig represents the configuration for DurationRule.
type DurationConfig struct {
	MinMinutes float64 `mapstructure:"min_minutes" validate:"gte=0"`
	MaxMinutes float64 `mapstructure:"max_minutes" validate:"gte=0"`
}

// DurationRule checks track length against max_song_duration from the queue
// settings and the optional configured bounds.
type DurationRule struct {
	config DurationConfig
}

func (r *DurationRule) Name() string        { return "duration_rule" }
func (r *DurationRule) Description() string { return "Rejects tracks outside the allowed length" }
func (r *DurationRule) ReturnCodes() []string {
	return []string{CodeDurationLimit}
}

func (r *DurationRule) ValidateConfig(settings map[string]any) error {
	var cfg DurationConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return err
	}
	if cfg.MaxMinutes > 0 && cfg.MinMinutes > cfg.MaxMinutes {
		return errors.New("min_minutes cannot be greater than max_minutes")
	}
	r.config = cfg
	zlog.Info().Msgf("duration rule config: %+v", cfg)
	return nil
}

func (r *DurationRule) AppliesTo(action Action) bool { return appliesToEnqueue(action) }

func (r *DurationRule) Check(_ context.Context, req Request) Decision {
	d := req.Track.Duration()
	if max := req.Settings.MaxSongDuration; max > 0 && req.Track.DurationMs > max {
		return Deny(CodeDurationLimit)
	}
	if r.config.MinMinutes > 0 && d.Minutes() < r.config.MinMinutes {
		return Deny(CodeDurationLimit)
	}
	if r.config.MaxMinutes > 0 && d.Minutes() > r.config.MaxMinutes {
		return Deny(CodeDurationLimit)
	}
	return Allow()
}

// RestrictedUserRule denies submitters listed in restricted_users.
type RestrictedUserRule struct{}

func (r *RestrictedUserRule) Name() string { return "restricted_user_rule" }
func (r *RestrictedUserRule) Description() string {
	return "Rejects submitters listed in the queue's restricted users"
}
func (r *RestrictedUserRule) ReturnCodes() []string {
	return []string{CodeRestrictedUser}
}
func (r *RestrictedUserRule) ValidateConfig(map[string]any) error { return nil }
func (r *RestrictedUserRule) AppliesTo(action Action) bool        { return appliesToEnqueue(action) }

func (r *RestrictedUserRule) Check(_ context.Context, req Request) Decision {
	if req.Settings.IsRestricted(req.Submitter.Email) || req.Settings.IsRestricted(req.Submitter.ID) {
		return Deny(CodeRestrictedUser)
	}
	return Allow()
}

// PausedRule denies submissions while the queue is paused.
type PausedRule struct{}

func (r *PausedRule) Name() string        { return "paused_rule" }
func (r *PausedRule) Description() string { return "Rejects submissions while the queue is paused" }
func (r *PausedRule) ReturnCodes() []string {
	return []string{CodePaused}
}
func (r *PausedRule) ValidateConfig(map[string]any) error { return nil }
func (r *PausedRule) AppliesTo(action Action) bool        { return appliesToEnqueue(action) }

func (r *PausedRule) Check(_ context.Context, req Request) Decision {
	if req.Settings.IsPaused {
		return Deny(CodePaused)
	}
	return Allow()
}

// GuestConfig represents the configuration for GuestRule.
type GuestConfig struct {
	DenyRoles []string `mapstructure:"deny_roles" default:"[\"guest\"]" validate:"dive,oneof=admin user guest"`
}

// GuestRule denies submitters whose role is listed in deny_roles.
type GuestRule struct {
	config GuestConfig
}

func (r *GuestRule) Name() string        { return "guest_rule" }
func (r *GuestRule) Description() string { return "Rejects submissions from read-only roles" }
func (r *GuestRule) ReturnCodes() []string {
	return []string{CodeGuest}
}

func (r *GuestRule) ValidateConfig(settings map[string]any) error {
	var cfg GuestConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return err
	}
	r.config = cfg
	return nil
}

func (r *GuestRule) AppliesTo(action Action) bool {
	return action == ActionEnqueue || action == ActionBulkEnqueue
}

func (r *GuestRule) Check(_ context.Context, req Request) Decision {
	roles := r.config.DenyRoles
	if roles == nil {
		roles = []string{string(user.RoleGuest)}
	}
	if slices.Contains(roles, string(req.Submitter.Role)) {
		return Deny(CodeGuest)
	}
	return Allow()
}

// RecentlyPlayedRule denies tracks played within the last duplicate_threshold minutes.
type RecentlyPlayedRule struct {
	now func() time.Time
}

func (r *RecentlyPlayedRule) Name() string { return "recently_played_rule" }
func (r *RecentlyPlayedRule) Description() string {
	return "Rejects tracks played within the last duplicate_threshold minutes"
}
func (r *RecentlyPlayedRule) ReturnCodes() []string {
	return []string{CodeRecentlyPlayed}
}
func (r *RecentlyPlayedRule) ValidateConfig(map[string]any) error { return nil }
func (r *RecentlyPlayedRule) AppliesTo(action Action) bool        { return appliesToEnqueue(action) }

func (r *RecentlyPlayedRule) Check(_ context.Context, req Request) Decision {
	if req.Settings.AllowDuplicates || req.Settings.DuplicateThreshold <= 0 {
		return Allow()
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	cutoff := now().Add(-time.Duration(req.Settings.DuplicateThreshold) * time.Minute)
	for _, h := range req.RecentlyPlayed {
		if h.Track.SpotifyID == req.Track.SpotifyID && h.PlayedAt.After(cutoff) {
			return Deny(CodeRecentlyPlayed)
		}
	}
	return Allow()
}

func init() {
	Register("locked_rule", func() Rule { return &LockedRule{} })
	Register("capacity_rule", func() Rule { return &CapacityRule{} })
	Register("duplicate_rule", func() Rule { return &DuplicateRule{} })
	Register("duration_rule", func() Rule { return &DurationRule{} })
	Register("restricted_user_rule", func() Rule { return &RestrictedUserRule{} })
	Register("paused_rule", func() Rule { return &PausedRule{} })
	Register("guest_rule", func() Rule { return &GuestRule{} })
	Register("recently_played_rule", func() Rule { return &RecentlyPlayedRule{} })
}
