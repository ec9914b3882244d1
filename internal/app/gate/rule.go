// Package gate provides the settings gate: the moderation policy and the rule
// chain consulted before queue mutations.
package gate

import (
	"context"
	"slices"
	"sort"

	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/domain/user"
)

// Action identifies the queue mutation being evaluated.
type Action string

const (
	ActionEnqueue     Action = "enqueue"
	ActionBulkEnqueue Action = "bulk_enqueue"
)

// Request is everything a rule may look at. The queue engine fills it from
// the same transaction that will perform the mutation.
type Request struct {
	Action         Action
	Track          track.Track
	Submitter      user.User
	Settings       queue.Settings
	Pending        []queue.Entry
	RecentlyPlayed []queue.HistoryEntry
}

// Decision represents the result of a rule check.
type Decision struct {
	Allowed bool
	Code    string // e.g., "locked", "full", "duplicate"
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denial with the given code.
func Deny(code string) Decision {
	return Decision{Allowed: false, Code: code}
}

// Rule is the interface for moderation rules.
type Rule interface {
	// Name returns the rule name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this rule can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the rule configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this rule should run for the given action.
	AppliesTo(action Action) bool
	// Check performs the rule check.
	Check(ctx context.Context, req Request) Decision
}

// RuleConfig enables and configures a rule.
type RuleConfig struct {
	Enabled  bool
	Settings map[string]any
}

// registry holds registered rule factories.
var registry = make(map[string]func() Rule)

// Register registers a rule factory.
func Register(name string, factory func() Rule) {
	registry[name] = factory
}

// GetRegistered returns all registered rule factories.
func GetRegistered() map[string]func() Rule {
	return registry
}

// RegisteredNames returns registered rule names in sorted order.
func RegisteredNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// coreRules always run, in this order, before any optional rule.
var coreRules = []string{"locked_rule", "capacity_rule", "duplicate_rule"}

func isCore(name string) bool {
	return slices.Contains(coreRules, name)
}
