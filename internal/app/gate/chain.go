package gate

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Chain executes rules in sequence.
type Chain struct {
	rules []Rule
}

// NewChain creates a new rule chain.
func NewChain() *Chain {
	return &Chain{
		rules: make([]Rule, 0),
	}
}

// DefaultChain returns the core rules with their default configuration.
func DefaultChain() *Chain {
	c, _ := BuildChain(nil)
	return c
}

// BuildChain creates the core rules, then appends every enabled optional rule
// in name order. Core rules ignore the enabled flag but accept settings.
func BuildChain(configs map[string]RuleConfig) (*Chain, error) {
	for name := range configs {
		if _, ok := registry[name]; !ok {
			return nil, errors.Newf("unknown rule: %s", name)
		}
	}

	c := NewChain()
	for _, name := range coreRules {
		r := registry[name]()
		if err := r.ValidateConfig(configs[name].Settings); err != nil {
			return nil, errors.Wrapf(err, "rule %s", name)
		}
		c.Add(r)
	}

	for _, name := range RegisteredNames() {
		if isCore(name) {
			continue
		}
		cfg, ok := configs[name]
		if !ok || !cfg.Enabled {
			continue
		}
		r := registry[name]()
		if err := r.ValidateConfig(cfg.Settings); err != nil {
			return nil, errors.Wrapf(err, "rule %s", name)
		}
		c.Add(r)
	}

	for _, r := range c.rules {
		zlog.Debug().Msgf("Gate rule enabled: name=%s", r.Name())
	}
	return c, nil
}

// Add adds a rule to the chain.
func (c *Chain) Add(r Rule) {
	c.rules = append(c.rules, r)
}

// Execute runs all rules in sequence.
// Returns immediately if any rule denies the request.
// Rules are only applied if they declare they apply to the given action.
func (c *Chain) Execute(ctx context.Context, req Request) Decision {
	for _, r := range c.rules {
		if !r.AppliesTo(req.Action) {
			continue
		}

		d := r.Check(ctx, req)
		if !d.Allowed {
			return d
		}
	}
	return Allow()
}

// Rules returns all rules in the chain.
func (c *Chain) Rules() []Rule {
	return c.rules
}
