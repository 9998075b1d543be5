// api/model/rule.go
package model

import (
	"encoding/json"
	"fmt"
)

// RuleType discriminates the rule union. The string values are wire-stable:
// they appear in stored templates, API payloads and check results.
type RuleType string

const (
	RuleSpendingCap     RuleType = "spending-cap"
	RuleTimeWindow      RuleType = "time-window"
	RuleActionWhitelist RuleType = "action-whitelist"
	RuleRequirePayment  RuleType = "require-payment"

	RulePerAddressLimit  RuleType = "per-address-limit"
	RulePerFunctionLimit RuleType = "per-function-limit"
	RuleGlobalLimit      RuleType = "global-limit"
	RuleValueLimit       RuleType = "value-limit"
	RuleGasLimit         RuleType = "gas-limit"
	RuleProgressiveLimit RuleType = "progressive-limit"
	RuleReputationLimit  RuleType = "reputation-limit"

	RuleCooldown        RuleType = "cooldown"
	RuleAfterTimestamp  RuleType = "after-timestamp"
	RuleBeforeTimestamp RuleType = "before-timestamp"
	RuleSchedule        RuleType = "schedule"
	RuleBlockDelay      RuleType = "block-delay"
	RuleEpochBased      RuleType = "epoch-based"
	RuleEventTriggered  RuleType = "event-triggered"

	RuleWhitelist   RuleType = "whitelist"
	RuleNFTGated    RuleType = "nft-gated"
	RuleDAOApproval RuleType = "dao-approval"

	RuleVoting        RuleType = "voting"
	RuleHumanApproval RuleType = "human-approval"

	// RuleUnknown tags fail-closed results for unrecognized rule types. It is
	// never a valid configuration value.
	RuleUnknown RuleType = "unknown"
)

// RuleConfig is the per-kind configuration carried by a Rule. Every config
// validates itself at construction time; checkers may assume a validated
// config.
type RuleConfig interface {
	Validate() error
}

// Rule is one named, typed constraint within a Template. Rules are immutable
// configuration: checkers never mutate them, all mutable state lives in the
// injected state store.
type Rule struct {
	Type   RuleType   `json:"type"`
	Config RuleConfig `json:"config"`
}

// configFactories maps a rule-type tag to a constructor for its empty config.
// New rule kinds register here; nothing else in the model changes.
var configFactories = map[RuleType]func() RuleConfig{
	RuleSpendingCap:      func() RuleConfig { return &SpendingCapConfig{} },
	RuleTimeWindow:       func() RuleConfig { return &TimeWindowConfig{} },
	RuleActionWhitelist:  func() RuleConfig { return &ActionWhitelistConfig{} },
	RuleRequirePayment:   func() RuleConfig { return &RequirePaymentConfig{} },
	RulePerAddressLimit:  func() RuleConfig { return &PerAddressLimitConfig{} },
	RulePerFunctionLimit: func() RuleConfig { return &PerFunctionLimitConfig{} },
	RuleGlobalLimit:      func() RuleConfig { return &GlobalLimitConfig{} },
	RuleValueLimit:       func() RuleConfig { return &ValueLimitConfig{} },
	RuleGasLimit:         func() RuleConfig { return &GasLimitConfig{} },
	RuleProgressiveLimit: func() RuleConfig { return &ProgressiveLimitConfig{} },
	RuleReputationLimit:  func() RuleConfig { return &ReputationLimitConfig{} },
	RuleCooldown:         func() RuleConfig { return &CooldownConfig{} },
	RuleAfterTimestamp:   func() RuleConfig { return &AfterTimestampConfig{} },
	RuleBeforeTimestamp:  func() RuleConfig { return &BeforeTimestampConfig{} },
	RuleSchedule:         func() RuleConfig { return &ScheduleConfig{} },
	RuleBlockDelay:       func() RuleConfig { return &BlockDelayConfig{} },
	RuleEpochBased:       func() RuleConfig { return &EpochBasedConfig{} },
	RuleEventTriggered:   func() RuleConfig { return &EventTriggeredConfig{} },
	RuleWhitelist:        func() RuleConfig { return &WhitelistConfig{} },
	RuleNFTGated:         func() RuleConfig { return &NFTGatedConfig{} },
	RuleDAOApproval:      func() RuleConfig { return &DAOApprovalConfig{} },
	RuleVoting:           func() RuleConfig { return &VotingConfig{} },
	RuleHumanApproval:    func() RuleConfig { return &HumanApprovalConfig{} },
}

// asyncRuleTypes lists the rule kinds that cannot resolve from local data
// alone. The evaluator consults Rule.RequiresAsync rather than probing
// checker behavior at runtime.
var asyncRuleTypes = map[RuleType]bool{
	RuleVoting:        true,
	RuleHumanApproval: true,
}

// NewRule builds a rule from a type tag and a matching config, validating
// the config eagerly. Invalid configuration fails loudly here, never at
// evaluation time.
func NewRule(t RuleType, cfg RuleConfig) (Rule, error) {
	factory, ok := configFactories[t]
	if !ok {
		return Rule{}, fmt.Errorf("unknown rule type %q", t)
	}
	if fmt.Sprintf("%T", factory()) != fmt.Sprintf("%T", cfg) {
		return Rule{}, fmt.Errorf("config type %T does not match rule type %q", cfg, t)
	}
	if err := cfg.Validate(); err != nil {
		return Rule{}, fmt.Errorf("invalid %s rule: %w", t, err)
	}
	return Rule{Type: t, Config: cfg}, nil
}

// MustRule is NewRule that panics; for static template definitions and tests.
func MustRule(t RuleType, cfg RuleConfig) Rule {
	r, err := NewRule(t, cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// RequiresAsync reports whether the rule needs external resolution (a vote
// or a human approval) before it can pass.
func (r Rule) RequiresAsync() bool {
	return asyncRuleTypes[r.Type]
}

// UnmarshalJSON decodes the tagged union, dispatching the config payload to
// the concrete type registered for the tag, then validates it.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Type   RuleType        `json:"type"`
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	factory, ok := configFactories[envelope.Type]
	if !ok {
		return fmt.Errorf("unknown rule type %q", envelope.Type)
	}

	cfg := factory()
	if len(envelope.Config) > 0 {
		if err := json.Unmarshal(envelope.Config, cfg); err != nil {
			return fmt.Errorf("invalid %s config: %w", envelope.Type, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid %s rule: %w", envelope.Type, err)
	}

	r.Type = envelope.Type
	r.Config = cfg
	return nil
}
