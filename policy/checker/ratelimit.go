// api/policy/checker/ratelimit.go

package checker

import (
	"context"

	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/policy/state"
)

// rateLimitBase carries the shared sliding-window mechanics of the
// rate-limit family. A nil store means no enforcement is possible and every
// check passes permissively; that escape hatch is deliberate, callers that
// want enforcement must inject a store.
type rateLimitBase struct {
	store state.Store
}

func (b rateLimitBase) evalCount(ctx context.Context, t model.RuleType, key string, windowMs, limit, now int64) model.CheckResult {
	if b.store == nil {
		return model.Pass(t)
	}
	count, err := b.store.GetExecutionCount(ctx, key, windowMs, now)
	if err != nil {
		return model.Fail(t, "execution count unavailable: %v", err)
	}
	if count >= limit {
		return model.Fail(t, "%d executions in the last %dms reached the limit of %d", count, windowMs, limit).
			WithData(map[string]interface{}{"count": count, "limit": limit, "windowMs": windowMs, "key": key})
	}
	return model.Pass(t)
}

// PerAddressLimitChecker bounds executions per sender.
type PerAddressLimitChecker struct{ rateLimitBase }

func NewPerAddressLimitChecker(store state.Store) *PerAddressLimitChecker {
	return &PerAddressLimitChecker{rateLimitBase{store: store}}
}

func (c *PerAddressLimitChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.PerAddressLimitConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	key := scopeKey(rule.Type, req.Context.Sender)
	return c.evalCount(ctx, rule.Type, key, cfg.WindowMs, cfg.MaxExecutions, req.Context.Timestamp)
}

// StateKey exposes the composite key this rule counts against, for callers
// recording committed executions.
func (c *PerAddressLimitChecker) StateKey(rule model.Rule, req *Request) string {
	return scopeKey(rule.Type, req.Context.Sender)
}

// PerFunctionLimitChecker bounds executions of tracked function selectors.
// The current selector arrives in the context data; selectors outside the
// tracked set are not enforced.
type PerFunctionLimitChecker struct{ rateLimitBase }

func NewPerFunctionLimitChecker(store state.Store) *PerFunctionLimitChecker {
	return &PerFunctionLimitChecker{rateLimitBase{store: store}}
}

func (c *PerFunctionLimitChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.PerFunctionLimitConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	selector, ok := req.Context.DataString("functionSelector")
	if !ok {
		return model.Pass(rule.Type)
	}
	tracked := false
	for _, s := range cfg.Selectors {
		if s == selector {
			tracked = true
			break
		}
	}
	if !tracked {
		return model.Pass(rule.Type)
	}

	key := c.stateKey(rule.Type, cfg, selector, req)
	return c.evalCount(ctx, rule.Type, key, cfg.WindowMs, cfg.MaxExecutions, req.Context.Timestamp)
}

func (c *PerFunctionLimitChecker) stateKey(t model.RuleType, cfg *model.PerFunctionLimitConfig, selector string, req *Request) string {
	if cfg.PerAddress {
		return scopeKey(t, selector, req.Context.Sender)
	}
	return scopeKey(t, selector)
}

// GlobalLimitChecker bounds executions across all senders with one shared
// key. BurstCapacity, when configured, overrides MaxExecutions as the
// effective ceiling.
type GlobalLimitChecker struct{ rateLimitBase }

func NewGlobalLimitChecker(store state.Store) *GlobalLimitChecker {
	return &GlobalLimitChecker{rateLimitBase{store: store}}
}

func (c *GlobalLimitChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.GlobalLimitConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	limit := cfg.MaxExecutions
	if cfg.BurstCapacity > 0 {
		limit = cfg.BurstCapacity
	}
	return c.evalCount(ctx, rule.Type, scopeKey(rule.Type, "global"), cfg.WindowMs, limit, req.Context.Timestamp)
}

// ValueLimitChecker bounds cumulative transferred value inside the window.
// The tracked quantity is a sum, not a count, so it relies on the store's
// summation support.
type ValueLimitChecker struct{ rateLimitBase }

func NewValueLimitChecker(store state.Store) *ValueLimitChecker {
	return &ValueLimitChecker{rateLimitBase{store: store}}
}

func (c *ValueLimitChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.ValueLimitConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	return c.evalSum(ctx, rule, req, cfg.MaxValue, cfg.WindowMs)
}

// GasLimitChecker bounds cumulative gas inside the window, using the same
// summation mechanism as ValueLimitChecker.
type GasLimitChecker struct{ rateLimitBase }

func NewGasLimitChecker(store state.Store) *GasLimitChecker {
	return &GasLimitChecker{rateLimitBase{store: store}}
}

func (c *GasLimitChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.GasLimitConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	return c.evalSum(ctx, rule, req, cfg.MaxGas, cfg.WindowMs)
}

func (b rateLimitBase) evalSum(ctx context.Context, rule model.Rule, req *Request, max *model.Amount, windowMs int64) model.CheckResult {
	if b.store == nil {
		return model.Pass(rule.Type)
	}

	tracked, present, err := extractAmount(req.Action)
	if err != nil {
		return model.Fail(rule.Type, "unreadable transaction amount: %v", err)
	}
	if !present {
		tracked = model.MustAmount("0")
	}
	if rule.Type == model.RuleGasLimit {
		if gas, ok := req.Context.DataInt64("gas"); ok {
			tracked, err = model.NewAmountFromInt64(gas)
			if err != nil {
				return model.Fail(rule.Type, "invalid gas value: %v", err)
			}
		}
	}

	key := scopeKey(rule.Type, req.Context.Sender)
	sum, err := b.store.GetWindowSum(ctx, key, windowMs, req.Context.Timestamp)
	if err != nil {
		return model.Fail(rule.Type, "window sum unavailable: %v", err)
	}
	if sum.Add(tracked).Cmp(max) > 0 {
		return model.Fail(rule.Type, "cumulative %s plus %s exceeds window limit %s", sum, tracked, max).
			WithData(map[string]interface{}{"count": sum.String(), "limit": max.String(), "windowMs": windowMs, "key": key})
	}
	return model.Pass(rule.Type)
}

// ProgressiveLimitChecker applies a limit that grows over time along the
// curve declared in the configuration.
type ProgressiveLimitChecker struct{ rateLimitBase }

func NewProgressiveLimitChecker(store state.Store) *ProgressiveLimitChecker {
	return &ProgressiveLimitChecker{rateLimitBase{store: store}}
}

func (c *ProgressiveLimitChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.ProgressiveLimitConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	limit := EffectiveProgressiveLimit(cfg, req.Context.Timestamp)
	key := scopeKey(rule.Type, req.Context.Sender)
	return c.evalCount(ctx, rule.Type, key, cfg.WindowMs, limit, req.Context.Timestamp)
}

// EffectiveProgressiveLimit evaluates the configured linear ramp at now.
func EffectiveProgressiveLimit(cfg *model.ProgressiveLimitConfig, now int64) int64 {
	limit := cfg.BaseLimit
	if cfg.Step > 0 && now > cfg.StartTimestamp {
		limit += cfg.Step * ((now - cfg.StartTimestamp) / cfg.StepIntervalMs)
	}
	if limit > cfg.MaxExecutions {
		limit = cfg.MaxExecutions
	}
	return limit
}

// ReputationLimitChecker scales the limit with the reputation score supplied
// in the verification context. The score is a parameter; reputation is never
// fetched here.
type ReputationLimitChecker struct{ rateLimitBase }

func NewReputationLimitChecker(store state.Store) *ReputationLimitChecker {
	return &ReputationLimitChecker{rateLimitBase{store: store}}
}

func (c *ReputationLimitChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.ReputationLimitConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	score, _ := req.Context.DataInt64("reputationScore")
	limit := EffectiveReputationLimit(cfg, score)
	key := scopeKey(rule.Type, req.Context.Sender)
	return c.evalCount(ctx, rule.Type, key, cfg.WindowMs, limit, req.Context.Timestamp)
}

// EffectiveReputationLimit clamps minLimit + limitPerPoint*score to
// [minLimit, maxLimit].
func EffectiveReputationLimit(cfg *model.ReputationLimitConfig, score int64) int64 {
	limit := cfg.MinLimit + cfg.LimitPerPoint*score
	if limit < cfg.MinLimit {
		limit = cfg.MinLimit
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	return limit
}
