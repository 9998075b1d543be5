// api/policy/checker/commit.go

package checker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/policy/state"
)

// CommitUsage reserves a slot against every stateful rule in the template.
// Checks are pure reads; this is where the committed effects land, and each
// rule is re-verified and recorded in one atomic store operation so two
// concurrent commits can never both consume the last slot of a key.
//
// When a rule has no slot left at commit time, the reservations already made
// in this pass are released and the denial is returned; the caller must
// treat the action as denied. Key and limit derivation here must match the
// corresponding Check implementations.
func CommitUsage(ctx context.Context, store state.Store, tmpl *model.Template, req *Request) (*model.CheckResult, error) {
	if store == nil || tmpl == nil || req == nil {
		return nil, nil
	}
	now := req.Context.Timestamp

	rules := make([]model.Rule, 0, 1+len(tmpl.RateLimits)+len(tmpl.Timing))
	if tmpl.Authorization != nil {
		rules = append(rules, *tmpl.Authorization)
	}
	rules = append(rules, tmpl.RateLimits...)
	rules = append(rules, tmpl.Timing...)

	var releases []func(context.Context) error
	rollback := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			if err := releases[i](ctx); err != nil {
				logger.Error("Failed to release usage reservation", zap.Error(err))
			}
		}
	}

	for _, rule := range rules {
		denied, release, err := reserveRule(ctx, store, rule, req, now)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("failed to record usage for rule %q: %w", rule.Type, err)
		}
		if denied != nil {
			rollback()
			return denied, nil
		}
		if release != nil {
			releases = append(releases, release)
		}
	}
	return nil, nil
}

// reserveRule attempts the atomic check-and-record for one rule. A nil
// denial with a nil release means the rule carries no committed state.
func reserveRule(ctx context.Context, store state.Store, rule model.Rule, req *Request, now int64) (*model.CheckResult, func(context.Context) error, error) {
	switch cfg := rule.Config.(type) {
	case *model.SpendingCapConfig:
		amount, present, err := extractAmount(req.Action)
		if err != nil || !present {
			return nil, nil, nil
		}
		sender, date := req.Context.Sender, utcDate(req.Context)
		ok, spent, err := store.CheckAndRecordSpent(ctx, sender, date, amount, cfg.MaxPerDay)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			denied := model.Fail(rule.Type, "amount %s would exceed daily cap %s (spent %s today)", amount, cfg.MaxPerDay, spent).
				WithData(map[string]interface{}{
					"amount":     amount.String(),
					"dailySpent": spent.String(),
					"maxPerDay":  cfg.MaxPerDay.String(),
				})
			return &denied, nil, nil
		}
		return nil, func(ctx context.Context) error {
			return store.ReleaseSpent(ctx, sender, date, amount)
		}, nil

	case *model.PerAddressLimitConfig:
		key := scopeKey(rule.Type, req.Context.Sender)
		return reserveCount(ctx, store, rule.Type, key, cfg.WindowMs, now, cfg.MaxExecutions)

	case *model.PerFunctionLimitConfig:
		selector, ok := req.Context.DataString("functionSelector")
		if !ok || !containsString(cfg.Selectors, selector) {
			return nil, nil, nil
		}
		key := scopeKey(rule.Type, selector)
		if cfg.PerAddress {
			key = scopeKey(rule.Type, selector, req.Context.Sender)
		}
		return reserveCount(ctx, store, rule.Type, key, cfg.WindowMs, now, cfg.MaxExecutions)

	case *model.GlobalLimitConfig:
		limit := cfg.MaxExecutions
		if cfg.BurstCapacity > 0 {
			limit = cfg.BurstCapacity
		}
		return reserveCount(ctx, store, rule.Type, scopeKey(rule.Type, "global"), cfg.WindowMs, now, limit)

	case *model.ProgressiveLimitConfig:
		limit := EffectiveProgressiveLimit(cfg, now)
		key := scopeKey(rule.Type, req.Context.Sender)
		return reserveCount(ctx, store, rule.Type, key, cfg.WindowMs, now, limit)

	case *model.ReputationLimitConfig:
		score, _ := req.Context.DataInt64("reputationScore")
		limit := EffectiveReputationLimit(cfg, score)
		key := scopeKey(rule.Type, req.Context.Sender)
		return reserveCount(ctx, store, rule.Type, key, cfg.WindowMs, now, limit)

	case *model.CooldownConfig:
		// At most one execution inside the cooldown interval, same shape as
		// a count limit of one.
		key := scopeKey(rule.Type, req.Context.Sender)
		denied, release, err := reserveCount(ctx, store, rule.Type, key, cfg.MinIntervalMs, now, 1)
		if denied != nil {
			d := model.Fail(rule.Type, "cooldown active: another execution landed within the last %dms", cfg.MinIntervalMs).
				WithData(map[string]interface{}{"minIntervalMs": cfg.MinIntervalMs, "key": key})
			return &d, nil, nil
		}
		return denied, release, err

	case *model.ValueLimitConfig:
		return reserveSum(ctx, store, rule, req, cfg.MaxValue, cfg.WindowMs)

	case *model.GasLimitConfig:
		return reserveSum(ctx, store, rule, req, cfg.MaxGas, cfg.WindowMs)

	default:
		return nil, nil, nil
	}
}

func reserveCount(ctx context.Context, store state.Store, t model.RuleType, key string, windowMs, now, limit int64) (*model.CheckResult, func(context.Context) error, error) {
	ok, count, err := store.CheckAndRecord(ctx, key, windowMs, now, limit)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		denied := model.Fail(t, "%d executions in the last %dms reached the limit of %d", count, windowMs, limit).
			WithData(map[string]interface{}{"count": count, "limit": limit, "windowMs": windowMs, "key": key})
		return &denied, nil, nil
	}
	return nil, func(ctx context.Context) error {
		return store.ReleaseExecution(ctx, key, now)
	}, nil
}

func reserveSum(ctx context.Context, store state.Store, rule model.Rule, req *Request, max *model.Amount, windowMs int64) (*model.CheckResult, func(context.Context) error, error) {
	tracked, present, err := extractAmount(req.Action)
	if err != nil {
		return nil, nil, err
	}
	if !present {
		tracked = model.MustAmount("0")
	}
	if rule.Type == model.RuleGasLimit {
		if gas, ok := req.Context.DataInt64("gas"); ok {
			tracked, err = model.NewAmountFromInt64(gas)
			if err != nil {
				return nil, nil, err
			}
		}
	}
	if tracked.IsZero() {
		return nil, nil, nil
	}

	key := scopeKey(rule.Type, req.Context.Sender)
	now := req.Context.Timestamp
	ok, sum, err := store.CheckAndRecordSum(ctx, key, windowMs, now, tracked, max)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		denied := model.Fail(rule.Type, "cumulative %s plus %s exceeds window limit %s", sum, tracked, max).
			WithData(map[string]interface{}{"count": sum.String(), "limit": max.String(), "windowMs": windowMs, "key": key})
		return &denied, nil, nil
	}
	return nil, func(ctx context.Context) error {
		return store.ReleaseSum(ctx, key, now, tracked)
	}, nil
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
