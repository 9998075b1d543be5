// api/policy/checker/timing.go

package checker

import (
	"context"

	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/policy/state"
)

// TimingDispatcher routes each timing rule to its checker by type tag.
// Unknown tags resolve to a denial tagged "unknown" rather than an error:
// an unrecognized rule must never silently allow.
type TimingDispatcher struct {
	checkers map[model.RuleType]Checker
}

func NewTimingDispatcher(store state.Store) *TimingDispatcher {
	d := &TimingDispatcher{checkers: make(map[model.RuleType]Checker)}
	d.Register(model.RuleTimeWindow, NewTimeWindowChecker())
	d.Register(model.RuleCooldown, NewCooldownChecker(store))
	d.Register(model.RuleAfterTimestamp, NewAfterTimestampChecker())
	d.Register(model.RuleBeforeTimestamp, NewBeforeTimestampChecker())
	d.Register(model.RuleSchedule, NewScheduleChecker())
	d.Register(model.RuleBlockDelay, NewBlockDelayChecker())
	d.Register(model.RuleEpochBased, NewEpochBasedChecker())
	d.Register(model.RuleEventTriggered, NewEventTriggeredChecker())
	return d
}

// Register adds or replaces the checker for a tag; new timing kinds plug in
// here without touching dispatch.
func (d *TimingDispatcher) Register(t model.RuleType, c Checker) {
	d.checkers[t] = c
}

func (d *TimingDispatcher) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	c, ok := d.checkers[rule.Type]
	if !ok {
		return model.CheckResult{
			Passed:   false,
			RuleType: model.RuleUnknown,
			Message:  "unrecognized timing rule type " + string(rule.Type),
		}
	}
	return c.Check(ctx, rule, req)
}

// CooldownChecker requires a minimum interval since the sender's last
// recorded execution.
type CooldownChecker struct {
	store state.Store
}

func NewCooldownChecker(store state.Store) *CooldownChecker {
	return &CooldownChecker{store: store}
}

func (c *CooldownChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.CooldownConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	if c.store == nil {
		return model.Pass(rule.Type)
	}

	key := scopeKey(rule.Type, req.Context.Sender)
	last, found, err := c.store.GetLastExecution(ctx, key)
	if err != nil {
		return model.Fail(rule.Type, "last execution unavailable: %v", err)
	}
	if !found {
		return model.Pass(rule.Type)
	}

	elapsed := req.Context.Timestamp - last
	if elapsed < cfg.MinIntervalMs {
		return model.Fail(rule.Type, "cooldown active: %dms elapsed of required %dms", elapsed, cfg.MinIntervalMs).
			WithData(map[string]interface{}{"elapsedMs": elapsed, "minIntervalMs": cfg.MinIntervalMs, "remainingMs": cfg.MinIntervalMs - elapsed})
	}
	return model.Pass(rule.Type)
}

// StateKey exposes the key cooldown tracks, for recording committed executions.
func (c *CooldownChecker) StateKey(rule model.Rule, req *Request) string {
	return scopeKey(rule.Type, req.Context.Sender)
}

// AfterTimestampChecker allows actions at or after a fixed instant.
type AfterTimestampChecker struct{}

func NewAfterTimestampChecker() *AfterTimestampChecker { return &AfterTimestampChecker{} }

func (c *AfterTimestampChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.AfterTimestampConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	if req.Context.Timestamp < cfg.Timestamp {
		return model.Fail(rule.Type, "not active until %d (now %d)", cfg.Timestamp, req.Context.Timestamp).
			WithData(map[string]interface{}{"activeAt": cfg.Timestamp, "remainingMs": cfg.Timestamp - req.Context.Timestamp})
	}
	return model.Pass(rule.Type)
}

// BeforeTimestampChecker allows actions strictly before a fixed instant.
type BeforeTimestampChecker struct{}

func NewBeforeTimestampChecker() *BeforeTimestampChecker { return &BeforeTimestampChecker{} }

func (c *BeforeTimestampChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.BeforeTimestampConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	if req.Context.Timestamp >= cfg.Timestamp {
		return model.Fail(rule.Type, "expired at %d (now %d)", cfg.Timestamp, req.Context.Timestamp).
			WithData(map[string]interface{}{"expiredAt": cfg.Timestamp})
	}
	return model.Pass(rule.Type)
}

// ScheduleChecker allows actions during the configured UTC hours and days.
type ScheduleChecker struct{}

func NewScheduleChecker() *ScheduleChecker { return &ScheduleChecker{} }

func (c *ScheduleChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.ScheduleConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	at := req.Context.Time()
	if len(cfg.Days) > 0 && !containsInt(cfg.Days, int(at.Weekday())) {
		return model.Fail(rule.Type, "weekday %d is not on the schedule", int(at.Weekday())).
			WithData(map[string]interface{}{"weekday": int(at.Weekday()), "days": cfg.Days})
	}
	if len(cfg.Hours) > 0 && !containsInt(cfg.Hours, at.Hour()) {
		return model.Fail(rule.Type, "hour %d UTC is not on the schedule", at.Hour()).
			WithData(map[string]interface{}{"hour": at.Hour(), "hours": cfg.Hours})
	}
	return model.Pass(rule.Type)
}

// BlockDelayChecker requires a minimum block distance since the sender's
// last action. Block facts come from the context; no chain is queried.
type BlockDelayChecker struct{}

func NewBlockDelayChecker() *BlockDelayChecker { return &BlockDelayChecker{} }

func (c *BlockDelayChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.BlockDelayConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	current, ok := req.Context.DataInt64("currentBlock")
	if !ok {
		return model.Fail(rule.Type, "current block number missing from verification context")
	}
	lastBlock, ok := req.Context.DataInt64("lastActionBlock")
	if !ok {
		// No prior action on record, so no delay applies.
		return model.Pass(rule.Type)
	}

	elapsed := current - lastBlock
	if elapsed < cfg.MinBlocks {
		return model.Fail(rule.Type, "%d blocks elapsed of required %d", elapsed, cfg.MinBlocks).
			WithData(map[string]interface{}{"elapsedBlocks": elapsed, "minBlocks": cfg.MinBlocks})
	}
	return model.Pass(rule.Type)
}

// EpochBasedChecker allows actions only inside the active phase of a
// repeating epoch anchored at the configured genesis.
type EpochBasedChecker struct{}

func NewEpochBasedChecker() *EpochBasedChecker { return &EpochBasedChecker{} }

func (c *EpochBasedChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.EpochBasedConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	if req.Context.Timestamp < cfg.GenesisTimestamp {
		return model.Fail(rule.Type, "epoch schedule begins at %d (now %d)", cfg.GenesisTimestamp, req.Context.Timestamp)
	}
	offset := (req.Context.Timestamp - cfg.GenesisTimestamp) % cfg.EpochDurationMs
	if offset < cfg.ActiveFromMs || offset >= cfg.ActiveUntilMs {
		return model.Fail(rule.Type, "epoch offset %dms outside active phase [%d,%d)", offset, cfg.ActiveFromMs, cfg.ActiveUntilMs).
			WithData(map[string]interface{}{"epochOffsetMs": offset, "activeFromMs": cfg.ActiveFromMs, "activeUntilMs": cfg.ActiveUntilMs})
	}
	return model.Pass(rule.Type)
}

// EventTriggeredChecker allows actions only after an external event was
// observed, supplied via context data as "event:<name>" -> unix ms.
type EventTriggeredChecker struct{}

func NewEventTriggeredChecker() *EventTriggeredChecker { return &EventTriggeredChecker{} }

func (c *EventTriggeredChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.EventTriggeredConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	observedAt, ok := req.Context.DataInt64("event:" + cfg.EventName)
	if !ok {
		return model.Fail(rule.Type, "required event %q has not been observed", cfg.EventName)
	}
	if cfg.MaxAgeMs > 0 {
		age := req.Context.Timestamp - observedAt
		if age > cfg.MaxAgeMs {
			return model.Fail(rule.Type, "event %q is %dms old, exceeding freshness bound %dms", cfg.EventName, age, cfg.MaxAgeMs).
				WithData(map[string]interface{}{"ageMs": age, "maxAgeMs": cfg.MaxAgeMs})
		}
	}
	return model.Pass(rule.Type)
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
