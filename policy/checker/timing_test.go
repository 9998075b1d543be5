// api/policy/checker/timing_test.go
package checker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/policy/state"
)

func TestTimingDispatcherUnknownTag(t *testing.T) {
	ctx := context.Background()
	d := NewTimingDispatcher(state.NewMemoryStore())

	// A rule whose tag has no registered timing checker fails closed and the
	// result reports the unknown classification, not the original tag.
	rule := model.Rule{Type: model.RuleType("lunar-phase"), Config: &model.CooldownConfig{MinIntervalMs: 1}}
	res := d.Check(ctx, rule, reqAt("0xabc", "transfer", time.Now().UTC(), nil))

	assert.False(t, res.Passed)
	assert.Equal(t, model.RuleUnknown, res.RuleType)
}

func TestCooldownChecker(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	c := NewCooldownChecker(store)
	rule := model.MustRule(model.RuleCooldown, &model.CooldownConfig{MinIntervalMs: 10_000})

	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	req := reqAt("0xabc", "transfer", at, nil)

	// No prior execution: passes.
	require.True(t, c.Check(ctx, rule, req).Passed)

	require.NoError(t, store.RecordExecution(ctx, c.StateKey(rule, req), at.UnixMilli()))

	// 5s later the cooldown still holds.
	res := c.Check(ctx, rule, reqAt("0xabc", "transfer", at.Add(5*time.Second), nil))
	assert.False(t, res.Passed)
	assert.Equal(t, int64(5000), res.Data["remainingMs"])

	// 10s later it has elapsed.
	assert.True(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", at.Add(10*time.Second), nil)).Passed)
}

func TestTimestampCheckers(t *testing.T) {
	ctx := context.Background()
	cutover := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	after := model.MustRule(model.RuleAfterTimestamp, &model.AfterTimestampConfig{Timestamp: cutover})
	before := model.MustRule(model.RuleBeforeTimestamp, &model.BeforeTimestampConfig{Timestamp: cutover})

	early := reqAt("0xabc", "transfer", time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), nil)
	late := reqAt("0xabc", "transfer", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), nil)

	assert.False(t, NewAfterTimestampChecker().Check(ctx, after, early).Passed)
	assert.True(t, NewAfterTimestampChecker().Check(ctx, after, late).Passed)

	assert.True(t, NewBeforeTimestampChecker().Check(ctx, before, early).Passed)
	assert.False(t, NewBeforeTimestampChecker().Check(ctx, before, late).Passed)
}

func TestScheduleChecker(t *testing.T) {
	ctx := context.Background()
	c := NewScheduleChecker()
	rule := model.MustRule(model.RuleSchedule, &model.ScheduleConfig{
		Hours: []int{9, 10, 11},
		Days:  []int{1, 2, 3, 4, 5}, // weekdays
	})

	// Wednesday 10:00 UTC.
	assert.True(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC), nil)).Passed)
	// Wednesday 12:00 UTC, hour off schedule.
	assert.False(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), nil)).Passed)
	// Saturday 10:00 UTC, day off schedule.
	assert.False(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", time.Date(2024, 5, 18, 10, 0, 0, 0, time.UTC), nil)).Passed)
}

func TestBlockDelayChecker(t *testing.T) {
	ctx := context.Background()
	c := NewBlockDelayChecker()
	rule := model.MustRule(model.RuleBlockDelay, &model.BlockDelayConfig{MinBlocks: 10})
	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	t.Run("MissingCurrentBlockDenies", func(t *testing.T) {
		assert.False(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", at, nil)).Passed)
	})

	t.Run("NoPriorActionPasses", func(t *testing.T) {
		req := withContextData(reqAt("0xabc", "transfer", at, nil), map[string]interface{}{"currentBlock": int64(100)})
		assert.True(t, c.Check(ctx, rule, req).Passed)
	})

	t.Run("InsufficientDistanceDenies", func(t *testing.T) {
		req := withContextData(reqAt("0xabc", "transfer", at, nil), map[string]interface{}{
			"currentBlock":    int64(100),
			"lastActionBlock": int64(95),
		})
		assert.False(t, c.Check(ctx, rule, req).Passed)
	})

	t.Run("SufficientDistancePasses", func(t *testing.T) {
		req := withContextData(reqAt("0xabc", "transfer", at, nil), map[string]interface{}{
			"currentBlock":    int64(110),
			"lastActionBlock": int64(95),
		})
		assert.True(t, c.Check(ctx, rule, req).Passed)
	})
}

func TestEpochBasedChecker(t *testing.T) {
	ctx := context.Background()
	c := NewEpochBasedChecker()
	// 1h epochs, active for the first 10 minutes of each.
	rule := model.MustRule(model.RuleEpochBased, &model.EpochBasedConfig{
		GenesisTimestamp: 0,
		EpochDurationMs:  3_600_000,
		ActiveFromMs:     0,
		ActiveUntilMs:    600_000,
	})

	inPhase := reqAt("0xabc", "transfer", time.UnixMilli(7*3_600_000+300_000).UTC(), nil)
	assert.True(t, c.Check(ctx, rule, inPhase).Passed)

	outOfPhase := reqAt("0xabc", "transfer", time.UnixMilli(7*3_600_000+900_000).UTC(), nil)
	assert.False(t, c.Check(ctx, rule, outOfPhase).Passed)
}

func TestEventTriggeredChecker(t *testing.T) {
	ctx := context.Background()
	c := NewEventTriggeredChecker()
	rule := model.MustRule(model.RuleEventTriggered, &model.EventTriggeredConfig{
		EventName: "oracle-heartbeat",
		MaxAgeMs:  60_000,
	})
	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	t.Run("UnobservedEventDenies", func(t *testing.T) {
		assert.False(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", at, nil)).Passed)
	})

	t.Run("FreshEventPasses", func(t *testing.T) {
		req := withContextData(reqAt("0xabc", "transfer", at, nil), map[string]interface{}{
			"event:oracle-heartbeat": at.Add(-30 * time.Second).UnixMilli(),
		})
		assert.True(t, c.Check(ctx, rule, req).Passed)
	})

	t.Run("StaleEventDenies", func(t *testing.T) {
		req := withContextData(reqAt("0xabc", "transfer", at, nil), map[string]interface{}{
			"event:oracle-heartbeat": at.Add(-5 * time.Minute).UnixMilli(),
		})
		assert.False(t, c.Check(ctx, rule, req).Passed)
	})
}
