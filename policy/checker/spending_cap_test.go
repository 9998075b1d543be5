// api/policy/checker/spending_cap_test.go
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

func TestSpendingCapChecker(t *testing.T) {
	ctx := context.Background()
	rule := model.MustRule(model.RuleSpendingCap, &model.SpendingCapConfig{
		MaxPerTx:  model.MustAmount("1000"),
		MaxPerDay: model.MustAmount("2500"),
	})
	day1 := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	t.Run("AmountWithinBothCapsPasses", func(t *testing.T) {
		c := NewSpendingCapChecker(state.NewMemoryStore())
		res := c.Check(ctx, rule, reqAt("0xabc", "transfer", day1, map[string]interface{}{"amount": "1000"}))
		assert.True(t, res.Passed)
	})

	t.Run("PerTxCapDenies", func(t *testing.T) {
		c := NewSpendingCapChecker(state.NewMemoryStore())
		res := c.Check(ctx, rule, reqAt("0xabc", "transfer", day1, map[string]interface{}{"amount": "1001"}))
		assert.False(t, res.Passed)
		assert.Equal(t, model.RuleSpendingCap, res.RuleType)
	})

	t.Run("DailyCapAccumulates", func(t *testing.T) {
		store := state.NewMemoryStore()
		c := NewSpendingCapChecker(store)

		// Two committed spends of 1000 leave 500 of headroom.
		for i := 0; i < 2; i++ {
			req := reqAt("0xabc", "transfer", day1, map[string]interface{}{"amount": "1000"})
			res := c.Check(ctx, rule, req)
			require.True(t, res.Passed)
			require.NoError(t, c.RecordSpent(ctx, req.Context, model.MustAmount("1000")))
		}

		res := c.Check(ctx, rule, reqAt("0xabc", "transfer", day1, map[string]interface{}{"amount": "600"}))
		assert.False(t, res.Passed)

		res = c.Check(ctx, rule, reqAt("0xabc", "transfer", day1, map[string]interface{}{"amount": "500"}))
		assert.True(t, res.Passed)
	})

	t.Run("DailySpendResetsAtUTCMidnight", func(t *testing.T) {
		store := state.NewMemoryStore()
		c := NewSpendingCapChecker(store)

		lateNight := time.Date(2024, 5, 15, 23, 50, 0, 0, time.UTC)
		req := reqAt("0xabc", "transfer", lateNight, map[string]interface{}{"amount": "1000"})
		require.True(t, c.Check(ctx, rule, req).Passed)
		require.NoError(t, c.RecordSpent(ctx, req.Context, model.MustAmount("1000")))
		req2 := reqAt("0xabc", "transfer", lateNight, map[string]interface{}{"amount": "1000"})
		require.True(t, c.Check(ctx, rule, req2).Passed)
		require.NoError(t, c.RecordSpent(ctx, req2.Context, model.MustAmount("1000")))

		// 2000 spent on the 15th; another 1000 would breach the daily cap.
		res := c.Check(ctx, rule, reqAt("0xabc", "transfer", lateNight, map[string]interface{}{"amount": "1000"}))
		assert.False(t, res.Passed)

		// Ten minutes later it is the 16th in UTC and the cap is fresh.
		nextDay := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
		res = c.Check(ctx, rule, reqAt("0xabc", "transfer", nextDay, map[string]interface{}{"amount": "1000"}))
		assert.True(t, res.Passed)
	})

	t.Run("SendersAreIsolated", func(t *testing.T) {
		store := state.NewMemoryStore()
		c := NewSpendingCapChecker(store)

		req := reqAt("0xaaa", "transfer", day1, map[string]interface{}{"amount": "1000"})
		require.NoError(t, c.RecordSpent(ctx, req.Context, model.MustAmount("2500")))

		res := c.Check(ctx, rule, reqAt("0xbbb", "transfer", day1, map[string]interface{}{"amount": "1000"}))
		assert.True(t, res.Passed)
	})

	t.Run("MissingAmountFieldPasses", func(t *testing.T) {
		c := NewSpendingCapChecker(state.NewMemoryStore())
		res := c.Check(ctx, rule, reqAt("0xabc", "vote", day1, nil))
		assert.True(t, res.Passed)
	})

	t.Run("MalformedAmountDenies", func(t *testing.T) {
		c := NewSpendingCapChecker(state.NewMemoryStore())
		res := c.Check(ctx, rule, reqAt("0xabc", "transfer", day1, map[string]interface{}{"amount": "12x4"}))
		assert.False(t, res.Passed)
	})
}
