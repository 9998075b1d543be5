// api/policy/checker/time_window_test.go
package checker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warden-labs/warden/api/model"
)

func atUTCHour(hour int) time.Time {
	// 2024-05-15 is a Wednesday (weekday 3).
	return time.Date(2024, 5, 15, hour, 30, 0, 0, time.UTC)
}

func TestTimeWindowChecker(t *testing.T) {
	ctx := context.Background()
	c := NewTimeWindowChecker()

	t.Run("AscendingWindow", func(t *testing.T) {
		rule := model.MustRule(model.RuleTimeWindow, &model.TimeWindowConfig{StartHour: 9, EndHour: 17})

		assert.True(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(9), nil)).Passed)
		assert.True(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(16), nil)).Passed)
		assert.False(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(17), nil)).Passed, "end hour is exclusive")
		assert.False(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(8), nil)).Passed)
	})

	t.Run("WraparoundWindow", func(t *testing.T) {
		// 22-6 spans midnight: 23:00 and 02:00 are inside, 10:00 is not.
		rule := model.MustRule(model.RuleTimeWindow, &model.TimeWindowConfig{StartHour: 22, EndHour: 6})

		assert.True(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(23), nil)).Passed)
		assert.True(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(2), nil)).Passed)
		assert.True(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(22), nil)).Passed)
		assert.False(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(10), nil)).Passed)
		assert.False(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(6), nil)).Passed)
	})

	t.Run("DayCheckPrecedesHourCheck", func(t *testing.T) {
		// Wednesday is weekday 3; only Monday and Tuesday are allowed, so
		// even an in-window hour is denied on the day ground.
		rule := model.MustRule(model.RuleTimeWindow, &model.TimeWindowConfig{
			StartHour:   9,
			EndHour:     17,
			AllowedDays: []int{1, 2},
		})

		res := c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(10), nil))
		assert.False(t, res.Passed)
		assert.Contains(t, res.Message, "day")
	})

	t.Run("AllowedDayAndHourPasses", func(t *testing.T) {
		rule := model.MustRule(model.RuleTimeWindow, &model.TimeWindowConfig{
			StartHour:   9,
			EndHour:     17,
			AllowedDays: []int{3},
		})

		assert.True(t, c.Check(ctx, rule, reqAt("0xabc", "transfer", atUTCHour(10), nil)).Passed)
	})
}
