// api/policy/checker/spending_cap.go

package checker

import (
	"context"
	"time"

	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/policy/state"
)

// SpendingCapChecker enforces per-transaction and per-UTC-day amount caps.
// Daily totals live in the injected store keyed by sender and UTC date, so
// the day boundary reset is lazy: a new date is simply a key that has never
// accumulated anything. No timer is involved.
type SpendingCapChecker struct {
	store state.Store
}

func NewSpendingCapChecker(store state.Store) *SpendingCapChecker {
	return &SpendingCapChecker{store: store}
}

func (c *SpendingCapChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.SpendingCapConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	amount, present, err := extractAmount(req.Action)
	if err != nil {
		return model.Fail(rule.Type, "unreadable transaction amount: %v", err)
	}
	if !present {
		// No coercible amount field means no amount constraint applies.
		return model.Pass(rule.Type)
	}

	if amount.Cmp(cfg.MaxPerTx) > 0 {
		return model.Fail(rule.Type, "amount %s exceeds per-transaction cap %s", amount, cfg.MaxPerTx).
			WithData(map[string]interface{}{"amount": amount.String(), "maxPerTx": cfg.MaxPerTx.String()})
	}

	date := utcDate(req.Context)
	spent, err := c.store.GetDailySpent(ctx, req.Context.Sender, date)
	if err != nil {
		return model.Fail(rule.Type, "daily spend unavailable: %v", err)
	}

	if spent.Add(amount).Cmp(cfg.MaxPerDay) > 0 {
		return model.Fail(rule.Type, "amount %s would exceed daily cap %s (spent %s today)", amount, cfg.MaxPerDay, spent).
			WithData(map[string]interface{}{
				"amount":     amount.String(),
				"dailySpent": spent.String(),
				"maxPerDay":  cfg.MaxPerDay.String(),
			})
	}

	return model.Pass(rule.Type)
}

// RecordSpent commits the spend after the gated action actually executed.
// The check is a pure decision; this is the committed effect. Never conflate
// the two.
func (c *SpendingCapChecker) RecordSpent(ctx context.Context, vctx *model.VerificationContext, amount *model.Amount) error {
	return c.store.RecordSpent(ctx, vctx.Sender, utcDate(vctx), amount)
}

func utcDate(vctx *model.VerificationContext) string {
	return vctx.Time().Format(time.DateOnly)
}
