// api/policy/checker/require_payment.go

package checker

import (
	"context"
	"fmt"
	"strings"

	"github.com/warden-labs/warden/api/model"
)

// RequirePaymentChecker demands that the action carries a payment of at
// least the configured minimum. Exempt action types skip the requirement.
type RequirePaymentChecker struct{}

func NewRequirePaymentChecker() *RequirePaymentChecker {
	return &RequirePaymentChecker{}
}

func (c *RequirePaymentChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.RequirePaymentConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	for _, exempt := range cfg.ExemptActions {
		if exempt == req.Action.Type {
			return model.Pass(rule.Type)
		}
	}

	min, err := parseMinAmount(cfg.MinAmount)
	if err != nil {
		return model.Fail(rule.Type, "unusable minAmount %q: %v", cfg.MinAmount, err)
	}

	amount, present, err := extractAmount(req.Action)
	if err != nil {
		return model.Fail(rule.Type, "unreadable payment amount: %v", err)
	}
	if !present {
		return model.Fail(rule.Type, "action %q carries no payment, %s required", req.Action.Type, min).
			WithData(map[string]interface{}{"minAmount": min.String()})
	}
	if amount.Cmp(min) < 0 {
		return model.Fail(rule.Type, "payment %s is below the required minimum %s", amount, min).
			WithData(map[string]interface{}{"amount": amount.String(), "minAmount": min.String()})
	}
	return model.Pass(rule.Type)
}

// parseMinAmount accepts the operator-facing decimal notation ("1.00") in
// addition to plain integers. Amounts are integral base units, so a nonzero
// fraction has no representation and is rejected.
func parseMinAmount(s string) (*model.Amount, error) {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if frac := s[i+1:]; strings.Trim(frac, "0") != "" {
			return nil, fmt.Errorf("invalid amount %q: fractional base units", s)
		}
		s = s[:i]
	}
	return model.NewAmount(s)
}
