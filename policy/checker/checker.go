// api/policy/checker/checker.go

package checker

import (
	"context"
	"fmt"
	"strings"

	"github.com/warden-labs/warden/api/model"
)

// Request bundles everything a checker may consult for one evaluation: the
// proposed action, the ambient verification context and, for authorization
// rules, an optional caller-supplied proof.
type Request struct {
	Action  *model.ActionInput
	Context *model.VerificationContext
	Proof   interface{}
}

// Checker decides whether a single rule currently allows the action. Check
// never returns an error and never mutates shared state; a denial is a
// structured result carrying a human-readable message. State mutations
// (spend records, execution counts) are separate, explicit operations
// invoked only after the gated action is committed.
type Checker interface {
	Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult
}

// AsyncPolicy marks rules that cannot resolve from local data alone. The
// evaluator distinguishes these via the capability flag, never by invoking
// and catching failures. CheckAsync suspends until an external outcome
// arrives, the rule's timeout elapses, or the context is cancelled, and
// always resolves to exactly one result.
type AsyncPolicy interface {
	Checker
	RequiresAsync() bool
	CheckAsync(ctx context.Context, rule model.Rule, req *Request) model.CheckResult
}

// wrongConfig is the fail-closed result for a rule whose config does not
// match its tag. Construction-time validation makes this unreachable for
// rules built through model.NewRule.
func wrongConfig(t model.RuleType, cfg interface{}) model.CheckResult {
	return model.Fail(t, "misconfigured rule: unexpected config type %T", cfg)
}

// scopeKey derives the composite state-store key for a rule: rule type plus
// scope plus optional address/selector qualifiers. Addresses are compared
// and keyed case-insensitively.
func scopeKey(t model.RuleType, parts ...string) string {
	key := string(t)
	for _, p := range parts {
		if p == "" {
			continue
		}
		key += ":" + strings.ToLower(p)
	}
	return key
}

// extractAmount scans the action params for a per-transaction amount using
// the canonical field names, in order. The list is deliberately fixed; do not
// add aliases silently.
var amountFields = []string{"amount", "value", "wei", "quantity"}

func extractAmount(action *model.ActionInput) (*model.Amount, bool, error) {
	if action == nil || action.Params == nil {
		return nil, false, nil
	}
	for _, field := range amountFields {
		raw, ok := action.Params[field]
		if !ok {
			continue
		}
		amount, err := model.CoerceAmount(raw)
		if err != nil {
			return nil, true, fmt.Errorf("param %q: %w", field, err)
		}
		return amount, true, nil
	}
	return nil, false, nil
}
