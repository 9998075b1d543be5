// api/policy/checker/action_whitelist.go

package checker

import (
	"context"

	"github.com/warden-labs/warden/api/model"
)

// ActionWhitelistChecker allows an action iff its declared type is a member
// of the fixed allow-set.
type ActionWhitelistChecker struct{}

func NewActionWhitelistChecker() *ActionWhitelistChecker {
	return &ActionWhitelistChecker{}
}

func (c *ActionWhitelistChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.ActionWhitelistConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	for _, allowed := range cfg.Actions {
		if allowed == req.Action.Type {
			return model.Pass(rule.Type)
		}
	}

	return model.Fail(rule.Type, "action type %q is not whitelisted", req.Action.Type).
		WithData(map[string]interface{}{"actionType": req.Action.Type, "allowed": cfg.Actions})
}
