// api/policy/engine/registry.go

package engine

import (
	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/policy/checker"
	"github.com/warden-labs/warden/api/policy/state"
)

// Dependencies are the external collaborators checkers draw on. Any of them
// may be nil; the affected checkers then degrade the way their contracts
// document (permissive for missing state stores, denial for missing
// proposal sources).
type Dependencies struct {
	Store     state.Store
	Proposals model.ProposalSource
	Broker    *checker.ApprovalBroker
}

// Registry maps rule-type tags to checker implementations. Dispatch is a
// table lookup; adding a rule kind means one Register call, the evaluator
// never changes.
type Registry struct {
	checkers map[model.RuleType]checker.Checker
}

// NewRegistry wires the full rule catalog against the given collaborators.
func NewRegistry(deps Dependencies) *Registry {
	r := &Registry{checkers: make(map[model.RuleType]checker.Checker)}

	spendingCap := checker.NewSpendingCapChecker(deps.Store)
	r.Register(model.RuleSpendingCap, spendingCap)
	r.Register(model.RuleActionWhitelist, checker.NewActionWhitelistChecker())
	r.Register(model.RuleRequirePayment, checker.NewRequirePaymentChecker())

	r.Register(model.RulePerAddressLimit, checker.NewPerAddressLimitChecker(deps.Store))
	r.Register(model.RulePerFunctionLimit, checker.NewPerFunctionLimitChecker(deps.Store))
	r.Register(model.RuleGlobalLimit, checker.NewGlobalLimitChecker(deps.Store))
	r.Register(model.RuleValueLimit, checker.NewValueLimitChecker(deps.Store))
	r.Register(model.RuleGasLimit, checker.NewGasLimitChecker(deps.Store))
	r.Register(model.RuleProgressiveLimit, checker.NewProgressiveLimitChecker(deps.Store))
	r.Register(model.RuleReputationLimit, checker.NewReputationLimitChecker(deps.Store))

	timing := checker.NewTimingDispatcher(deps.Store)
	for _, t := range []model.RuleType{
		model.RuleTimeWindow,
		model.RuleCooldown,
		model.RuleAfterTimestamp,
		model.RuleBeforeTimestamp,
		model.RuleSchedule,
		model.RuleBlockDelay,
		model.RuleEpochBased,
		model.RuleEventTriggered,
	} {
		r.Register(t, timing)
	}

	r.Register(model.RuleWhitelist, checker.NewWhitelistChecker())
	r.Register(model.RuleNFTGated, checker.NewNFTGatedChecker())
	r.Register(model.RuleDAOApproval, checker.NewDAOApprovalChecker(deps.Proposals))

	broker := deps.Broker
	if broker == nil {
		broker = checker.NewApprovalBroker()
	}
	r.Register(model.RuleVoting, checker.NewVotingPolicy(broker))
	r.Register(model.RuleHumanApproval, checker.NewHumanApprovalPolicy(broker))

	return r
}

// Register adds or replaces the checker bound to a tag.
func (r *Registry) Register(t model.RuleType, c checker.Checker) {
	r.checkers[t] = c
}

// Lookup returns the checker for a tag.
func (r *Registry) Lookup(t model.RuleType) (checker.Checker, bool) {
	c, ok := r.checkers[t]
	return c, ok
}
