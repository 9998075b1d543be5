// api/policy/engine/evaluator.go

package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/policy/checker"
)

// Evaluator runs a template's ordered rule list against one action. The
// default mode short-circuits at the first failure; callers needing a
// complete report request FullReport explicitly.
type Evaluator struct {
	registry *Registry
}

func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Options tunes a single evaluation.
type Options struct {
	// FullReport evaluates every rule instead of stopping at the first
	// failure. Async branches run eagerly alongside the synchronous ones.
	FullReport bool
}

// Evaluate produces exactly one verdict for the action. Rule denials are
// results, never errors; the error return covers only malformed input.
func (e *Evaluator) Evaluate(ctx context.Context, tmpl *model.Template, req *checker.Request, opts Options) (*model.Verdict, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("cannot evaluate a nil template")
	}
	if req == nil || req.Action == nil || req.Context == nil {
		return nil, fmt.Errorf("evaluation requires an action and a verification context")
	}

	rules := orderedRules(tmpl)
	var results []model.CheckResult
	if opts.FullReport {
		results = e.evaluateAll(ctx, rules, req)
	} else {
		results = e.evaluateShortCircuit(ctx, rules, req)
	}

	verdict := &model.Verdict{
		Allowed:     true,
		TemplateID:  tmpl.ID,
		Template:    tmpl.Name,
		Results:     results,
		EvaluatedAt: req.Context.Time(),
	}
	if failure := verdict.FirstFailure(); failure != nil {
		verdict.Allowed = false
		verdict.FailedRule = failure.RuleType
		verdict.Reason = failure.Message
	}

	logger.Debug("Template evaluated",
		zap.String("template", tmpl.Name),
		zap.String("sender", req.Context.Sender),
		zap.Bool("allowed", verdict.Allowed),
		zap.Int("rules", len(rules)))
	return verdict, nil
}

// evaluateShortCircuit walks the declared order and stops at the first
// denial. An async rule reached in order suspends this chain until its
// resolution arrives.
func (e *Evaluator) evaluateShortCircuit(ctx context.Context, rules []model.Rule, req *checker.Request) []model.CheckResult {
	var results []model.CheckResult
	for _, rule := range rules {
		result := e.checkOne(ctx, rule, req)
		results = append(results, result)
		if !result.Passed {
			break
		}
	}
	return results
}

// evaluateAll produces a result for every rule. Synchronous rules run in
// declared order; async rules suspend only their own branch, evaluated
// eagerly alongside via an errgroup.
func (e *Evaluator) evaluateAll(ctx context.Context, rules []model.Rule, req *checker.Request) []model.CheckResult {
	results := make([]model.CheckResult, len(rules))

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for i, rule := range rules {
		if !rule.RequiresAsync() {
			continue
		}
		i, rule := i, rule
		g.Go(func() error {
			r := e.checkOne(gctx, rule, req)
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}

	for i, rule := range rules {
		if rule.RequiresAsync() {
			continue
		}
		r := e.checkOne(ctx, rule, req)
		mu.Lock()
		results[i] = r
		mu.Unlock()
	}

	// Checkers never error; the group only synchronizes completion.
	_ = g.Wait()
	return results
}

// checkOne dispatches a single rule through the registry. Unrecognized tags
// fail closed with the "unknown" tag rather than erroring.
func (e *Evaluator) checkOne(ctx context.Context, rule model.Rule, req *checker.Request) model.CheckResult {
	c, ok := e.registry.Lookup(rule.Type)
	if !ok {
		logger.Warn("No checker registered for rule type", zap.String("ruleType", string(rule.Type)))
		return model.CheckResult{
			Passed:   false,
			RuleType: model.RuleUnknown,
			Message:  "unrecognized rule type " + string(rule.Type),
		}
	}

	if rule.RequiresAsync() {
		if ap, isAsync := c.(checker.AsyncPolicy); isAsync && ap.RequiresAsync() {
			return ap.CheckAsync(ctx, rule, req)
		}
	}
	return c.Check(ctx, rule, req)
}

// orderedRules flattens a template into evaluation order: authorization,
// then rate limits, then timing, each in declared order.
func orderedRules(tmpl *model.Template) []model.Rule {
	rules := make([]model.Rule, 0, 1+len(tmpl.RateLimits)+len(tmpl.Timing))
	if tmpl.Authorization != nil {
		rules = append(rules, *tmpl.Authorization)
	}
	rules = append(rules, tmpl.RateLimits...)
	rules = append(rules, tmpl.Timing...)
	return rules
}
