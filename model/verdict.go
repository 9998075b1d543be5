// api/model/verdict.go
package model

import "time"

// Verdict is the evaluator's aggregated decision for one action. Exactly one
// verdict is produced per evaluation, even when async rules time out or are
// cancelled.
type Verdict struct {
	Allowed     bool          `json:"allowed"`
	TemplateID  string        `json:"templateId,omitempty"`
	Template    string        `json:"template"`
	Results     []CheckResult `json:"results"`
	FailedRule  RuleType      `json:"failedRule,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	EvaluatedAt time.Time     `json:"evaluatedAt"`
}

// FirstFailure returns the first denial in declared order, if any.
func (v *Verdict) FirstFailure() *CheckResult {
	for i := range v.Results {
		if !v.Results[i].Passed {
			return &v.Results[i]
		}
	}
	return nil
}
