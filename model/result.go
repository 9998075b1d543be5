// api/model/result.go
package model

import "fmt"

// CheckResult is the uniform outcome shape shared by every checker. A failed
// result always carries a human-readable message; Data holds diagnostics
// such as observed counts and effective limits.
type CheckResult struct {
	Passed   bool                   `json:"passed"`
	RuleType RuleType               `json:"ruleType"`
	Message  string                 `json:"message,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Pass builds a passing result for the given rule type.
func Pass(t RuleType) CheckResult {
	return CheckResult{Passed: true, RuleType: t}
}

// Fail builds a denial with a formatted message.
func Fail(t RuleType, format string, args ...interface{}) CheckResult {
	return CheckResult{
		Passed:   false,
		RuleType: t,
		Message:  fmt.Sprintf(format, args...),
	}
}

// WithData attaches diagnostic data to a result.
func (r CheckResult) WithData(data map[string]interface{}) CheckResult {
	r.Data = data
	return r
}
