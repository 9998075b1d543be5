// api/audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// VerdictLog is one evaluation outcome as persisted for audit: who asked to
// do what, under which template, and what the engine decided.
type VerdictLog struct {
	Timestamp  time.Time       `json:"timestamp"`
	Sender     string          `json:"sender"`
	ActionType string          `json:"action_type"`
	TemplateID string          `json:"template_id"`
	Allowed    bool            `json:"allowed"`
	FailedRule string          `json:"failed_rule,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}
