// api/model/action.go
package model

import "time"

// ActionInput is the proposed operation under evaluation. It is immutable
// for the duration of a single evaluation.
type ActionInput struct {
	Type   string                 `json:"type"`
	Sender string                 `json:"sender"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// VerificationContext carries ambient facts at evaluation time. Timestamp is
// Unix milliseconds; checkers derive all time math from it rather than from
// the wall clock so evaluation stays deterministic.
type VerificationContext struct {
	Sender    string                 `json:"sender"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Time returns the context timestamp as a UTC time.
func (vc *VerificationContext) Time() time.Time {
	return time.UnixMilli(vc.Timestamp).UTC()
}

// DataString returns a string value from the ambient data, if present.
func (vc *VerificationContext) DataString(key string) (string, bool) {
	if vc.Data == nil {
		return "", false
	}
	v, ok := vc.Data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// DataInt64 returns an integer value from the ambient data, coercing the
// numeric types JSON decoding produces.
func (vc *VerificationContext) DataInt64(key string) (int64, bool) {
	if vc.Data == nil {
		return 0, false
	}
	switch v := vc.Data[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
