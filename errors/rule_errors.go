// api/errors/rule_errors.go
package errors

import "errors"

var (
	ErrInvalidRuleData     = errors.New("invalid rule data")
	ErrUnknownRuleType     = errors.New("unknown rule type")
	ErrInvalidActionData   = errors.New("invalid action data")
	ErrApprovalNotFound    = errors.New("approval request not found")
	ErrApprovalResolved    = errors.New("approval request already resolved")
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrMalformedEncoding   = errors.New("malformed rule encoding")
	ErrStateStoreOperation = errors.New("state store operation failed")
)
