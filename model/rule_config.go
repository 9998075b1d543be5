// api/model/rule_config.go
package model

import "fmt"

// SpendingCapConfig caps the amount a sender may move per transaction and
// per UTC day. Amounts are base-unit integers.
type SpendingCapConfig struct {
	MaxPerTx  *Amount `json:"maxPerTx"`
	MaxPerDay *Amount `json:"maxPerDay"`
}

func (c *SpendingCapConfig) Validate() error {
	if c.MaxPerTx == nil || c.MaxPerDay == nil {
		return fmt.Errorf("maxPerTx and maxPerDay are required")
	}
	if c.MaxPerTx.Cmp(c.MaxPerDay) > 0 {
		return fmt.Errorf("maxPerTx %s exceeds maxPerDay %s", c.MaxPerTx, c.MaxPerDay)
	}
	return nil
}

// TimeWindowConfig restricts actions to UTC hours and weekdays. A start at
// or after the end hour denotes a window spanning midnight (22 -> 6).
type TimeWindowConfig struct {
	StartHour   int   `json:"startHour"`
	EndHour     int   `json:"endHour"`
	AllowedDays []int `json:"allowedDays,omitempty"`
}

func (c *TimeWindowConfig) Validate() error {
	if c.StartHour < 0 || c.StartHour > 23 {
		return fmt.Errorf("startHour %d out of range [0,23]", c.StartHour)
	}
	if c.EndHour < 0 || c.EndHour > 23 {
		return fmt.Errorf("endHour %d out of range [0,23]", c.EndHour)
	}
	for _, d := range c.AllowedDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("allowed day %d out of range [0,6]", d)
		}
	}
	return nil
}

// ActionWhitelistConfig allows only the listed action types.
type ActionWhitelistConfig struct {
	Actions []string `json:"actions"`
}

func (c *ActionWhitelistConfig) Validate() error {
	if len(c.Actions) == 0 {
		return fmt.Errorf("at least one allowed action is required")
	}
	return nil
}

// RequirePaymentConfig demands a minimum payment for non-exempt actions.
// MinAmount is kept as the operator wrote it (e.g. "1.00"); the codec
// round-trips it verbatim. At evaluation time decimal notation is accepted
// only with a zero fraction, since amounts are integral base units.
type RequirePaymentConfig struct {
	MinAmount     string   `json:"minAmount"`
	ExemptActions []string `json:"exemptActions,omitempty"`
}

func (c *RequirePaymentConfig) Validate() error {
	if c.MinAmount == "" {
		return fmt.Errorf("minAmount is required")
	}
	return nil
}

// PerAddressLimitConfig bounds executions per sender inside a sliding window.
type PerAddressLimitConfig struct {
	MaxExecutions int64 `json:"maxExecutions"`
	WindowMs      int64 `json:"windowMs"`
}

func (c *PerAddressLimitConfig) Validate() error {
	return validateWindowLimit(c.MaxExecutions, c.WindowMs)
}

// PerFunctionLimitConfig bounds executions of tracked function selectors.
// Selectors outside the tracked set are not enforced. PerAddress further
// scopes the counter by sender.
type PerFunctionLimitConfig struct {
	MaxExecutions int64    `json:"maxExecutions"`
	WindowMs      int64    `json:"windowMs"`
	Selectors     []string `json:"selectors"`
	PerAddress    bool     `json:"perAddress,omitempty"`
}

func (c *PerFunctionLimitConfig) Validate() error {
	if len(c.Selectors) == 0 {
		return fmt.Errorf("at least one tracked selector is required")
	}
	return validateWindowLimit(c.MaxExecutions, c.WindowMs)
}

// GlobalLimitConfig bounds executions across all senders. BurstCapacity,
// when set, overrides MaxExecutions as the effective ceiling and must
// exceed it.
type GlobalLimitConfig struct {
	MaxExecutions int64 `json:"maxExecutions"`
	WindowMs      int64 `json:"windowMs"`
	BurstCapacity int64 `json:"burstCapacity,omitempty"`
}

func (c *GlobalLimitConfig) Validate() error {
	if err := validateWindowLimit(c.MaxExecutions, c.WindowMs); err != nil {
		return err
	}
	if c.BurstCapacity != 0 && c.BurstCapacity <= c.MaxExecutions {
		return fmt.Errorf("burstCapacity %d must exceed maxExecutions %d", c.BurstCapacity, c.MaxExecutions)
	}
	return nil
}

// ValueLimitConfig bounds cumulative transferred value inside a window.
type ValueLimitConfig struct {
	MaxValue *Amount `json:"maxValue"`
	WindowMs int64   `json:"windowMs"`
}

func (c *ValueLimitConfig) Validate() error {
	if c.MaxValue == nil {
		return fmt.Errorf("maxValue is required")
	}
	if c.WindowMs <= 0 {
		return fmt.Errorf("windowMs must be positive, got %d", c.WindowMs)
	}
	return nil
}

// GasLimitConfig bounds cumulative gas consumption inside a window.
type GasLimitConfig struct {
	MaxGas   *Amount `json:"maxGas"`
	WindowMs int64   `json:"windowMs"`
}

func (c *GasLimitConfig) Validate() error {
	if c.MaxGas == nil {
		return fmt.Errorf("maxGas is required")
	}
	if c.WindowMs <= 0 {
		return fmt.Errorf("windowMs must be positive, got %d", c.WindowMs)
	}
	return nil
}

// ProgressiveLimitConfig grows the effective limit linearly over time:
//
//	effective = min(baseLimit + step * floor((now-startTimestamp)/stepIntervalMs), maxExecutions)
//
// The curve is fully declared here; checkers never hardcode growth.
type ProgressiveLimitConfig struct {
	BaseLimit      int64 `json:"baseLimit"`
	Step           int64 `json:"step"`
	StepIntervalMs int64 `json:"stepIntervalMs"`
	MaxExecutions  int64 `json:"maxExecutions"`
	WindowMs       int64 `json:"windowMs"`
	StartTimestamp int64 `json:"startTimestamp"`
}

func (c *ProgressiveLimitConfig) Validate() error {
	if c.BaseLimit <= 0 {
		return fmt.Errorf("baseLimit must be positive, got %d", c.BaseLimit)
	}
	if c.Step < 0 {
		return fmt.Errorf("step must be non-negative, got %d", c.Step)
	}
	if c.Step > 0 && c.StepIntervalMs <= 0 {
		return fmt.Errorf("stepIntervalMs must be positive when step is set")
	}
	if c.MaxExecutions < c.BaseLimit {
		return fmt.Errorf("maxExecutions %d below baseLimit %d", c.MaxExecutions, c.BaseLimit)
	}
	if c.WindowMs <= 0 {
		return fmt.Errorf("windowMs must be positive, got %d", c.WindowMs)
	}
	return nil
}

// ReputationLimitConfig scales the effective limit with an externally
// supplied reputation score:
//
//	effective = clamp(minLimit + limitPerPoint * score, minLimit, maxLimit)
//
// The score arrives in the verification context; it is never fetched here.
type ReputationLimitConfig struct {
	MinLimit      int64 `json:"minLimit"`
	MaxLimit      int64 `json:"maxLimit"`
	LimitPerPoint int64 `json:"limitPerPoint"`
	WindowMs      int64 `json:"windowMs"`
}

func (c *ReputationLimitConfig) Validate() error {
	if c.MinLimit <= 0 {
		return fmt.Errorf("minLimit must be positive, got %d", c.MinLimit)
	}
	if c.MaxLimit < c.MinLimit {
		return fmt.Errorf("maxLimit %d below minLimit %d", c.MaxLimit, c.MinLimit)
	}
	if c.WindowMs <= 0 {
		return fmt.Errorf("windowMs must be positive, got %d", c.WindowMs)
	}
	return nil
}

// CooldownConfig enforces a minimum interval between executions.
type CooldownConfig struct {
	MinIntervalMs int64 `json:"minIntervalMs"`
}

func (c *CooldownConfig) Validate() error {
	if c.MinIntervalMs <= 0 {
		return fmt.Errorf("minIntervalMs must be positive, got %d", c.MinIntervalMs)
	}
	return nil
}

// AfterTimestampConfig allows actions only at or after the timestamp (ms).
type AfterTimestampConfig struct {
	Timestamp int64 `json:"timestamp"`
}

func (c *AfterTimestampConfig) Validate() error {
	if c.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive, got %d", c.Timestamp)
	}
	return nil
}

// BeforeTimestampConfig allows actions only strictly before the timestamp (ms).
type BeforeTimestampConfig struct {
	Timestamp int64 `json:"timestamp"`
}

func (c *BeforeTimestampConfig) Validate() error {
	if c.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive, got %d", c.Timestamp)
	}
	return nil
}

// ScheduleConfig allows actions during the listed UTC hours and weekdays.
// Empty hours or days means "any".
type ScheduleConfig struct {
	Hours []int `json:"hours,omitempty"`
	Days  []int `json:"days,omitempty"`
}

func (c *ScheduleConfig) Validate() error {
	for _, h := range c.Hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("hour %d out of range [0,23]", h)
		}
	}
	for _, d := range c.Days {
		if d < 0 || d > 6 {
			return fmt.Errorf("day %d out of range [0,6]", d)
		}
	}
	return nil
}

// BlockDelayConfig requires a minimum number of blocks since the sender's
// last action. Block facts come from the verification context; this checker
// never queries a chain.
type BlockDelayConfig struct {
	MinBlocks int64 `json:"minBlocks"`
}

func (c *BlockDelayConfig) Validate() error {
	if c.MinBlocks <= 0 {
		return fmt.Errorf("minBlocks must be positive, got %d", c.MinBlocks)
	}
	return nil
}

// EpochBasedConfig allows actions only inside a phase of a repeating epoch.
// Offsets are milliseconds from the start of each epoch.
type EpochBasedConfig struct {
	GenesisTimestamp int64 `json:"genesisTimestamp"`
	EpochDurationMs  int64 `json:"epochDurationMs"`
	ActiveFromMs     int64 `json:"activeFromMs"`
	ActiveUntilMs    int64 `json:"activeUntilMs"`
}

func (c *EpochBasedConfig) Validate() error {
	if c.EpochDurationMs <= 0 {
		return fmt.Errorf("epochDurationMs must be positive, got %d", c.EpochDurationMs)
	}
	if c.ActiveFromMs < 0 || c.ActiveUntilMs > c.EpochDurationMs || c.ActiveFromMs >= c.ActiveUntilMs {
		return fmt.Errorf("active phase [%d,%d) invalid for epoch of %dms", c.ActiveFromMs, c.ActiveUntilMs, c.EpochDurationMs)
	}
	return nil
}

// EventTriggeredConfig allows actions only after a named external event was
// observed, optionally within a freshness bound.
type EventTriggeredConfig struct {
	EventName string `json:"eventName"`
	MaxAgeMs  int64  `json:"maxAgeMs,omitempty"`
}

func (c *EventTriggeredConfig) Validate() error {
	if c.EventName == "" {
		return fmt.Errorf("eventName is required")
	}
	if c.MaxAgeMs < 0 {
		return fmt.Errorf("maxAgeMs must be non-negative, got %d", c.MaxAgeMs)
	}
	return nil
}

// WhitelistConfig authorizes senders on a direct address list, or via a
// membership proof against MembershipRoot (hex-encoded) when the sender is
// not listed directly.
type WhitelistConfig struct {
	Addresses      []string `json:"addresses,omitempty"`
	MembershipRoot string   `json:"membershipRoot,omitempty"`
}

func (c *WhitelistConfig) Validate() error {
	if len(c.Addresses) == 0 && c.MembershipRoot == "" {
		return fmt.Errorf("either addresses or membershipRoot is required")
	}
	return nil
}

// NFTGatedConfig authorizes holders of an asset. RequiredTokenID, when set,
// demands ownership of that specific token.
type NFTGatedConfig struct {
	ContractAddress string `json:"contractAddress"`
	Standard        string `json:"standard"`
	MinBalance      int64  `json:"minBalance"`
	RequiredTokenID string `json:"requiredTokenId,omitempty"`
}

func (c *NFTGatedConfig) Validate() error {
	if c.ContractAddress == "" {
		return fmt.Errorf("contractAddress is required")
	}
	if c.MinBalance <= 0 {
		return fmt.Errorf("minBalance must be positive, got %d", c.MinBalance)
	}
	return nil
}

// DAOApprovalConfig gates an action on a governance proposal reaching an
// executable state with sufficient participation.
type DAOApprovalConfig struct {
	ProposalID string `json:"proposalId"`
	QuorumBps  int64  `json:"quorumBps"`
}

func (c *DAOApprovalConfig) Validate() error {
	if c.ProposalID == "" {
		return fmt.Errorf("proposalId is required")
	}
	if c.QuorumBps < 0 || c.QuorumBps > 10000 {
		return fmt.Errorf("quorumBps %d out of range [0,10000]", c.QuorumBps)
	}
	return nil
}

// VotingConfig requires a threshold of designated voters to approve. A
// timeout is mandatory: an unresolved vote must eventually deny, never hang.
type VotingConfig struct {
	Voters            []string `json:"voters"`
	RequiredApprovals int      `json:"requiredApprovals"`
	TimeoutMs         int64    `json:"timeoutMs"`
}

func (c *VotingConfig) Validate() error {
	if len(c.Voters) == 0 {
		return fmt.Errorf("at least one voter is required")
	}
	if c.RequiredApprovals <= 0 || c.RequiredApprovals > len(c.Voters) {
		return fmt.Errorf("requiredApprovals %d out of range [1,%d]", c.RequiredApprovals, len(c.Voters))
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("timeoutMs must be positive, got %d", c.TimeoutMs)
	}
	return nil
}

// HumanApprovalConfig requires explicit sign-off from designated approvers.
// The timeout is mandatory for the same reason as VotingConfig.
type HumanApprovalConfig struct {
	Approvers    []string `json:"approvers"`
	MinApprovals int      `json:"minApprovals"`
	TimeoutMs    int64    `json:"timeoutMs"`
}

func (c *HumanApprovalConfig) Validate() error {
	if len(c.Approvers) == 0 {
		return fmt.Errorf("at least one approver is required")
	}
	if c.MinApprovals <= 0 || c.MinApprovals > len(c.Approvers) {
		return fmt.Errorf("minApprovals %d out of range [1,%d]", c.MinApprovals, len(c.Approvers))
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("timeoutMs must be positive, got %d", c.TimeoutMs)
	}
	return nil
}

func validateWindowLimit(max, windowMs int64) error {
	if max <= 0 {
		return fmt.Errorf("maxExecutions must be positive, got %d", max)
	}
	if windowMs <= 0 {
		return fmt.Errorf("windowMs must be positive, got %d", windowMs)
	}
	return nil
}
