// api/policy/checker/async.go

package checker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	wardenerrors "github.com/warden-labs/warden/api/errors"
	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
)

// Resolution is the outcome delivered to a suspended policy branch. Reason
// distinguishes timeouts and cancellations from substantive denials so the
// evaluator's one-verdict-per-action contract survives every path.
type Resolution struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
	Actor    string `json:"actor,omitempty"`
}

const (
	ReasonApproved  = "approved"
	ReasonRejected  = "rejected"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// PendingRequest is an evaluation branch suspended on external input. It is
// resolved exactly once; later resolutions are ignored.
type PendingRequest struct {
	ID         string         `json:"id"`
	RuleType   model.RuleType `json:"ruleType"`
	Sender     string         `json:"sender"`
	ActionType string         `json:"actionType"`
	CreatedAt  time.Time      `json:"createdAt"`
	ExpiresAt  time.Time      `json:"expiresAt"`

	eligible []string
	required int

	mu        sync.Mutex
	votes     map[string]bool
	resolved  chan Resolution
	once      sync.Once
	completed bool
}

func (p *PendingRequest) resolve(r Resolution) {
	p.once.Do(func() {
		p.mu.Lock()
		p.completed = true
		p.mu.Unlock()
		p.resolved <- r
	})
}

// ApprovalBroker tracks suspended voting/human-approval branches and routes
// external outcomes back to them. Pending requests either resolve or expire,
// they never hang.
type ApprovalBroker struct {
	mu      sync.Mutex
	pending map[string]*PendingRequest
	onOpen  func(*PendingRequest)
}

func NewApprovalBroker() *ApprovalBroker {
	return &ApprovalBroker{pending: make(map[string]*PendingRequest)}
}

// SetNotifier registers a callback invoked whenever a branch suspends, so
// callers can surface the request to voters/approvers.
func (b *ApprovalBroker) SetNotifier(fn func(*PendingRequest)) {
	b.onOpen = fn
}

func (b *ApprovalBroker) open(t model.RuleType, req *Request, eligible []string, required int, timeout time.Duration) *PendingRequest {
	now := req.Context.Time()
	p := &PendingRequest{
		ID:         uuid.NewString(),
		RuleType:   t,
		Sender:     req.Context.Sender,
		ActionType: req.Action.Type,
		CreatedAt:  now,
		ExpiresAt:  now.Add(timeout),
		eligible:   eligible,
		required:   required,
		votes:      make(map[string]bool),
		resolved:   make(chan Resolution, 1),
	}

	b.mu.Lock()
	b.pending[p.ID] = p
	b.mu.Unlock()

	if b.onOpen != nil {
		b.onOpen(p)
	}
	logger.Info("Evaluation branch suspended pending approval",
		zap.String("requestID", p.ID),
		zap.String("ruleType", string(t)),
		zap.String("sender", p.Sender))
	return p
}

// Pending lists unresolved requests.
func (b *ApprovalBroker) Pending() []*PendingRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*PendingRequest, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p)
	}
	return out
}

// Resolve records one actor's vote on a pending request. The branch resolves
// as approved once the threshold is met, or as rejected once the threshold
// has become unreachable.
func (b *ApprovalBroker) Resolve(id, actor string, approved bool) error {
	b.mu.Lock()
	p, ok := b.pending[id]
	b.mu.Unlock()
	if !ok {
		return wardenerrors.ErrApprovalNotFound
	}

	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return wardenerrors.ErrApprovalResolved
	}
	eligible := false
	for _, e := range p.eligible {
		if strings.EqualFold(e, actor) {
			eligible = true
			break
		}
	}
	if !eligible {
		p.mu.Unlock()
		return wardenerrors.ErrUnauthorized
	}
	p.votes[strings.ToLower(actor)] = approved

	approvals, rejections := 0, 0
	for _, v := range p.votes {
		if v {
			approvals++
		} else {
			rejections++
		}
	}
	remaining := len(p.eligible) - len(p.votes)
	p.mu.Unlock()

	switch {
	case approvals >= p.required:
		p.resolve(Resolution{Approved: true, Reason: ReasonApproved, Actor: actor})
	case approvals+remaining < p.required:
		p.resolve(Resolution{Approved: false, Reason: ReasonRejected, Actor: actor})
	}
	return nil
}

// Cancel resolves a pending request to a denial (proposal expiry, operator
// abort). Cancellation is a verdict, never an error.
func (b *ApprovalBroker) Cancel(id, actor string) error {
	b.mu.Lock()
	p, ok := b.pending[id]
	b.mu.Unlock()
	if !ok {
		return wardenerrors.ErrApprovalNotFound
	}
	p.resolve(Resolution{Approved: false, Reason: ReasonCancelled, Actor: actor})
	return nil
}

func (b *ApprovalBroker) remove(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// await suspends until the request resolves, the rule's timeout elapses, or
// the context is cancelled. Every path yields a structured result.
func (b *ApprovalBroker) await(ctx context.Context, t model.RuleType, p *PendingRequest, timeout time.Duration) model.CheckResult {
	defer b.remove(p.ID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-p.resolved:
		if r.Approved {
			return model.Pass(t)
		}
		return model.Fail(t, "request %s denied: %s", p.ID, r.Reason).
			WithData(map[string]interface{}{"requestId": p.ID, "reason": r.Reason, "actor": r.Actor})

	case <-timer.C:
		p.resolve(Resolution{Approved: false, Reason: ReasonTimeout})
		return model.Fail(t, "request %s timed out awaiting resolution", p.ID).
			WithData(map[string]interface{}{"requestId": p.ID, "reason": ReasonTimeout})

	case <-ctx.Done():
		p.resolve(Resolution{Approved: false, Reason: ReasonCancelled})
		return model.Fail(t, "request %s cancelled before resolution", p.ID).
			WithData(map[string]interface{}{"requestId": p.ID, "reason": ReasonCancelled})
	}
}

// VotingPolicy requires a threshold of designated voters to approve the
// action. It cannot resolve synchronously; the evaluator consults
// RequiresAsync rather than probing.
type VotingPolicy struct {
	broker *ApprovalBroker
}

func NewVotingPolicy(broker *ApprovalBroker) *VotingPolicy {
	return &VotingPolicy{broker: broker}
}

func (p *VotingPolicy) RequiresAsync() bool { return true }

// Check always denies: an unresolved vote cannot pass synchronously.
func (p *VotingPolicy) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	return model.Fail(rule.Type, "voting rules require asynchronous resolution")
}

func (p *VotingPolicy) CheckAsync(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.VotingConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	pending := p.broker.open(rule.Type, req, cfg.Voters, cfg.RequiredApprovals, timeout)
	return p.broker.await(ctx, rule.Type, pending, timeout)
}

// HumanApprovalPolicy requires explicit sign-off from designated approvers.
type HumanApprovalPolicy struct {
	broker *ApprovalBroker
}

func NewHumanApprovalPolicy(broker *ApprovalBroker) *HumanApprovalPolicy {
	return &HumanApprovalPolicy{broker: broker}
}

func (p *HumanApprovalPolicy) RequiresAsync() bool { return true }

// Check always denies: approval outcomes only arrive asynchronously.
func (p *HumanApprovalPolicy) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	return model.Fail(rule.Type, "human approval rules require asynchronous resolution")
}

func (p *HumanApprovalPolicy) CheckAsync(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.HumanApprovalConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	pending := p.broker.open(rule.Type, req, cfg.Approvers, cfg.MinApprovals, timeout)
	return p.broker.await(ctx, rule.Type, pending, timeout)
}
