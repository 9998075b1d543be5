// api/service/evaluation_service.go
package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/warden-labs/warden/api/anchor"
	"github.com/warden-labs/warden/api/audit"
	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/policy/checker"
	"github.com/warden-labs/warden/api/policy/engine"
	"github.com/warden-labs/warden/api/policy/execution"
	"github.com/warden-labs/warden/api/policy/state"
	"github.com/warden-labs/warden/api/util"
)

// EvaluationRequest is the inbound shape of an evaluation call. A template
// carries at most one authorization rule, so at most one of the proof fields
// is meaningful per call.
type EvaluationRequest struct {
	TemplateID      string                     `json:"templateId" binding:"required"`
	Action          model.ActionInput          `json:"action" binding:"required"`
	Context         *model.VerificationContext `json:"context"`
	Proof           *checker.AssetProof        `json:"assetProof"`
	MembershipProof *anchor.Proof              `json:"membershipProof"`
	FullReport      bool                       `json:"fullReport"`
}

// EvaluationOutcome pairs the verdict with the scheduled action produced by
// the template's execution mode, when the verdict allowed one.
type EvaluationOutcome struct {
	Verdict   *model.Verdict             `json:"verdict"`
	Scheduled *execution.ScheduledAction `json:"scheduled,omitempty"`
}

type IEvaluationService interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationOutcome, error)
	ResolveApproval(ctx context.Context, requestID, actor string, approved bool) error
	CancelApproval(ctx context.Context, requestID, actor string) error
	PendingApprovals() []*checker.PendingRequest
	GetScheduledAction(id string) (*execution.ScheduledAction, bool)
	CancelScheduledAction(id string) error
	ReportExecuted(id string) error
	ReportChallenge(id string) error
}

// EvaluationService runs templates against actions, commits usage on allowed
// verdicts, schedules execution, and writes the audit trail.
type EvaluationService struct {
	templateService ITemplateService
	evaluator       *engine.Evaluator
	store           state.Store
	broker          *checker.ApprovalBroker
	scheduler       *execution.Scheduler
	auditService    audit.Service
	eventBus        *util.EventBus
}

func NewEvaluationService(
	templateService ITemplateService,
	evaluator *engine.Evaluator,
	store state.Store,
	broker *checker.ApprovalBroker,
	scheduler *execution.Scheduler,
	auditService audit.Service,
	eventBus *util.EventBus,
) *EvaluationService {
	return &EvaluationService{
		templateService: templateService,
		evaluator:       evaluator,
		store:           store,
		broker:          broker,
		scheduler:       scheduler,
		auditService:    auditService,
		eventBus:        eventBus,
	}
}

// Evaluate loads the template, runs every rule against the action, and on an
// allowed verdict commits rule usage and schedules execution per the
// template's mode. Denied verdicts leave all stored state untouched.
func (s *EvaluationService) Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationOutcome, error) {
	start := time.Now()

	tmpl, err := s.templateService.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	vctx := req.Context
	if vctx == nil {
		vctx = &model.VerificationContext{}
	}
	if vctx.Sender == "" {
		vctx.Sender = req.Action.Sender
	}
	if vctx.Timestamp == 0 {
		vctx.Timestamp = time.Now().UnixMilli()
	}

	checkReq := &checker.Request{
		Action:  &req.Action,
		Context: vctx,
	}
	if req.Proof != nil {
		checkReq.Proof = req.Proof
	} else if req.MembershipProof != nil {
		checkReq.Proof = req.MembershipProof
	}

	verdict, err := s.evaluator.Evaluate(ctx, tmpl, checkReq, engine.Options{FullReport: req.FullReport})
	if err != nil {
		logger.Error("Evaluation failed", zap.Error(err), zap.String("templateID", req.TemplateID))
		return nil, err
	}

	outcome := &EvaluationOutcome{Verdict: verdict}
	if verdict.Allowed {
		denied, err := checker.CommitUsage(ctx, s.store, tmpl, checkReq)
		if err != nil {
			logger.Error("Failed to commit rule usage",
				zap.Error(err),
				zap.String("templateID", req.TemplateID),
				zap.String("sender", vctx.Sender))
			return nil, err
		}
		if denied != nil {
			// A concurrent evaluation claimed the last slot between this
			// check and its commit. The verdict flips: the reservation, not
			// the earlier read, is what grants the slot.
			verdict.Allowed = false
			verdict.FailedRule = denied.RuleType
			verdict.Reason = denied.Message
			verdict.Results = append(verdict.Results, *denied)
			logger.Info("Verdict denied at commit time",
				zap.String("templateID", req.TemplateID),
				zap.String("sender", vctx.Sender),
				zap.String("rule", string(denied.RuleType)))
		}
	}
	if verdict.Allowed {
		scheduled, err := s.scheduler.Schedule(tmpl.ID, tmpl.ExecutionMode, vctx.Timestamp)
		if err != nil {
			logger.Error("Failed to schedule execution",
				zap.Error(err),
				zap.String("templateID", req.TemplateID))
			return nil, err
		}
		outcome.Scheduled = scheduled
	}

	s.recordVerdict(ctx, req, vctx, verdict)

	logger.Info("Action evaluated",
		zap.String("templateID", req.TemplateID),
		zap.String("sender", vctx.Sender),
		zap.Bool("allowed", verdict.Allowed),
		zap.Duration("duration", time.Since(start)))
	return outcome, nil
}

// recordVerdict ships the verdict to the audit trail and the event bus.
// Audit failures are logged, never surfaced; a verdict already made must not
// be undone by a slow log pipeline.
func (s *EvaluationService) recordVerdict(ctx context.Context, req EvaluationRequest, vctx *model.VerificationContext, verdict *model.Verdict) {
	details, err := json.Marshal(verdict.Results)
	if err != nil {
		details = nil
	}
	entry := audit.VerdictLog{
		Timestamp:  time.UnixMilli(vctx.Timestamp).UTC(),
		Sender:     vctx.Sender,
		ActionType: req.Action.Type,
		TemplateID: req.TemplateID,
		Allowed:    verdict.Allowed,
		FailedRule: string(verdict.FailedRule),
		Reason:     verdict.Reason,
		Details:    details,
	}
	if s.auditService != nil {
		if err := s.auditService.LogVerdict(ctx, entry); err != nil {
			logger.Warn("Failed to write verdict to audit trail",
				zap.Error(err),
				zap.String("templateID", req.TemplateID))
		}
	}

	eventType := util.EventVerdictDenied
	if verdict.Allowed {
		eventType = util.EventVerdictAllowed
	}
	s.eventBus.Publish(ctx, eventType, entry)
}

// ResolveApproval records one approver's decision on a pending async request.
func (s *EvaluationService) ResolveApproval(ctx context.Context, requestID, actor string, approved bool) error {
	if err := s.broker.Resolve(requestID, actor, approved); err != nil {
		return err
	}
	s.eventBus.Publish(ctx, util.EventApprovalResolved, map[string]interface{}{
		"requestId": requestID,
		"actor":     actor,
		"approved":  approved,
	})
	return nil
}

// CancelApproval withdraws a pending async request.
func (s *EvaluationService) CancelApproval(ctx context.Context, requestID, actor string) error {
	if err := s.broker.Cancel(requestID, actor); err != nil {
		return err
	}
	s.eventBus.Publish(ctx, util.EventApprovalResolved, map[string]interface{}{
		"requestId": requestID,
		"actor":     actor,
		"cancelled": true,
	})
	return nil
}

// PendingApprovals lists requests still waiting for resolution.
func (s *EvaluationService) PendingApprovals() []*checker.PendingRequest {
	return s.broker.Pending()
}

func (s *EvaluationService) GetScheduledAction(id string) (*execution.ScheduledAction, bool) {
	return s.scheduler.Get(id)
}

func (s *EvaluationService) CancelScheduledAction(id string) error {
	return s.scheduler.Cancel(id, time.Now().UnixMilli())
}

func (s *EvaluationService) ReportExecuted(id string) error {
	return s.scheduler.ReportExecuted(id, time.Now().UnixMilli())
}

func (s *EvaluationService) ReportChallenge(id string) error {
	return s.scheduler.ReportChallenge(id, time.Now().UnixMilli())
}
