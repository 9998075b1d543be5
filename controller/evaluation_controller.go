// api/controller/evaluation_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	wardenerrors "github.com/warden-labs/warden/api/errors"
	"github.com/warden-labs/warden/api/service"
	"github.com/warden-labs/warden/api/util"
)

type EvaluationController struct {
	evaluationService service.IEvaluationService
}

func NewEvaluationController(evaluationService service.IEvaluationService) *EvaluationController {
	return &EvaluationController{
		evaluationService: evaluationService,
	}
}

// RegisterRoutes registers the API routes
func (ec *EvaluationController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/evaluate", ec.Evaluate)

	approvals := r.Group("/approvals")
	{
		approvals.GET("", ec.ListPendingApprovals)
		approvals.POST("/:id/resolve", ec.ResolveApproval)
		approvals.POST("/:id/cancel", ec.CancelApproval)
	}

	actions := r.Group("/scheduled-actions")
	{
		actions.GET("/:id", ec.GetScheduledAction)
		actions.POST("/:id/cancel", ec.CancelScheduledAction)
		actions.POST("/:id/executed", ec.ReportExecuted)
		actions.POST("/:id/challenge", ec.ReportChallenge)
	}
}

// Evaluate endpoint runs an action against a template and returns the verdict.
func (ec *EvaluationController) Evaluate(c *gin.Context) {
	var req service.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid evaluation request", wardenerrors.ErrInvalidActionData)
		return
	}

	outcome, err := ec.evaluationService.Evaluate(c, req)
	if err != nil {
		switch err {
		case wardenerrors.ErrTemplateNotFound:
			util.RespondWithError(c, http.StatusNotFound, "Template not found", err)
		case wardenerrors.ErrStateStoreOperation:
			util.RespondWithError(c, http.StatusInternalServerError, "State store unavailable", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Evaluation failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, outcome)
}

type resolveApprovalRequest struct {
	Actor    string `json:"actor"`
	Approved bool   `json:"approved"`
}

// actorFor resolves the acting identity: an explicit actor in the body wins,
// otherwise the authenticated caller from the request context.
func actorFor(c *gin.Context, actor string) (string, bool) {
	if actor != "" {
		return actor, true
	}
	caller, err := util.GetCallerFromContext(c)
	if err != nil || caller == "" {
		return "", false
	}
	return caller, true
}

// ResolveApproval endpoint records one approver's decision.
func (ec *EvaluationController) ResolveApproval(c *gin.Context) {
	requestID := c.Param("id")
	var body resolveApprovalRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid approval resolution", err)
		return
	}
	actor, ok := actorFor(c, body.Actor)
	if !ok {
		util.RespondWithError(c, http.StatusBadRequest, "Missing actor identity", wardenerrors.ErrUnauthorized)
		return
	}

	if err := ec.evaluationService.ResolveApproval(c, requestID, actor, body.Approved); err != nil {
		switch err {
		case wardenerrors.ErrApprovalNotFound:
			util.RespondWithError(c, http.StatusNotFound, "Approval request not found", err)
		case wardenerrors.ErrApprovalResolved:
			util.RespondWithError(c, http.StatusConflict, "Approval request already resolved", err)
		case wardenerrors.ErrUnauthorized:
			util.RespondWithError(c, http.StatusForbidden, "Actor is not an eligible approver", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to resolve approval", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"requestId": requestID, "actor": actor, "approved": body.Approved})
}

// CancelApproval endpoint withdraws a pending approval request.
func (ec *EvaluationController) CancelApproval(c *gin.Context) {
	requestID := c.Param("id")
	var body struct {
		Actor string `json:"actor"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid cancellation request", err)
		return
	}
	actor, ok := actorFor(c, body.Actor)
	if !ok {
		util.RespondWithError(c, http.StatusBadRequest, "Missing actor identity", wardenerrors.ErrUnauthorized)
		return
	}

	if err := ec.evaluationService.CancelApproval(c, requestID, actor); err != nil {
		switch err {
		case wardenerrors.ErrApprovalNotFound:
			util.RespondWithError(c, http.StatusNotFound, "Approval request not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel approval", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ListPendingApprovals endpoint
func (ec *EvaluationController) ListPendingApprovals(c *gin.Context) {
	c.JSON(http.StatusOK, ec.evaluationService.PendingApprovals())
}

// GetScheduledAction endpoint
func (ec *EvaluationController) GetScheduledAction(c *gin.Context) {
	action, ok := ec.evaluationService.GetScheduledAction(c.Param("id"))
	if !ok {
		util.RespondWithError(c, http.StatusNotFound, "Scheduled action not found", nil)
		return
	}
	c.JSON(http.StatusOK, action)
}

// CancelScheduledAction endpoint
func (ec *EvaluationController) CancelScheduledAction(c *gin.Context) {
	if err := ec.evaluationService.CancelScheduledAction(c.Param("id")); err != nil {
		util.RespondWithError(c, http.StatusConflict, "Scheduled action cannot be cancelled", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReportExecuted endpoint marks a scheduled action as executed.
func (ec *EvaluationController) ReportExecuted(c *gin.Context) {
	if err := ec.evaluationService.ReportExecuted(c.Param("id")); err != nil {
		util.RespondWithError(c, http.StatusConflict, "Scheduled action cannot be marked executed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReportChallenge endpoint records a challenge against an optimistic action.
func (ec *EvaluationController) ReportChallenge(c *gin.Context) {
	if err := ec.evaluationService.ReportChallenge(c.Param("id")); err != nil {
		util.RespondWithError(c, http.StatusConflict, "Scheduled action cannot be challenged", err)
		return
	}
	c.Status(http.StatusNoContent)
}
