// api/controller/proposal_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	wardenerrors "github.com/warden-labs/warden/api/errors"
	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/service"
	"github.com/warden-labs/warden/api/util"
)

type ProposalController struct {
	proposalService service.IProposalService
}

func NewProposalController(proposalService service.IProposalService) *ProposalController {
	return &ProposalController{
		proposalService: proposalService,
	}
}

// RegisterRoutes registers the API routes
func (pc *ProposalController) RegisterRoutes(r *gin.RouterGroup) {
	proposals := r.Group("/proposals")
	{
		proposals.PUT("/:id", pc.UpsertProposal)
		proposals.GET("/:id", pc.GetProposal)
	}
}

// UpsertProposal endpoint stores the latest indexer snapshot of a proposal.
func (pc *ProposalController) UpsertProposal(c *gin.Context) {
	var proposal model.Proposal
	if err := c.ShouldBindJSON(&proposal); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid proposal data", err)
		return
	}
	proposal.ProposalID = c.Param("id")

	if err := pc.proposalService.UpsertProposal(c, proposal); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to store proposal", err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// GetProposal endpoint
func (pc *ProposalController) GetProposal(c *gin.Context) {
	proposal, err := pc.proposalService.GetProposal(c, c.Param("id"))
	if err != nil {
		switch err {
		case wardenerrors.ErrProposalNotFound:
			util.RespondWithError(c, http.StatusNotFound, "Proposal not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve proposal", err)
		}
		return
	}

	c.JSON(http.StatusOK, proposal)
}
