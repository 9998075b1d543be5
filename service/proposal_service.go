// api/service/proposal_service.go
package service

import (
	"context"
	"fmt"

	"github.com/warden-labs/warden/api/dao"
	"github.com/warden-labs/warden/api/model"
)

type IProposalService interface {
	UpsertProposal(ctx context.Context, proposal model.Proposal) error
	GetProposal(ctx context.Context, proposalID string) (*model.Proposal, error)
}

// ProposalService fronts the proposal snapshot store. Snapshots arrive from
// an off-process indexer; the DAO-approval checker reads them during
// evaluation.
type ProposalService struct {
	proposalDAO *dao.ProposalDAO
}

func NewProposalService(proposalDAO *dao.ProposalDAO) *ProposalService {
	return &ProposalService{proposalDAO: proposalDAO}
}

func (s *ProposalService) UpsertProposal(ctx context.Context, proposal model.Proposal) error {
	if proposal.ProposalID == "" {
		return fmt.Errorf("proposal id cannot be empty")
	}
	return s.proposalDAO.UpsertProposal(ctx, proposal)
}

func (s *ProposalService) GetProposal(ctx context.Context, proposalID string) (*model.Proposal, error) {
	return s.proposalDAO.GetProposal(proposalID)
}
