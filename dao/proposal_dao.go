// api/dao/proposal_dao.go
package dao

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/warden-labs/warden/api/db"
	wardenerrors "github.com/warden-labs/warden/api/errors"
	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
)

// ProposalDAO stores governance proposal snapshots pushed by an indexer.
// It implements model.ProposalSource for the DAO-approval checker.
type ProposalDAO struct {
	Driver neo4j.Driver
}

func NewProposalDAO(driver neo4j.Driver) *ProposalDAO {
	return &ProposalDAO{Driver: driver}
}

// UpsertProposal writes the latest snapshot for a proposal.
func (dao *ProposalDAO) UpsertProposal(ctx context.Context, proposal model.Proposal) error {
	_, err := db.ExecuteWriteTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (p:PROPOSAL {id: $id})
        SET p.state = $state,
            p.for_votes = $forVotes,
            p.against_votes = $againstVotes,
            p.abstain_votes = $abstainVotes,
            p.total_voting_power = $totalVotingPower,
            p.timelock_eta = $timelockEta
        RETURN p.id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":               proposal.ProposalID,
			"state":            string(proposal.State),
			"forVotes":         proposal.ForVotes,
			"againstVotes":     proposal.AgainstVotes,
			"abstainVotes":     proposal.AbstainVotes,
			"totalVotingPower": proposal.TotalVotingPower,
			"timelockEta":      proposal.TimelockEta,
		})
		if err != nil {
			return nil, wardenerrors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, wardenerrors.ErrDatabaseOperation
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to upsert proposal", zap.Error(err), zap.String("proposalID", proposal.ProposalID))
	}
	return err
}

// GetProposal satisfies model.ProposalSource.
func (dao *ProposalDAO) GetProposal(proposalID string) (*model.Proposal, error) {
	result, err := db.ExecuteReadTransaction(context.Background(), dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:PROPOSAL {id: $id})
        RETURN p
        `
		records, err := transaction.Run(query, map[string]interface{}{"id": proposalID})
		if err != nil {
			return nil, wardenerrors.ErrDatabaseOperation
		}
		if !records.Next() {
			return nil, wardenerrors.ErrProposalNotFound
		}
		node := records.Record().Values[0].(neo4j.Node)
		return proposalFromProps(node.Props), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.Proposal), nil
}

func proposalFromProps(props map[string]interface{}) *model.Proposal {
	p := &model.Proposal{}
	p.ProposalID, _ = props["id"].(string)
	if state, ok := props["state"].(string); ok {
		p.State = model.ProposalState(state)
	}
	if v, ok := props["for_votes"].(int64); ok {
		p.ForVotes = v
	}
	if v, ok := props["against_votes"].(int64); ok {
		p.AgainstVotes = v
	}
	if v, ok := props["abstain_votes"].(int64); ok {
		p.AbstainVotes = v
	}
	if v, ok := props["total_voting_power"].(int64); ok {
		p.TotalVotingPower = v
	}
	if v, ok := props["timelock_eta"].(int64); ok {
		p.TimelockEta = v
	}
	return p
}
