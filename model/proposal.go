// api/model/proposal.go
package model

// ProposalState is the lifecycle position of a governance proposal. The
// checker classifies proposals by state but never drives transitions; those
// are owned by the governance collaborator.
type ProposalState string

const (
	ProposalPending   ProposalState = "pending"
	ProposalActive    ProposalState = "active"
	ProposalSucceeded ProposalState = "succeeded"
	ProposalDefeated  ProposalState = "defeated"
	ProposalQueued    ProposalState = "queued"
	ProposalExecuted  ProposalState = "executed"
	ProposalExpired   ProposalState = "expired"
)

// Proposal carries the vote tallies and timelock facts supplied by the
// proposal-state collaborator for a given proposal id.
type Proposal struct {
	ProposalID       string        `json:"proposalId"`
	State            ProposalState `json:"state"`
	ForVotes         int64         `json:"forVotes"`
	AgainstVotes     int64         `json:"againstVotes"`
	AbstainVotes     int64         `json:"abstainVotes"`
	TotalVotingPower int64         `json:"totalVotingPower"`
	TimelockEta      int64         `json:"timelockEta,omitempty"` // unix ms, set once queued
}

// QuorumBps returns participation in basis points of total voting power.
// Zero voting power yields zero rather than dividing by it.
func (p *Proposal) QuorumBps() int64 {
	if p.TotalVotingPower <= 0 {
		return 0
	}
	participation := p.ForVotes + p.AgainstVotes + p.AbstainVotes
	return participation * 10000 / p.TotalVotingPower
}

// ProposalSource supplies proposal facts for a given proposal id. RPC or
// indexer backends implement this; checkers only consume it.
type ProposalSource interface {
	GetProposal(proposalID string) (*Proposal, error)
}
