// api/policy/checker/authz.go

package checker

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/warden-labs/warden/api/anchor"
	"github.com/warden-labs/warden/api/model"
)

// AssetProof is the caller-supplied evidence for NFT/asset-gated rules.
type AssetProof struct {
	ContractAddress string   `json:"contractAddress"`
	Account         string   `json:"account"`
	Balance         int64    `json:"balance"`
	OwnedTokenIDs   []string `json:"ownedTokenIds,omitempty"`
}

// WhitelistChecker authorizes senders on a direct address list
// (case-insensitive) or, failing that, via a Merkle membership proof against
// the rule's configured root.
type WhitelistChecker struct{}

func NewWhitelistChecker() *WhitelistChecker { return &WhitelistChecker{} }

func (c *WhitelistChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.WhitelistConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	sender := strings.ToLower(req.Context.Sender)
	for _, addr := range cfg.Addresses {
		if strings.ToLower(addr) == sender {
			return model.Pass(rule.Type)
		}
	}

	if cfg.MembershipRoot == "" {
		return model.Fail(rule.Type, "sender %s is not whitelisted", req.Context.Sender)
	}

	proof, ok := req.Proof.(*anchor.Proof)
	if !ok || proof == nil {
		return model.Fail(rule.Type, "sender %s is not listed directly and no membership proof was supplied", req.Context.Sender).
			WithData(map[string]interface{}{"membershipRoot": cfg.MembershipRoot})
	}

	root, err := hex.DecodeString(cfg.MembershipRoot)
	if err != nil {
		return model.Fail(rule.Type, "misconfigured membership root: %v", err)
	}
	if !anchor.VerifyProof(root, []byte(sender), *proof) {
		return model.Fail(rule.Type, "membership proof for %s does not verify against root", req.Context.Sender)
	}
	return model.Pass(rule.Type)
}

// NFTGatedChecker authorizes holders of a configured asset. Without a proof
// it denies while echoing what the caller must prove; with one it validates
// balance and, when required, ownership of the specific token id.
type NFTGatedChecker struct{}

func NewNFTGatedChecker() *NFTGatedChecker { return &NFTGatedChecker{} }

func (c *NFTGatedChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.NFTGatedConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	proof, ok := req.Proof.(*AssetProof)
	if !ok || proof == nil {
		return model.Fail(rule.Type, "asset ownership proof required for %s", cfg.ContractAddress).
			WithData(map[string]interface{}{
				"contractAddress": cfg.ContractAddress,
				"standard":        cfg.Standard,
				"account":         req.Context.Sender,
			})
	}

	if !strings.EqualFold(proof.ContractAddress, cfg.ContractAddress) {
		return model.Fail(rule.Type, "proof is for contract %s, rule requires %s", proof.ContractAddress, cfg.ContractAddress)
	}
	if !strings.EqualFold(proof.Account, req.Context.Sender) {
		return model.Fail(rule.Type, "proof is for account %s, action sender is %s", proof.Account, req.Context.Sender)
	}
	if proof.Balance < cfg.MinBalance {
		return model.Fail(rule.Type, "balance %d below required minimum %d", proof.Balance, cfg.MinBalance).
			WithData(map[string]interface{}{"balance": proof.Balance, "minBalance": cfg.MinBalance})
	}
	if cfg.RequiredTokenID != "" {
		owned := false
		for _, id := range proof.OwnedTokenIDs {
			if id == cfg.RequiredTokenID {
				owned = true
				break
			}
		}
		if !owned {
			return model.Fail(rule.Type, "token %s is not among the proven holdings", cfg.RequiredTokenID).
				WithData(map[string]interface{}{"requiredTokenId": cfg.RequiredTokenID})
		}
	}
	return model.Pass(rule.Type)
}

// DAOApprovalChecker classifies a governance proposal supplied by the
// proposal-state collaborator. It never mutates proposal state.
type DAOApprovalChecker struct {
	proposals model.ProposalSource
}

func NewDAOApprovalChecker(proposals model.ProposalSource) *DAOApprovalChecker {
	return &DAOApprovalChecker{proposals: proposals}
}

func (c *DAOApprovalChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.DAOApprovalConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}
	if c.proposals == nil {
		return model.Fail(rule.Type, "no proposal source configured")
	}

	p, err := c.proposals.GetProposal(cfg.ProposalID)
	if err != nil {
		return model.Fail(rule.Type, "proposal %s unavailable: %v", cfg.ProposalID, err)
	}

	switch p.State {
	case model.ProposalDefeated:
		return model.Fail(rule.Type, "proposal %s was defeated", cfg.ProposalID)

	case model.ProposalExpired:
		return model.Fail(rule.Type, "proposal %s expired", cfg.ProposalID)

	case model.ProposalExecuted:
		return model.Pass(rule.Type)

	case model.ProposalQueued:
		if p.TimelockEta > req.Context.Timestamp {
			remaining := time.Duration(p.TimelockEta-req.Context.Timestamp) * time.Millisecond
			return model.Fail(rule.Type, "proposal %s is timelocked for another %s", cfg.ProposalID, remaining).
				WithData(map[string]interface{}{"timelockEta": p.TimelockEta, "remainingMs": p.TimelockEta - req.Context.Timestamp})
		}
		return model.Pass(rule.Type)

	case model.ProposalSucceeded:
		quorum := p.QuorumBps()
		if quorum < cfg.QuorumBps {
			return model.Fail(rule.Type, "proposal %s reached %dbps participation, below required %dbps", cfg.ProposalID, quorum, cfg.QuorumBps).
				WithData(map[string]interface{}{"quorumBps": quorum, "requiredBps": cfg.QuorumBps})
		}
		// Succeeded with quorum is still not executable: it must be queued
		// first. Distinct from both allowed and quorum failure.
		return model.Fail(rule.Type, "proposal %s succeeded and is ready to queue", cfg.ProposalID).
			WithData(map[string]interface{}{"quorumBps": quorum, "readyToQueue": true})

	default:
		return model.Fail(rule.Type, "proposal %s voting in progress (%s)", cfg.ProposalID, p.State).
			WithData(map[string]interface{}{
				"state":        string(p.State),
				"forVotes":     p.ForVotes,
				"againstVotes": p.AgainstVotes,
				"abstainVotes": p.AbstainVotes,
			})
	}
}
