// api/policy/checker/authz_test.go
package checker

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-labs/warden/api/anchor"
	"github.com/warden-labs/warden/api/model"
)

func TestWhitelistChecker(t *testing.T) {
	ctx := context.Background()
	c := NewWhitelistChecker()
	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	t.Run("DirectListCaseInsensitive", func(t *testing.T) {
		rule := model.MustRule(model.RuleWhitelist, &model.WhitelistConfig{Addresses: []string{"0xAbCdEf"}})
		assert.True(t, c.Check(ctx, rule, reqAt("0xabcdef", "transfer", at, nil)).Passed)
		assert.False(t, c.Check(ctx, rule, reqAt("0x999999", "transfer", at, nil)).Passed)
	})

	t.Run("MerkleMembership", func(t *testing.T) {
		members := [][]byte{[]byte("0xaaa"), []byte("0xbbb"), []byte("0xccc")}
		root := anchor.ComputeRoot(members)
		proof, err := anchor.ProofFor(members, []byte("0xbbb"))
		require.NoError(t, err)

		rule := model.MustRule(model.RuleWhitelist, &model.WhitelistConfig{
			MembershipRoot: hex.EncodeToString(root),
		})

		req := reqAt("0xBBB", "transfer", at, nil)
		req.Proof = &proof
		assert.True(t, c.Check(ctx, rule, req).Passed, "lowercased sender must verify against the root")

		// No proof supplied.
		assert.False(t, c.Check(ctx, rule, reqAt("0xbbb", "transfer", at, nil)).Passed)

		// Proof for a different member does not transfer.
		wrong := reqAt("0xddd", "transfer", at, nil)
		wrong.Proof = &proof
		assert.False(t, c.Check(ctx, rule, wrong).Passed)
	})
}

func TestNFTGatedChecker(t *testing.T) {
	ctx := context.Background()
	c := NewNFTGatedChecker()
	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	rule := model.MustRule(model.RuleNFTGated, &model.NFTGatedConfig{
		ContractAddress: "0xC0FFEE",
		Standard:        "erc721",
		MinBalance:      1,
		RequiredTokenID: "42",
	})

	t.Run("NoProofDeniesWithRequirements", func(t *testing.T) {
		res := c.Check(ctx, rule, reqAt("0xholder", "claim", at, nil))
		assert.False(t, res.Passed)
		assert.Equal(t, "0xC0FFEE", res.Data["contractAddress"])
		assert.Equal(t, "erc721", res.Data["standard"])
	})

	t.Run("ValidProofPasses", func(t *testing.T) {
		req := reqAt("0xholder", "claim", at, nil)
		req.Proof = &AssetProof{
			ContractAddress: "0xc0ffee",
			Account:         "0xHOLDER",
			Balance:         3,
			OwnedTokenIDs:   []string{"7", "42"},
		}
		assert.True(t, c.Check(ctx, rule, req).Passed)
	})

	t.Run("WrongContractDenies", func(t *testing.T) {
		req := reqAt("0xholder", "claim", at, nil)
		req.Proof = &AssetProof{ContractAddress: "0xother", Account: "0xholder", Balance: 3, OwnedTokenIDs: []string{"42"}}
		assert.False(t, c.Check(ctx, rule, req).Passed)
	})

	t.Run("MissingRequiredTokenDenies", func(t *testing.T) {
		req := reqAt("0xholder", "claim", at, nil)
		req.Proof = &AssetProof{ContractAddress: "0xc0ffee", Account: "0xholder", Balance: 3, OwnedTokenIDs: []string{"7"}}
		assert.False(t, c.Check(ctx, rule, req).Passed)
	})
}

// stubProposalSource returns a fixed proposal for any id.
type stubProposalSource struct {
	proposal *model.Proposal
	err      error
}

func (s *stubProposalSource) GetProposal(string) (*model.Proposal, error) {
	return s.proposal, s.err
}

func TestDAOApprovalChecker(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	rule := model.MustRule(model.RuleDAOApproval, &model.DAOApprovalConfig{
		ProposalID: "prop-7",
		QuorumBps:  4000,
	})
	req := func() *Request { return reqAt("0xabc", "execute", at, nil) }

	t.Run("ExecutedAllows", func(t *testing.T) {
		c := NewDAOApprovalChecker(&stubProposalSource{proposal: &model.Proposal{ProposalID: "prop-7", State: model.ProposalExecuted}})
		assert.True(t, c.Check(ctx, rule, req()).Passed)
	})

	t.Run("DefeatedDenies", func(t *testing.T) {
		c := NewDAOApprovalChecker(&stubProposalSource{proposal: &model.Proposal{ProposalID: "prop-7", State: model.ProposalDefeated}})
		assert.False(t, c.Check(ctx, rule, req()).Passed)
	})

	t.Run("QueuedBehindTimelockDenies", func(t *testing.T) {
		c := NewDAOApprovalChecker(&stubProposalSource{proposal: &model.Proposal{
			ProposalID:  "prop-7",
			State:       model.ProposalQueued,
			TimelockEta: at.Add(time.Hour).UnixMilli(),
		}})
		res := c.Check(ctx, rule, req())
		assert.False(t, res.Passed)
		assert.Equal(t, at.Add(time.Hour).UnixMilli()-at.UnixMilli(), res.Data["remainingMs"])
	})

	t.Run("QueuedPastTimelockAllows", func(t *testing.T) {
		c := NewDAOApprovalChecker(&stubProposalSource{proposal: &model.Proposal{
			ProposalID:  "prop-7",
			State:       model.ProposalQueued,
			TimelockEta: at.Add(-time.Minute).UnixMilli(),
		}})
		assert.True(t, c.Check(ctx, rule, req()).Passed)
	})

	t.Run("SucceededWithQuorumIsReadyToQueue", func(t *testing.T) {
		// 6000 for, 1000 against, 0 abstain of 10000 participates at 7000bps,
		// above the 4000bps requirement: still a denial, flagged ready to queue.
		c := NewDAOApprovalChecker(&stubProposalSource{proposal: &model.Proposal{
			ProposalID:       "prop-7",
			State:            model.ProposalSucceeded,
			ForVotes:         6000,
			AgainstVotes:     1000,
			AbstainVotes:     0,
			TotalVotingPower: 10000,
		}})
		res := c.Check(ctx, rule, req())
		assert.False(t, res.Passed)
		assert.Equal(t, true, res.Data["readyToQueue"])
		assert.Equal(t, int64(7000), res.Data["quorumBps"])
	})

	t.Run("SucceededBelowQuorumDenies", func(t *testing.T) {
		c := NewDAOApprovalChecker(&stubProposalSource{proposal: &model.Proposal{
			ProposalID:       "prop-7",
			State:            model.ProposalSucceeded,
			ForVotes:         300,
			TotalVotingPower: 10000,
		}})
		res := c.Check(ctx, rule, req())
		assert.False(t, res.Passed)
		_, flagged := res.Data["readyToQueue"]
		assert.False(t, flagged)
	})

	t.Run("ActiveVotingDeniesWithTallies", func(t *testing.T) {
		c := NewDAOApprovalChecker(&stubProposalSource{proposal: &model.Proposal{
			ProposalID:       "prop-7",
			State:            model.ProposalActive,
			ForVotes:         100,
			AgainstVotes:     50,
			TotalVotingPower: 10000,
		}})
		res := c.Check(ctx, rule, req())
		assert.False(t, res.Passed)
		assert.Equal(t, int64(100), res.Data["forVotes"])
	})

	t.Run("SourceErrorDenies", func(t *testing.T) {
		c := NewDAOApprovalChecker(&stubProposalSource{err: fmt.Errorf("indexer offline")})
		assert.False(t, c.Check(ctx, rule, req()).Passed)
	})

	t.Run("NilSourceDenies", func(t *testing.T) {
		c := NewDAOApprovalChecker(nil)
		assert.False(t, c.Check(ctx, rule, req()).Passed)
	})
}
