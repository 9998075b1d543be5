// api/policy/checker/async_test.go
package checker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wardenerrors "github.com/warden-labs/warden/api/errors"
	"github.com/warden-labs/warden/api/model"
)

// launchVoting starts a voting branch in the background and returns the
// pending request (captured via the notifier) plus the result channel.
func launchVoting(t *testing.T, broker *ApprovalBroker, cfg *model.VotingConfig) (*PendingRequest, <-chan model.CheckResult) {
	t.Helper()

	opened := make(chan *PendingRequest, 1)
	broker.SetNotifier(func(p *PendingRequest) { opened <- p })

	policy := NewVotingPolicy(broker)
	rule := model.MustRule(model.RuleVoting, cfg)
	req := reqAt("0xabc", "transfer", time.Now().UTC(), nil)

	done := make(chan model.CheckResult, 1)
	go func() {
		done <- policy.CheckAsync(context.Background(), rule, req)
	}()

	select {
	case p := <-opened:
		return p, done
	case <-time.After(2 * time.Second):
		t.Fatal("voting branch never suspended")
		return nil, nil
	}
}

func TestVotingPolicyThresholdApproval(t *testing.T) {
	broker := NewApprovalBroker()
	pending, done := launchVoting(t, broker, &model.VotingConfig{
		Voters:            []string{"0xAAA", "0xBBB", "0xCCC"},
		RequiredApprovals: 2,
		TimeoutMs:         5_000,
	})

	require.NoError(t, broker.Resolve(pending.ID, "0xaaa", true))

	// One approval of two required: still pending.
	select {
	case res := <-done:
		t.Fatalf("branch resolved prematurely: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, broker.Resolve(pending.ID, "0xbbb", true))

	res := <-done
	assert.True(t, res.Passed)
}

func TestVotingPolicyUnreachableThresholdRejects(t *testing.T) {
	broker := NewApprovalBroker()
	pending, done := launchVoting(t, broker, &model.VotingConfig{
		Voters:            []string{"0xaaa", "0xbbb", "0xccc"},
		RequiredApprovals: 2,
		TimeoutMs:         5_000,
	})

	require.NoError(t, broker.Resolve(pending.ID, "0xaaa", false))
	require.NoError(t, broker.Resolve(pending.ID, "0xbbb", false))

	res := <-done
	assert.False(t, res.Passed)
	assert.Equal(t, ReasonRejected, res.Data["reason"])
}

func TestVotingPolicyIneligibleVoter(t *testing.T) {
	broker := NewApprovalBroker()
	pending, done := launchVoting(t, broker, &model.VotingConfig{
		Voters:            []string{"0xaaa"},
		RequiredApprovals: 1,
		TimeoutMs:         5_000,
	})

	err := broker.Resolve(pending.ID, "0xintruder", true)
	assert.ErrorIs(t, err, wardenerrors.ErrUnauthorized)

	// The eligible voter can still approve.
	require.NoError(t, broker.Resolve(pending.ID, "0xaaa", true))
	res := <-done
	assert.True(t, res.Passed)
}

func TestVotingPolicyTimeout(t *testing.T) {
	broker := NewApprovalBroker()
	_, done := launchVoting(t, broker, &model.VotingConfig{
		Voters:            []string{"0xaaa"},
		RequiredApprovals: 1,
		TimeoutMs:         50,
	})

	res := <-done
	assert.False(t, res.Passed)
	assert.Equal(t, ReasonTimeout, res.Data["reason"])
}

func TestVotingPolicyCancellation(t *testing.T) {
	broker := NewApprovalBroker()
	pending, done := launchVoting(t, broker, &model.VotingConfig{
		Voters:            []string{"0xaaa"},
		RequiredApprovals: 1,
		TimeoutMs:         5_000,
	})

	require.NoError(t, broker.Cancel(pending.ID, "operator"))

	res := <-done
	assert.False(t, res.Passed)
	assert.Equal(t, ReasonCancelled, res.Data["reason"])
}

func TestBrokerUnknownRequest(t *testing.T) {
	broker := NewApprovalBroker()
	assert.ErrorIs(t, broker.Resolve("nope", "0xaaa", true), wardenerrors.ErrApprovalNotFound)
	assert.ErrorIs(t, broker.Cancel("nope", "0xaaa"), wardenerrors.ErrApprovalNotFound)
}

func TestBrokerRemovesResolvedRequests(t *testing.T) {
	broker := NewApprovalBroker()
	pending, done := launchVoting(t, broker, &model.VotingConfig{
		Voters:            []string{"0xaaa"},
		RequiredApprovals: 1,
		TimeoutMs:         5_000,
	})
	require.Len(t, broker.Pending(), 1)

	require.NoError(t, broker.Resolve(pending.ID, "0xaaa", true))
	<-done

	assert.Empty(t, broker.Pending())
	assert.ErrorIs(t, broker.Resolve(pending.ID, "0xaaa", true), wardenerrors.ErrApprovalNotFound)
}

func TestHumanApprovalPolicySyncCheckDenies(t *testing.T) {
	broker := NewApprovalBroker()
	policy := NewHumanApprovalPolicy(broker)
	rule := model.MustRule(model.RuleHumanApproval, &model.HumanApprovalConfig{
		Approvers:    []string{"alice"},
		MinApprovals: 1,
		TimeoutMs:    1_000,
	})

	assert.True(t, policy.RequiresAsync())
	res := policy.Check(context.Background(), rule, reqAt("0xabc", "transfer", time.Now().UTC(), nil))
	assert.False(t, res.Passed)
}
