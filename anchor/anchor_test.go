// api/anchor/anchor_test.go
package anchor

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLeaves(n int) [][]byte {
	leaves := make([][]byte, n)
	for i := range leaves {
		leaves[i] = []byte(fmt.Sprintf("rule-%d", i))
	}
	return leaves
}

func TestComputeRootSingleLeaf(t *testing.T) {
	leaf := []byte("only")
	want := sha256.Sum256(leaf)
	assert.Equal(t, want[:], ComputeRoot([][]byte{leaf}))
}

func TestComputeRootDeterministic(t *testing.T) {
	assert.Equal(t, ComputeRoot(makeLeaves(5)), ComputeRoot(makeLeaves(5)))
	assert.NotEqual(t, ComputeRoot(makeLeaves(5)), ComputeRoot(makeLeaves(6)))
}

func TestProofForEveryLeaf(t *testing.T) {
	// Odd counts exercise the duplicate-last-node path.
	for _, n := range []int{1, 2, 3, 4, 5, 8, 9} {
		leaves := makeLeaves(n)
		root := ComputeRoot(leaves)
		for _, leaf := range leaves {
			proof, err := ProofFor(leaves, leaf)
			require.NoError(t, err, "n=%d leaf=%s", n, leaf)
			assert.True(t, VerifyProof(root, leaf, proof), "n=%d leaf=%s", n, leaf)
		}
	}
}

func TestProofForMissingLeaf(t *testing.T) {
	_, err := ProofFor(makeLeaves(4), []byte("not-anchored"))
	assert.Error(t, err)
}

func TestVerifyProofRejectsTampering(t *testing.T) {
	leaves := makeLeaves(4)
	root := ComputeRoot(leaves)
	proof, err := ProofFor(leaves, leaves[2])
	require.NoError(t, err)

	assert.False(t, VerifyProof(root, []byte("rule-99"), proof), "wrong leaf")

	tampered := Proof{Siblings: append([][]byte{}, proof.Siblings...)}
	tampered.Siblings[0] = sha256ed("garbage")
	assert.False(t, VerifyProof(root, leaves[2], tampered), "wrong sibling")

	assert.False(t, VerifyProof(sha256ed("other"), leaves[2], proof), "wrong root")
}

func sha256ed(s string) []byte {
	h := sha256.Sum256([]byte(s))
	return h[:]
}

func TestMerkleAnchorerLifecycle(t *testing.T) {
	ctx := context.Background()
	anchorer := NewMerkleAnchorer()
	leaves := makeLeaves(3)

	root, batchID, err := anchorer.AnchorBatch(ctx, leaves)
	require.NoError(t, err)
	assert.Equal(t, ComputeRoot(leaves), root)
	assert.NotEmpty(t, batchID)

	proof, err := ProofFor(leaves, leaves[1])
	require.NoError(t, err)

	ok, err := anchorer.VerifyMembership(ctx, batchID, leaves[1], proof)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = anchorer.VerifyMembership(ctx, batchID, []byte("rule-99"), proof)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = anchorer.VerifyMembership(ctx, "no-such-batch", leaves[1], proof)
	assert.Error(t, err)
}

func TestAnchorBatchRejectsEmpty(t *testing.T) {
	_, _, err := NewMerkleAnchorer().AnchorBatch(context.Background(), nil)
	assert.Error(t, err)
}
