// api/anchor/anchor.go

// Package anchor commits batches of encoded rules to a Merkle root so an
// external verifier can later prove membership of any leaf. Leaves are
// opaque byte sequences; this package never interprets them.
package anchor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Proof is a Merkle membership proof: the sibling hashes from leaf to root.
// Pair hashing is order-independent (the smaller hash goes first), so no
// index path is needed.
type Proof struct {
	Siblings [][]byte `json:"siblings"`
}

// Anchorer accepts batches of encoded-rule leaves and supports later
// membership verification against the batch root.
type Anchorer interface {
	AnchorBatch(ctx context.Context, leaves [][]byte) (root []byte, batchID string, err error)
	VerifyMembership(ctx context.Context, batchID string, leaf []byte, proof Proof) (bool, error)
}

// MerkleAnchorer is an in-memory Anchorer. Production deployments put the
// root on chain; the tree math is identical.
type MerkleAnchorer struct {
	mu      sync.RWMutex
	batches map[string][]byte // batchID -> root
}

func NewMerkleAnchorer() *MerkleAnchorer {
	return &MerkleAnchorer{batches: make(map[string][]byte)}
}

func (m *MerkleAnchorer) AnchorBatch(ctx context.Context, leaves [][]byte) ([]byte, string, error) {
	if len(leaves) == 0 {
		return nil, "", fmt.Errorf("cannot anchor an empty batch")
	}
	root := ComputeRoot(leaves)
	batchID := uuid.NewString()

	m.mu.Lock()
	m.batches[batchID] = root
	m.mu.Unlock()

	return root, batchID, nil
}

func (m *MerkleAnchorer) VerifyMembership(ctx context.Context, batchID string, leaf []byte, proof Proof) (bool, error) {
	m.mu.RLock()
	root, ok := m.batches[batchID]
	m.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("unknown batch %q", batchID)
	}
	return VerifyProof(root, leaf, proof), nil
}

// ProofFor rebuilds the proof for a leaf within the given batch leaves.
func ProofFor(leaves [][]byte, target []byte) (Proof, error) {
	level := hashLeaves(leaves)
	index := -1
	targetHash := hashLeaf(target)
	for i, h := range level {
		if bytes.Equal(h, targetHash) {
			index = i
			break
		}
	}
	if index < 0 {
		return Proof{}, fmt.Errorf("leaf not present in batch")
	}

	var siblings [][]byte
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		sibling := index ^ 1
		siblings = append(siblings, level[sibling])

		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
		index /= 2
	}
	return Proof{Siblings: siblings}, nil
}

// ComputeRoot builds the Merkle root over the leaves. An odd level
// duplicates its last node.
func ComputeRoot(leaves [][]byte) []byte {
	level := hashLeaves(leaves)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

// VerifyProof folds the siblings over the leaf hash and compares against root.
func VerifyProof(root, leaf []byte, proof Proof) bool {
	h := hashLeaf(leaf)
	for _, sibling := range proof.Siblings {
		h = hashPair(h, sibling)
	}
	return bytes.Equal(h, root)
}

func hashLeaves(leaves [][]byte) [][]byte {
	hashed := make([][]byte, len(leaves))
	for i, l := range leaves {
		hashed[i] = hashLeaf(l)
	}
	return hashed
}

func hashLeaf(leaf []byte) []byte {
	h := sha256.Sum256(leaf)
	return h[:]
}

func hashPair(a, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	h := sha256.New()
	h.Write(a)
	h.Write(b)
	return h.Sum(nil)
}
