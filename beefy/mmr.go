package beefy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/snowfork/snowbridge/beefy-client/crypto/merkle"
)

// ExtractMMRRoot returns the MMR root carried by a commitment. The payload
// must consist of exactly one item, with id "mh" and 32 bytes of data.
func ExtractMMRRoot(commitment *Commitment) (common.Hash, error) {
	if len(commitment.Payload) != 1 || commitment.Payload[0].PayloadID != MMRRootID {
		return common.Hash{}, ErrMMRRootNotFound
	}
	data := commitment.Payload[0].Data
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %d bytes", ErrInvalidMMRRootLength, len(data))
	}
	return common.BytesToHash(data), nil
}

// VerifyMMRLeafProof checks that leaf is included under root. Proof item i is
// hashed on the left of the accumulator when bit i of proofOrder is set.
// Proofs longer than merkle.MaxProofSize fail with ErrProofSizeExceeded.
func VerifyMMRLeafProof(root common.Hash, leaf *MMRLeaf, proof []common.Hash, proofOrder common.Hash) error {
	computed, err := merkle.CalculateMerkleRoot(HashMMRLeaf(leaf), toHashes(proof), proofOrder)
	if err != nil {
		return err
	}
	if computed != root {
		return ErrInvalidMMRLeafProof
	}
	return nil
}

// verifyHandover checks the leaf that announces the validator set following
// next. It must be included under root and name next.ID+1.
func verifyHandover(root common.Hash, next ValidatorSet, sub *Submission) error {
	if sub.Leaf == nil {
		return fmt.Errorf("%w: no leaf supplied", ErrInvalidMMRLeafProof)
	}
	if err := VerifyMMRLeafProof(root, sub.Leaf, sub.LeafProof, sub.LeafProofOrder); err != nil {
		return err
	}
	if sub.Leaf.NextAuthoritySetID != next.ID+1 {
		return fmt.Errorf("%w: next authority set %d, expected %d", ErrInvalidMMRLeaf, sub.Leaf.NextAuthoritySetID, next.ID+1)
	}
	return nil
}
