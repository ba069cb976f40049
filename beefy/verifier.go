package beefy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/snowfork/snowbridge/beefy-client/beefy/bitfield"
	"github.com/snowfork/snowbridge/beefy-client/beefy/fiatshamir"
	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
	"github.com/snowfork/snowbridge/beefy-client/crypto/merkle"
	"github.com/snowfork/snowbridge/beefy-client/crypto/secp256k1"
)

type Options struct {
	// MaxRequiredSignatures caps the number of sampled signatures. Zero
	// means fiatshamir.GlobalCap.
	MaxRequiredSignatures uint64
}

func (o Options) limit() uint64 {
	if o.MaxRequiredSignatures == 0 {
		return fiatshamir.GlobalCap
	}
	return o.MaxRequiredSignatures
}

// Verify runs a submission against state. On success it returns the
// advanced state and the verification output. On failure it returns state
// as given together with the error; state is never partially updated.
func Verify(state State, sub *Submission, opts Options) (State, *Output, error) {
	commitment := &sub.Commitment

	if uint64(commitment.BlockNumber) <= state.LatestBeefyBlock {
		return state, nil, fmt.Errorf("%w: block %d, latest %d", ErrStaleCommitment, commitment.BlockNumber, state.LatestBeefyBlock)
	}

	var set ValidatorSet
	rotating := false
	switch commitment.ValidatorSetID {
	case state.CurrentValidatorSet.ID:
		set = state.CurrentValidatorSet
	case state.NextValidatorSet.ID:
		set = state.NextValidatorSet
		rotating = true
	default:
		return state, nil, fmt.Errorf("%w: unknown validator set %d", ErrInvalidCommitment, commitment.ValidatorSetID)
	}

	commitmentHash, err := verifyCommitment(set, sub, opts)
	if err != nil {
		return state, nil, err
	}

	root, err := ExtractMMRRoot(commitment)
	if err != nil {
		return state, nil, err
	}

	next := state
	if rotating {
		if err := verifyHandover(root, state.NextValidatorSet, sub); err != nil {
			return state, nil, err
		}
		next.CurrentValidatorSet = state.NextValidatorSet
		next.NextValidatorSet = ValidatorSet{
			ID:     state.NextValidatorSet.ID + 1,
			Length: uint64(sub.Leaf.NextAuthoritySetLen),
			Root:   sub.Leaf.NextAuthoritySetRoot,
		}
	}
	next.LatestMMRRoot = root
	next.LatestBeefyBlock = uint64(commitment.BlockNumber)

	return next, &Output{
		LatestMMRRoot:    next.LatestMMRRoot,
		LatestBeefyBlock: next.LatestBeefyBlock,
		CommitmentHash:   commitmentHash,
	}, nil
}

// verifyCommitment checks that the sampled validators of set signed the
// commitment and returns its hash.
func verifyCommitment(set ValidatorSet, sub *Submission, opts Options) (common.Hash, error) {
	if err := sub.Bitfield.Validate(set.Length, fiatshamir.Quorum(set.Length)); err != nil {
		return common.Hash{}, err
	}

	commitmentHash := HashCommitment(&sub.Commitment)

	selection, err := fiatshamir.Select(commitmentHash, sub.Bitfield, set.Root, set.ID, set.Length, opts.limit())
	if err != nil {
		return common.Hash{}, err
	}
	if uint64(len(sub.Proofs)) != uint64(len(selection.Indices)) {
		return common.Hash{}, fmt.Errorf("%w: got %d, required %d", ErrInvalidValidatorProofLen, len(sub.Proofs), len(selection.Indices))
	}

	for i := range sub.Proofs {
		if err := verifyValidatorProof(set, selection, commitmentHash, &sub.Proofs[i]); err != nil {
			return common.Hash{}, fmt.Errorf("proof %d: %w", i, err)
		}
	}

	return commitmentHash, nil
}

func verifyValidatorProof(set ValidatorSet, selection *fiatshamir.Selection, commitmentHash common.Hash, proof *ValidatorProof) error {
	index := uint64(proof.Index)
	if !selection.Contains(index) {
		return fmt.Errorf("%w: index %d", ErrValidatorNotInBitfield, index)
	}

	leaf := keccak.Sum(proof.Account.Bytes())
	if !merkle.VerifyProof(set.Root, leaf, index, set.Length, toHashes(proof.Proof)) {
		return fmt.Errorf("%w: index %d", ErrInvalidValidatorProof, index)
	}

	if !secp256k1.VerifySignature(proof.Account, proof.V, proof.R, proof.S, commitmentHash) {
		return fmt.Errorf("%w: index %d", ErrInvalidSignature, index)
	}

	selection.Consume(index)
	return nil
}

// SelectValidators returns the validator indices a submission for
// commitment must carry proofs for, in sampling order. Relayers call it
// after fixing the attendance bitfield.
func SelectValidators(state State, commitment *Commitment, attendance bitfield.Bitfield, opts Options) ([]uint64, error) {
	var set ValidatorSet
	switch commitment.ValidatorSetID {
	case state.CurrentValidatorSet.ID:
		set = state.CurrentValidatorSet
	case state.NextValidatorSet.ID:
		set = state.NextValidatorSet
	default:
		return nil, fmt.Errorf("%w: unknown validator set %d", ErrInvalidCommitment, commitment.ValidatorSetID)
	}

	if err := attendance.Validate(set.Length, fiatshamir.Quorum(set.Length)); err != nil {
		return nil, err
	}

	selection, err := fiatshamir.Select(HashCommitment(commitment), attendance, set.Root, set.ID, set.Length, opts.limit())
	if err != nil {
		return nil, err
	}
	return selection.Indices, nil
}
