package beefy

import (
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowfork/snowbridge/beefy-client/beefy/bitfield"
	"github.com/snowfork/snowbridge/beefy-client/beefy/fiatshamir"
	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
	"github.com/snowfork/snowbridge/beefy-client/crypto/merkle"
)

// requireRejected checks that sub fails with target and that the returned
// state is the input state.
func requireRejected(t *testing.T, state State, sub *Submission, target error) {
	t.Helper()
	next, output, err := Verify(state, sub, Options{})
	require.ErrorIs(t, err, target)
	require.Nil(t, output)
	require.Equal(t, state, next)
}

func TestVerifyCurrentSet(t *testing.T) {
	chain := newTestChain(t)
	sub := chain.submission(t, 150)
	require.Len(t, sub.Proofs, int(fiatshamir.Required(10, fiatshamir.GlobalCap)))

	next, output, err := Verify(chain.state, sub, Options{})
	require.NoError(t, err)

	root, err := ExtractMMRRoot(&sub.Commitment)
	require.NoError(t, err)

	assert.Equal(t, root, next.LatestMMRRoot)
	assert.Equal(t, uint64(150), next.LatestBeefyBlock)
	assert.Equal(t, chain.state.CurrentValidatorSet, next.CurrentValidatorSet)
	assert.Equal(t, chain.state.NextValidatorSet, next.NextValidatorSet)

	assert.Equal(t, root, output.LatestMMRRoot)
	assert.Equal(t, uint64(150), output.LatestBeefyBlock)
	assert.Equal(t, HashCommitment(&sub.Commitment), output.CommitmentHash)
}

func TestVerifyIgnoresLeafWithoutRotation(t *testing.T) {
	chain := newTestChain(t)
	sub := chain.submission(t, 150)
	sub.Leaf = &MMRLeaf{NextAuthoritySetID: 99}
	sub.LeafProof = []common.Hash{{1}}

	next, _, err := Verify(chain.state, sub, Options{})
	require.NoError(t, err)
	require.Equal(t, chain.state.CurrentValidatorSet, next.CurrentValidatorSet)
}

func TestVerifyStaleCommitment(t *testing.T) {
	chain := newTestChain(t)

	requireRejected(t, chain.state, chain.submission(t, 100), ErrStaleCommitment)
	requireRejected(t, chain.state, chain.submission(t, 99), ErrStaleCommitment)
}

func TestVerifyUnknownValidatorSet(t *testing.T) {
	chain := newTestChain(t)
	sub := chain.submission(t, 150)
	sub.Commitment.ValidatorSetID = 2

	requireRejected(t, chain.state, sub, ErrInvalidCommitment)
}

func TestVerifyBitfieldShape(t *testing.T) {
	chain := newTestChain(t)

	sub := chain.submission(t, 150)
	sub.Bitfield = append(sub.Bitfield.Clone(), make([]byte, bitfield.WordBytes)...)
	requireRejected(t, chain.state, sub, ErrInvalidBitfieldLength)

	sub = chain.submission(t, 150)
	sub.Bitfield = sub.Bitfield[:16]
	requireRejected(t, chain.state, sub, ErrInvalidBitfieldLength)

	// quorum of 10 is 7
	sub = chain.submission(t, 150)
	sub.Bitfield = bitfield.FromMembers(10, []uint64{0, 1, 2, 3, 4, 5})
	requireRejected(t, chain.state, sub, ErrInsufficientSetBits)

	sub = chain.submission(t, 150)
	sub.Bitfield = sub.Bitfield.Clone()
	sub.Bitfield.Set(12)
	requireRejected(t, chain.state, sub, ErrInvalidBitfieldPadding)
}

func TestVerifyProofCount(t *testing.T) {
	chain := newTestChain(t)

	sub := chain.submission(t, 150)
	sub.Proofs = sub.Proofs[:len(sub.Proofs)-1]
	requireRejected(t, chain.state, sub, ErrInvalidValidatorProofLen)

	sub = chain.submission(t, 150)
	sub.Proofs = append(sub.Proofs, sub.Proofs[0])
	requireRejected(t, chain.state, sub, ErrInvalidValidatorProofLen)
}

func TestVerifyUnsampledValidator(t *testing.T) {
	chain := newTestChain(t)
	sub := chain.submission(t, 150)

	sampled := map[uint32]bool{}
	for _, proof := range sub.Proofs {
		sampled[proof.Index] = true
	}
	var outsider uint32
	for sampled[outsider] {
		outsider++
	}

	// a genuine signature from a validator the sampler did not pick
	forged := chain.current.sign(t, chain.state, sub.Commitment, chain.current.all())
	kp := chain.current.keypairs[outsider]
	v, r, s, err := kp.Sign(HashCommitment(&sub.Commitment))
	require.NoError(t, err)
	path, err := chain.current.tree.Proof(int(outsider))
	require.NoError(t, err)
	forged.Proofs[0] = ValidatorProof{V: v, R: r, S: s, Index: outsider, Account: kp.CommonAddress(), Proof: fromHashes(path)}
	requireRejected(t, chain.state, forged, ErrValidatorNotInBitfield)

	// out of range index
	sub = chain.submission(t, 150)
	sub.Proofs[0].Index = 1000
	requireRejected(t, chain.state, sub, ErrValidatorNotInBitfield)
}

func TestVerifyDuplicateProof(t *testing.T) {
	chain := newTestChain(t)
	sub := chain.submission(t, 150)
	sub.Proofs[1] = sub.Proofs[0]

	requireRejected(t, chain.state, sub, ErrValidatorNotInBitfield)
}

func TestVerifyInvalidValidatorProof(t *testing.T) {
	chain := newTestChain(t)

	sub := chain.submission(t, 150)
	sub.Proofs[0].Proof[0][0] ^= 1
	requireRejected(t, chain.state, sub, ErrInvalidValidatorProof)

	sub = chain.submission(t, 150)
	sub.Proofs[0].Account = chain.next.keypairs[0].CommonAddress()
	requireRejected(t, chain.state, sub, ErrInvalidValidatorProof)
}

func TestVerifyInvalidSignature(t *testing.T) {
	chain := newTestChain(t)

	sub := chain.submission(t, 150)
	sub.Proofs[0].S[31] ^= 1
	requireRejected(t, chain.state, sub, ErrInvalidSignature)

	sub = chain.submission(t, 150)
	sub.Proofs[len(sub.Proofs)-1].V = 30
	requireRejected(t, chain.state, sub, ErrInvalidSignature)
}

func TestVerifyMMRRootPayload(t *testing.T) {
	chain := newTestChain(t)
	root := keccak.Sum([]byte("root"))

	twoItems := mmrCommitment(150, chain.current.set.ID, root)
	twoItems.Payload = append(twoItems.Payload, PayloadItem{PayloadID: [2]byte{'a', 'b'}, Data: []byte{1}})
	sub := chain.current.sign(t, chain.state, twoItems, chain.current.all())
	requireRejected(t, chain.state, sub, ErrMMRRootNotFound)

	otherID := mmrCommitment(150, chain.current.set.ID, root)
	otherID.Payload[0].PayloadID = [2]byte{'a', 'b'}
	sub = chain.current.sign(t, chain.state, otherID, chain.current.all())
	requireRejected(t, chain.state, sub, ErrMMRRootNotFound)

	short := mmrCommitment(150, chain.current.set.ID, root)
	short.Payload[0].Data = short.Payload[0].Data[:31]
	sub = chain.current.sign(t, chain.state, short, chain.current.all())
	requireRejected(t, chain.state, sub, ErrInvalidMMRRootLength)
}

func TestVerifyRotation(t *testing.T) {
	chain := newTestChain(t)
	sub, h := chain.rotation(t, 160)

	next, output, err := Verify(chain.state, sub, Options{})
	require.NoError(t, err)

	assert.Equal(t, chain.next.set, next.CurrentValidatorSet)
	assert.Equal(t, ValidatorSet{
		ID:     chain.next.set.ID + 1,
		Length: uint64(h.leaf.NextAuthoritySetLen),
		Root:   h.leaf.NextAuthoritySetRoot,
	}, next.NextValidatorSet)
	assert.Equal(t, chain.following.set, next.NextValidatorSet)
	assert.Equal(t, h.root, next.LatestMMRRoot)
	assert.Equal(t, uint64(160), next.LatestBeefyBlock)
	assert.Equal(t, HashCommitment(&sub.Commitment), output.CommitmentHash)

	// the retired set can no longer sign
	old := chain.current.sign(t, chain.state, mmrCommitment(170, chain.current.set.ID, h.root), chain.current.all())
	requireRejected(t, next, old, ErrInvalidCommitment)

	// and the new current set can
	chain.state = next
	chain.current, chain.next = chain.next, chain.following
	_, _, err = Verify(next, chain.submission(t, 170), Options{})
	require.NoError(t, err)
}

func TestVerifyRotationLeafProof(t *testing.T) {
	chain := newTestChain(t)

	sub, _ := chain.rotation(t, 160)
	sub.LeafProof[0][0] ^= 1
	requireRejected(t, chain.state, sub, ErrInvalidMMRLeafProof)

	sub, _ = chain.rotation(t, 160)
	sub.LeafProof = nil
	requireRejected(t, chain.state, sub, ErrInvalidMMRLeafProof)

	sub, _ = chain.rotation(t, 160)
	sub.LeafProofOrder = common.Hash{}
	requireRejected(t, chain.state, sub, ErrInvalidMMRLeafProof)

	sub, _ = chain.rotation(t, 160)
	sub.Leaf.NextAuthoritySetLen++
	requireRejected(t, chain.state, sub, ErrInvalidMMRLeafProof)

	sub, _ = chain.rotation(t, 160)
	sub.Leaf = nil
	requireRejected(t, chain.state, sub, ErrInvalidMMRLeafProof)

	sub, _ = chain.rotation(t, 160)
	sub.LeafProof = make([]common.Hash, merkle.MaxProofSize+1)
	requireRejected(t, chain.state, sub, ErrProofSizeExceeded)
}

func TestVerifyRotationSkippingASet(t *testing.T) {
	chain := newTestChain(t)

	skipped := chain.following.set
	skipped.ID++
	h := newHandover(t, skipped)
	sub := chain.next.sign(t, chain.state, mmrCommitment(160, chain.next.set.ID, h.root), chain.next.all())
	h.attach(sub)

	requireRejected(t, chain.state, sub, ErrInvalidMMRLeaf)
}

func TestVerifyCappedSampling(t *testing.T) {
	chain := newTestChain(t)
	sub := chain.submission(t, 150)

	_, _, err := Verify(chain.state, sub, Options{MaxRequiredSignatures: 2})
	require.ErrorIs(t, err, ErrInvalidValidatorProofLen)
}

func TestSelectValidators(t *testing.T) {
	chain := newTestChain(t)
	sub := chain.submission(t, 150)

	indices, err := SelectValidators(chain.state, &sub.Commitment, sub.Bitfield, Options{})
	require.NoError(t, err)
	require.Len(t, indices, len(sub.Proofs))
	for i, proof := range sub.Proofs {
		require.Equal(t, uint64(proof.Index), indices[i])
	}

	unknown := sub.Commitment
	unknown.ValidatorSetID = 42
	_, err = SelectValidators(chain.state, &unknown, sub.Bitfield, Options{})
	require.ErrorIs(t, err, ErrInvalidCommitment)

	_, err = SelectValidators(chain.state, &sub.Commitment, bitfield.FromMembers(10, []uint64{1}), Options{})
	require.ErrorIs(t, err, ErrInsufficientSetBits)
}

func TestClassify(t *testing.T) {
	chain := newTestChain(t)

	_, _, err := Verify(chain.state, chain.submission(t, 100), Options{})
	assert.Equal(t, ClassStale, Classify(err))

	sub := chain.submission(t, 150)
	sub.Proofs[0].S[0] ^= 1
	_, _, err = Verify(chain.state, sub, Options{})
	assert.Equal(t, ClassForgery, Classify(err))

	sub = chain.submission(t, 150)
	sub.Proofs = nil
	_, _, err = Verify(chain.state, sub, Options{})
	assert.Equal(t, ClassMalformed, Classify(err))

	assert.Equal(t, ClassUnknown, Classify(nil))
	assert.Equal(t, "forgery", ClassForgery.String())
}

func TestOutputPublicValues(t *testing.T) {
	output := Output{
		LatestMMRRoot:    common.HexToHash("0x01"),
		LatestBeefyBlock: 0x0102,
		CommitmentHash:   common.HexToHash("0x02"),
	}

	little := output.PublicValues(binary.LittleEndian)
	require.Len(t, little, 72)
	require.Equal(t, output.LatestMMRRoot.Bytes(), little[:32])
	require.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, little[32:40])
	require.Equal(t, output.CommitmentHash.Bytes(), little[40:])

	big := output.PublicValues(binary.BigEndian)
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x01, 0x02}, big[32:40])
}
