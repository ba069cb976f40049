package beefy

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/snowfork/snowbridge/beefy-client/beefy/bitfield"
	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
	"github.com/snowfork/snowbridge/beefy-client/crypto/merkle"
	"github.com/snowfork/snowbridge/beefy-client/crypto/secp256k1"
)

type testValidators struct {
	keypairs []*secp256k1.Keypair
	tree     *merkle.Tree
	set      ValidatorSet
}

func newTestValidators(t testing.TB, seed string, id uint64, n int) *testValidators {
	keypairs := secp256k1.Validators(seed, n)
	leaves := make([][]byte, n)
	for i, kp := range keypairs {
		leaves[i] = kp.CommonAddress().Bytes()
	}
	tree := merkle.NewTree()
	require.NoError(t, tree.Hash(leaves))

	return &testValidators{
		keypairs: keypairs,
		tree:     tree,
		set:      ValidatorSet{ID: id, Length: uint64(n), Root: tree.Root()},
	}
}

func (v *testValidators) all() []uint64 {
	members := make([]uint64, len(v.keypairs))
	for i := range members {
		members[i] = uint64(i)
	}
	return members
}

// sign builds a submission for commitment opened by the validators the
// verifier will sample under state.
func (v *testValidators) sign(t testing.TB, state State, commitment Commitment, signers []uint64) *Submission {
	attendance := bitfield.FromMembers(v.set.Length, signers)
	indices, err := SelectValidators(state, &commitment, attendance, Options{})
	require.NoError(t, err)

	hash := HashCommitment(&commitment)
	proofs := make([]ValidatorProof, len(indices))
	for i, index := range indices {
		kp := v.keypairs[index]
		sigV, r, s, err := kp.Sign(hash)
		require.NoError(t, err)
		path, err := v.tree.Proof(int(index))
		require.NoError(t, err)

		proofs[i] = ValidatorProof{
			V:       sigV,
			R:       r,
			S:       s,
			Index:   uint32(index),
			Account: kp.CommonAddress(),
			Proof:   fromHashes(path),
		}
	}

	return &Submission{
		Commitment: commitment,
		Bitfield:   attendance,
		Proofs:     proofs,
	}
}

func fromHashes(items [][32]byte) []common.Hash {
	hashes := make([]common.Hash, len(items))
	for i, item := range items {
		hashes[i] = item
	}
	return hashes
}

func mmrCommitment(blockNumber uint32, setID uint64, root common.Hash) Commitment {
	return Commitment{
		BlockNumber:    blockNumber,
		ValidatorSetID: setID,
		Payload:        []PayloadItem{{PayloadID: MMRRootID, Data: root.Bytes()}},
	}
}

// handover is an MMR leaf announcing a validator set together with a two
// item proof of its inclusion under root.
type handover struct {
	leaf  MMRLeaf
	proof []common.Hash
	order common.Hash
	root  common.Hash
}

func newHandover(t testing.TB, announced ValidatorSet) *handover {
	leaf := MMRLeaf{
		Version:              0,
		ParentNumber:         149,
		ParentHash:           keccak.Sum([]byte("parent")),
		NextAuthoritySetID:   announced.ID,
		NextAuthoritySetLen:  uint32(announced.Length),
		NextAuthoritySetRoot: announced.Root,
		ParachainHeadsRoot:   keccak.Sum([]byte("parachain heads")),
	}
	proof := []common.Hash{keccak.Sum([]byte("right sibling")), keccak.Sum([]byte("left peak"))}
	// item 0 on the right of the leaf, item 1 on the left of the result
	var order common.Hash
	order[31] = 0b10

	root, err := merkle.CalculateMerkleRoot(HashMMRLeaf(&leaf), toHashes(proof), order)
	require.NoError(t, err)

	return &handover{leaf: leaf, proof: proof, order: order, root: root}
}

func (h *handover) attach(sub *Submission) *Submission {
	leaf := h.leaf
	sub.Leaf = &leaf
	sub.LeafProof = append([]common.Hash{}, h.proof...)
	sub.LeafProofOrder = h.order
	return sub
}

type testChain struct {
	current   *testValidators
	next      *testValidators
	following *testValidators
	state     State
}

func newTestChain(t testing.TB) *testChain {
	current := newTestValidators(t, "current", 3, 10)
	next := newTestValidators(t, "next", 4, 7)
	following := newTestValidators(t, "following", 5, 12)

	return &testChain{
		current:   current,
		next:      next,
		following: following,
		state: State{
			LatestMMRRoot:       keccak.Sum([]byte("genesis")),
			LatestBeefyBlock:    100,
			CurrentValidatorSet: current.set,
			NextValidatorSet:    next.set,
		},
	}
}

// submission is a valid non-rotating submission at blockNumber.
func (c *testChain) submission(t testing.TB, blockNumber uint32) *Submission {
	root := keccak.Sum([]byte("mmr root"), []byte{byte(blockNumber)})
	return c.current.sign(t, c.state, mmrCommitment(blockNumber, c.current.set.ID, root), c.current.all())
}

// rotation is a valid submission signed by the next set that hands over to
// the following set.
func (c *testChain) rotation(t testing.TB, blockNumber uint32) (*Submission, *handover) {
	h := newHandover(t, c.following.set)
	sub := c.next.sign(t, c.state, mmrCommitment(blockNumber, c.next.set.ID, h.root), c.next.all())
	return h.attach(sub), h
}
