package merkle

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
)

var validatorAddresses = []common.Address{
	common.HexToAddress("0xE04CC55ebEE1cBCE552f250e85c57B70B2E2625b"),
	common.HexToAddress("0x25451A4de12dcCc2D166922fA938E900fCc4ED24"),
	common.HexToAddress("0x5630a480727CD7799073b36472d9b1A6031f840b"),
	common.HexToAddress("0x8b4ab6ee5B0D5E3D5aFcA7dd9B7d30d9e4BA7F6F"),
}

func makePreLeaves(n int) [][]byte {
	preLeaves := make([][]byte, n)
	for i := 0; i < n; i++ {
		preLeaves[i] = common.BigToAddress(common.Big1).Bytes()
		preLeaves[i][0] = byte(i)
		preLeaves[i][19] = byte(i * 7)
	}
	return preLeaves
}

func TestFourValidatorScenario(t *testing.T) {
	preLeaves := make([][]byte, len(validatorAddresses))
	for i, address := range validatorAddresses {
		preLeaves[i] = address.Bytes()
	}

	l0 := keccak.Sum(preLeaves[0])
	l1 := keccak.Sum(preLeaves[1])
	l2 := keccak.Sum(preLeaves[2])
	l3 := keccak.Sum(preLeaves[3])
	keccak01 := keccak.Pair(l0, l1)
	keccak23 := keccak.Pair(l2, l3)
	root := keccak.Pair(keccak01, keccak23)

	tree := NewTree()
	require.NoError(t, tree.Hash(preLeaves))
	require.Equal(t, root, tree.Root())

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{l1, keccak23}, proof)

	assert.True(t, VerifyProof(root, l0, 0, 4, [][32]byte{l1, keccak23}))

	corrupted := append([]byte{}, preLeaves[1]...)
	corrupted[0] ^= 0xff
	assert.False(t, VerifyProof(root, l0, 0, 4, [][32]byte{keccak.Sum(corrupted), keccak23}))
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 16, 17} {
		t.Run(fmt.Sprintf("leaves=%d", n), func(t *testing.T) {
			preLeaves := makePreLeaves(n)
			tree := NewTree()
			require.NoError(t, tree.Hash(preLeaves))

			for i := 0; i < n; i++ {
				leaf := keccak.Sum(preLeaves[i])
				proof, err := tree.Proof(i)
				require.NoError(t, err)
				require.True(t, VerifyProof(tree.Root(), leaf, uint64(i), uint64(n), proof), "leaf %d", i)

				if len(proof) > 0 {
					mutated := append([][32]byte{}, proof...)
					mutated[0][5] ^= 0x01
					assert.False(t, VerifyProof(tree.Root(), leaf, uint64(i), uint64(n), mutated), "leaf %d", i)
				}

				assert.False(t, VerifyProof(tree.Root(), leaf, uint64(n), uint64(n), proof))
				assert.False(t, VerifyProof(tree.Root(), leaf, uint64(i)+uint64(n), uint64(n), proof))
			}
		})
	}
}

func TestMutatedPositionFails(t *testing.T) {
	for _, n := range []int{2, 4, 16} {
		preLeaves := makePreLeaves(n)
		tree := NewTree()
		require.NoError(t, tree.Hash(preLeaves))

		for i := 0; i < n; i++ {
			leaf := keccak.Sum(preLeaves[i])
			proof, err := tree.Proof(i)
			require.NoError(t, err)
			assert.False(t, VerifyProof(tree.Root(), leaf, uint64(i^1), uint64(n), proof), "n=%d leaf %d", n, i)
		}
	}
}

func TestProofOfPromotedLeaf(t *testing.T) {
	preLeaves := makePreLeaves(5)
	tree := NewTree()
	require.NoError(t, tree.Hash(preLeaves))

	// the fifth leaf is promoted twice and only meets a sibling at the top
	proof, err := tree.Proof(4)
	require.NoError(t, err)
	require.Len(t, proof, 1)
	require.True(t, VerifyProof(tree.Root(), keccak.Sum(preLeaves[4]), 4, 5, proof))

	_, err = tree.Proof(5)
	require.Error(t, err)
}

func TestEmptyTree(t *testing.T) {
	err := NewTree().Hash(nil)
	require.Error(t, err)
}
