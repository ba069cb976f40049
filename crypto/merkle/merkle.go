// Code is based on a heavily modified version of https://github.com/wilfreddenton/merkle

package merkle

import (
	"errors"
	"fmt"
	"math"

	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
)

// Position constants are used in merkle path nodes to denote
// whether the node was a left child or right child. This allows
// hash concatenation can be performed correctly.
const (
	PositionLeft  = "left"
	PositionRight = "right"
)

func depth(n int) int {
	return int(math.Ceil(math.Log2(float64(n))))
}

// Node is used to represent the steps of a merkle path.
// This structure is not used within the Tree structure.
type Node struct {
	Hash     [32]byte
	Position string
}

// Tree is the merkle tree structure. It is implemented
// as an array of arrays of hashes:
//
//	[
//	  [ root digest ],
//	  [ digest, digest ],
//	  [ digest, digest, digest, digest],
//	  ...
//	  [ leaf, leaf, leaf, leaf, ... ]
//	]
//
// The last node of an odd length level is promoted to the level above
// without hashing, which is how substrate's binary merkle tree commits to
// the BEEFY validator set.
type Tree struct {
	levels [][][32]byte
}

// Root returns the root hash of the tree or the zero hash if it hasn't been hashed.
func (t *Tree) Root() [32]byte {
	if t.levels == nil {
		return [32]byte{}
	}

	return t.levels[0][0]
}

// Depth returns the number of edges from the root to the leaf nodes
func (t *Tree) Depth() int {
	if t.levels == nil {
		return 0
	}

	return len(t.levels) - 1
}

// Width returns the number of leaves
func (t *Tree) Width() int {
	if t.levels == nil {
		return 0
	}

	return len(t.levels[t.Depth()])
}

// MerklePath generates an authentication path for the leaf at index.
// If the index is out of range the return value is nil.
func (t *Tree) MerklePath(index int) []*Node {
	if index < 0 || index >= t.Width() {
		return nil
	}

	d := t.Depth()
	path := []*Node{}

	for i := d; i > 0; i -= 1 {
		level := t.levels[i]
		levelLen := len(level)
		remainder := levelLen % 2
		nextIndex := index / 2

		// if index is the the last item in an odd length level promote
		if index == levelLen-1 && remainder != 0 {
			index = nextIndex
			continue
		}

		// if i is odd we want to get the left sibling
		if index%2 != 0 {
			path = append(path, &Node{Hash: level[index-1], Position: PositionLeft})
		} else {
			path = append(path, &Node{Hash: level[index+1], Position: PositionRight})
		}

		index = nextIndex
	}

	return path
}

// Proof returns the sibling hashes of the authentication path for the leaf at index.
func (t *Tree) Proof(index int) ([][32]byte, error) {
	if index < 0 || index >= t.Width() {
		return nil, fmt.Errorf("leaf index %d out of range for %d leaves", index, t.Width())
	}

	path := t.MerklePath(index)
	proof := make([][32]byte, len(path))
	for i, node := range path {
		proof[i] = node.Hash
	}
	return proof, nil
}

// Hash creates a merkle tree from an array of pre-leaves.
// Pre-leaves are hashed with keccak256 to produce the leaves.
func (t *Tree) Hash(preLeaves [][]byte) error {
	n := len(preLeaves)

	if n == 0 {
		return errors.New("cannot create tree with 0 pre leaves")
	}

	d := depth(n)
	t.levels = make([][][32]byte, d+1)
	leaves := make([][32]byte, n)

	for i, preLeaf := range preLeaves {
		leaves[i] = keccak.Sum(preLeaf)
	}

	t.levels[d] = leaves

	for i := d; i > 0; i -= 1 {
		level := t.levels[i]
		levelLen := len(level)
		remainder := levelLen % 2
		nextLevel := make([][32]byte, levelLen/2+remainder)

		k := 0
		for j := 0; j < len(level)-1; j += 2 {
			nextLevel[k] = keccak.Pair(level[j], level[j+1])
			k += 1
		}

		if remainder != 0 {
			nextLevel[k] = level[len(level)-1]
		}

		t.levels[i-1] = nextLevel
	}

	return nil
}

func NewTree() *Tree {
	return &Tree{levels: nil}
}

// VerifyProof checks that leaf sits at position in a tree of width leaves
// committed to by root. The hashing order at every level is derived from the
// position alone: a node is hashed on the right when it is a right child or
// the last node of its level.
func VerifyProof(root, leaf [32]byte, position, width uint64, proof [][32]byte) bool {
	if position >= width {
		return false
	}

	node := leaf
	for _, sibling := range proof {
		if position >= width {
			return false
		}
		if position&1 == 1 || position+1 == width {
			node = keccak.Pair(sibling, node)
		} else {
			node = keccak.Pair(node, sibling)
		}
		position >>= 1
		width = ((width - 1) >> 1) + 1
	}

	return node == root
}
