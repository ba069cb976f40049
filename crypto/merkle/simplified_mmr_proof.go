package merkle

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
)

// MaxProofSize bounds the number of items in a simplified MMR proof, one per
// bit of the 256-bit proof order word.
const MaxProofSize = 256

var ErrProofSizeExceeded = errors.New("proof size exceeded")

type SimplifiedMMRProof struct {
	MerkleProofItems []types.H256
	// Bitfield of the order in which each proof item should be hashed,
	// either left (1) or right (0).
	MerkleProofOrder uint64
	// Below fields are not part of proof directly, but they are included so that
	// we do not lose any information when converting from RPC response
	Blockhash types.H256
	// MMRLeaf in substrate with leaf_extra as merkle root of ParachainHeads
	// https://github.com/paritytech/substrate/blob/ea387c634715793f806286abf1e64cabf9b7026f/frame/beefy-mmr/src/lib.rs#L149-L156
	Leaf types.MMRLeaf
}

func parentOffset(height uint32) uint64 {
	return 2 << height
}

func siblingOffset(height uint32) uint64 {
	return (2 << height) - 1
}

func getPeakPosByHeight(height uint32) uint64 {
	return (1 << (height + 1)) - 2
}

func leftPeakHeightPos(mmrSize uint64) (uint32, uint64) {
	var height uint32 = 1
	var previousPosition uint64 = 0
	pos := getPeakPosByHeight(height)
	for pos < mmrSize {
		height += 1
		previousPosition = pos
		pos = getPeakPosByHeight(height)
	}
	return height - 1, previousPosition
}

func getRightPeak(height uint32, position uint64, mmrSize uint64) (bool, uint32, uint64) {
	position += siblingOffset(height)
	for position > mmrSize-1 {
		if height == 0 {
			return false, 0, 0
		}
		position -= parentOffset(height - 1)
		height -= 1
	}

	return true, height, position
}

func leafIndexToPosition(index uint64) uint64 {
	return leafIndexToMMRSize(index) - uint64(bits.TrailingZeros64(index+1)) - 1
}

func leafCountToMMRSize(leavesCount uint64) uint64 {
	peakCount := uint64(bits.OnesCount64(leavesCount))
	return 2*leavesCount - peakCount
}

func leafIndexToMMRSize(index uint64) uint64 {
	// Leaf index starts from zero
	return leafCountToMMRSize(index + 1)
}

func heightInTree(position uint64) uint32 {
	position += 1
	allOnes := func(num uint64) bool {
		zeroCount := 64 - bits.OnesCount64(num)
		return num != 0 && (bits.LeadingZeros64(num) == zeroCount)
	}
	jumpLeft := func(position uint64) uint64 {
		bitLength := 64 - bits.LeadingZeros64(position)
		mostSignificantBits := 1 << (bitLength - 1)
		return position - uint64(mostSignificantBits-1)
	}

	for !allOnes(position) {
		position = jumpLeft(position)
	}

	return uint32(64 - bits.LeadingZeros64(position) - 1)
}

func getPeaks(mmrSize uint64) []uint64 {
	var peaksPositions []uint64
	var ok bool
	height, position := leftPeakHeightPos(mmrSize)
	peaksPositions = append(peaksPositions, position)
	for height > 0 {
		ok, height, position = getRightPeak(height, position, mmrSize)
		if !ok {
			break
		}
		peaksPositions = append(peaksPositions, position)
	}
	return peaksPositions
}

func calculateMerkleProofOrder(leavePos uint64, proofItems []types.H256) (uint64, error) {
	var proofOrder uint64
	currentBitFieldPosition := 0

	type QueueElem struct {
		Height   uint32
		Position uint64
	}
	var queue []QueueElem
	queue = append(queue, QueueElem{
		Height:   0,
		Position: leavePos,
	})

	proofItemIterationPosition := 0

	for len(queue) > 0 {
		if proofItemIterationPosition >= len(proofItems) {
			// We have reached an end
			return proofOrder, nil
		}

		var lastElem QueueElem
		lastElem, queue = queue[len(queue)-1], queue[:len(queue)-1]

		nextHeight := heightInTree(lastElem.Position + 1)

		var isSiblingLeft bool
		var siblingElem QueueElem
		if nextHeight > lastElem.Height {
			proofOrder = proofOrder | 1<<currentBitFieldPosition
			isSiblingLeft = true
			siblingElem = QueueElem{
				Height:   lastElem.Height,
				Position: lastElem.Position - siblingOffset(lastElem.Height),
			}
		} else {
			isSiblingLeft = false
			siblingElem = QueueElem{
				Height:   lastElem.Height,
				Position: lastElem.Position + siblingOffset(lastElem.Height),
			}
		}
		currentBitFieldPosition += 1
		proofItemIterationPosition += 1

		var parentElem QueueElem
		if isSiblingLeft {
			parentElem = QueueElem{
				Height:   siblingElem.Height + 1,
				Position: siblingElem.Position + parentOffset(siblingElem.Height),
			}
		} else {
			parentElem = QueueElem{
				Height:   siblingElem.Height + 1,
				Position: siblingElem.Position + 1,
			}
		}
		queue = append(queue, parentElem)
	}

	return proofOrder, fmt.Errorf("corrupted proof")
}

// SimplifiedMMRProof is pre-processed MMR proof format which makes it easy to verify in Solidity
// Original MMRProof is generated in substrate with https://github.com/nervosnetwork/merkle-mountain-range
// The optimization works by pre-calculating order of the merkle tree proof so that we don't have to use mathematic operation to determine the same on solidity side
// More details in https://github.com/Snowfork/snowbridge/pull/495
func ConvertToSimplifiedMMRProof(blockhash types.H256, leafIndex uint64, leaf types.MMRLeaf, leafCount uint64, proofItems []types.H256) (SimplifiedMMRProof, error) {
	leafPos := leafIndexToPosition(leafIndex)

	var readyMadePeakHashes []types.H256
	var optionalRightBaggedPeak types.H256 = [32]byte{}
	var merkleProof []types.H256

	var proofItemPosition uint64 = 0
	var merkleRootPeakPosition uint64 = 0

	mmrSize := leafCountToMMRSize(leafCount)
	peaks := getPeaks(mmrSize)

	for i := 0; i < len(peaks); i++ {
		if (i == 0 || leafPos > peaks[i-1]) && leafPos <= peaks[i] {
			merkleRootPeakPosition = uint64(i)
			if i == len(peaks)-1 {
				for i := proofItemPosition; i < uint64(len(proofItems)); i++ {
					merkleProof = append(merkleProof, proofItems[i])
				}
			} else {
				for i := proofItemPosition; i < uint64(len(proofItems)-1); i++ {
					merkleProof = append(merkleProof, proofItems[i])
				}
				optionalRightBaggedPeak = proofItems[len(proofItems)-1]
				break
			}
		} else {
			readyMadePeakHashes = append(readyMadePeakHashes, proofItems[proofItemPosition])
			proofItemPosition += 1
		}
	}

	var localizedMerkleRootPosition uint64
	if merkleRootPeakPosition == 0 {
		localizedMerkleRootPosition = leafPos
	} else {
		localizedMerkleRootPosition = leafPos - peaks[merkleRootPeakPosition-1] - 1
	}

	proofOrder, err := calculateMerkleProofOrder(localizedMerkleRootPosition, merkleProof)
	if err != nil {
		return SimplifiedMMRProof{}, err
	}

	// Adding peaks into merkle proof itself
	currentProofOrderIndex := len(merkleProof) - 1
	// RightBaggedPeak is a hash that bags all right-hand side peaks, skip this part if no right-hand peaks
	if optionalRightBaggedPeak != [32]byte{} {
		currentProofOrderIndex += 1
		proofOrder = proofOrder | 1<<currentProofOrderIndex
		merkleProof = append(merkleProof, optionalRightBaggedPeak)
	}
	// Hashes of all left-hand peaks from right to left
	for i := 0; i < len(readyMadePeakHashes); i++ {
		currentProofOrderIndex += 1
		merkleProof = append(merkleProof, readyMadePeakHashes[len(readyMadePeakHashes)-i-1])
	}

	return SimplifiedMMRProof{
		MerkleProofOrder: proofOrder,
		MerkleProofItems: merkleProof,
		Leaf:             leaf,
		Blockhash:        blockhash,
	}, nil
}

// ProofOrderWord packs the proof order into the 256-bit big-endian word
// expected by the verifier.
func (p *SimplifiedMMRProof) ProofOrderWord() [32]byte {
	return new(uint256.Int).SetUint64(p.MerkleProofOrder).Bytes32()
}

// Items returns the proof items as plain hashes.
func (p *SimplifiedMMRProof) Items() [][32]byte {
	items := make([][32]byte, len(p.MerkleProofItems))
	for i, item := range p.MerkleProofItems {
		items[i] = item
	}
	return items
}

// CalculateMerkleRoot folds the proof items into the leaf hash. Bit i of the
// order word selects whether item i is hashed on the left (1) or right (0)
// of the accumulator. Proofs longer than MaxProofSize are rejected.
func CalculateMerkleRoot(leafHash [32]byte, proofItems [][32]byte, proofOrder [32]byte) ([32]byte, error) {
	if len(proofItems) > MaxProofSize {
		return [32]byte{}, fmt.Errorf("%w: %d items, limit is %d", ErrProofSizeExceeded, len(proofItems), MaxProofSize)
	}

	order := new(uint256.Int).SetBytes32(proofOrder[:])
	currentHash := leafHash

	for i, sibling := range proofItems {
		isSiblingLeft := (order[i/64]>>(uint(i)%64))&1 == 1
		if isSiblingLeft {
			currentHash = keccak.Pair(sibling, currentHash)
		} else {
			currentHash = keccak.Pair(currentHash, sibling)
		}
	}

	return currentHash, nil
}
