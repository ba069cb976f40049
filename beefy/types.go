package beefy

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/snowfork/snowbridge/beefy-client/beefy/bitfield"
)

// MMRRootID is the payload id under which a commitment carries the MMR root.
var MMRRootID = [2]byte{'m', 'h'}

type PayloadItem struct {
	PayloadID [2]byte       `json:"payloadID"`
	Data      hexutil.Bytes `json:"data"`
}

type Commitment struct {
	BlockNumber    uint32        `json:"blockNumber"`
	ValidatorSetID uint64        `json:"validatorSetID"`
	Payload        []PayloadItem `json:"payload"`
}

type ValidatorProof struct {
	V       uint8          `json:"v"`
	R       common.Hash    `json:"r"`
	S       common.Hash    `json:"s"`
	Index   uint32         `json:"index"`
	Account common.Address `json:"account"`
	Proof   []common.Hash  `json:"proof"`
}

type MMRLeaf struct {
	Version              uint8       `json:"version"`
	ParentNumber         uint32      `json:"parentNumber"`
	ParentHash           common.Hash `json:"parentHash"`
	NextAuthoritySetID   uint64      `json:"nextAuthoritySetID"`
	NextAuthoritySetLen  uint32      `json:"nextAuthoritySetLen"`
	NextAuthoritySetRoot common.Hash `json:"nextAuthoritySetRoot"`
	ParachainHeadsRoot   common.Hash `json:"parachainHeadsRoot"`
}

// ValidatorSet is the commitment to a BEEFY authority set: the Merkle root
// over keccak256 of each authority's Ethereum address.
type ValidatorSet struct {
	ID     uint64      `json:"id"`
	Length uint64      `json:"length"`
	Root   common.Hash `json:"root"`
}

// State is the light client state. It holds no references, so copying a
// State copies all of it.
type State struct {
	LatestMMRRoot       common.Hash  `json:"latestMMRRoot"`
	LatestBeefyBlock    uint64       `json:"latestBeefyBlock"`
	CurrentValidatorSet ValidatorSet `json:"currentValidatorSet"`
	NextValidatorSet    ValidatorSet `json:"nextValidatorSet"`
}

// Submission is a signed commitment together with everything needed to
// verify it. Leaf, LeafProof and LeafProofOrder are only inspected when the
// commitment is signed by the next validator set.
type Submission struct {
	Commitment     Commitment        `json:"commitment"`
	Bitfield       bitfield.Bitfield `json:"bitfield"`
	Proofs         []ValidatorProof  `json:"proofs"`
	Leaf           *MMRLeaf          `json:"leaf,omitempty"`
	LeafProof      []common.Hash     `json:"leafProof,omitempty"`
	LeafProofOrder common.Hash       `json:"leafProofOrder"`
}

// Output is the public result of an accepted submission.
type Output struct {
	LatestMMRRoot    common.Hash `json:"latestMMRRoot"`
	LatestBeefyBlock uint64      `json:"latestBeefyBlock"`
	CommitmentHash   common.Hash `json:"commitmentHash"`
}

// PublicValues packs the output as root || block || commitmentHash with the
// block number written as 8 bytes in the given order.
func (o *Output) PublicValues(order binary.ByteOrder) []byte {
	values := make([]byte, 0, 32+8+32)
	values = append(values, o.LatestMMRRoot[:]...)
	var block [8]byte
	order.PutUint64(block[:], o.LatestBeefyBlock)
	values = append(values, block[:]...)
	values = append(values, o.CommitmentHash[:]...)
	return values
}

func toHashes(items []common.Hash) [][32]byte {
	hashes := make([][32]byte, len(items))
	for i, item := range items {
		hashes[i] = item
	}
	return hashes
}
