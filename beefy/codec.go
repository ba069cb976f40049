package beefy

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/snowfork/go-substrate-rpc-client/v4/scale"

	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
)

// writeCompact appends the SCALE compact encoding of n. A bytes.Buffer never
// fails a write and n is never negative, so the encoder cannot error here.
func writeCompact(buf *bytes.Buffer, n uint64) {
	_ = scale.NewEncoder(buf).EncodeUintCompact(*new(big.Int).SetUint64(n))
}

// EncodeCommitment returns the canonical encoding of a commitment:
//
//	compact(len(payload)) || for each item: id || compact(len(data)) || data
//	|| be32(blockNumber) || be64(validatorSetID)
func EncodeCommitment(commitment *Commitment) []byte {
	var buf bytes.Buffer
	writeCompact(&buf, uint64(len(commitment.Payload)))
	for _, item := range commitment.Payload {
		buf.Write(item.PayloadID[:])
		writeCompact(&buf, uint64(len(item.Data)))
		buf.Write(item.Data)
	}

	var fixed [12]byte
	binary.BigEndian.PutUint32(fixed[0:4], commitment.BlockNumber)
	binary.BigEndian.PutUint64(fixed[4:12], commitment.ValidatorSetID)
	buf.Write(fixed[:])

	return buf.Bytes()
}

// HashCommitment is keccak256 of EncodeCommitment.
func HashCommitment(commitment *Commitment) common.Hash {
	return keccak.Sum(EncodeCommitment(commitment))
}

// MMRLeafLength is the size of an encoded MMR leaf.
const MMRLeafLength = 1 + 4 + 32 + 8 + 4 + 32 + 32

// EncodeMMRLeaf returns the fixed width encoding of a leaf:
//
//	version || be32(parentNumber) || parentHash || be64(nextAuthoritySetID)
//	|| be32(nextAuthoritySetLen) || nextAuthoritySetRoot || parachainHeadsRoot
func EncodeMMRLeaf(leaf *MMRLeaf) []byte {
	encoded := make([]byte, 0, MMRLeafLength)
	encoded = append(encoded, leaf.Version)
	encoded = binary.BigEndian.AppendUint32(encoded, leaf.ParentNumber)
	encoded = append(encoded, leaf.ParentHash[:]...)
	encoded = binary.BigEndian.AppendUint64(encoded, leaf.NextAuthoritySetID)
	encoded = binary.BigEndian.AppendUint32(encoded, leaf.NextAuthoritySetLen)
	encoded = append(encoded, leaf.NextAuthoritySetRoot[:]...)
	encoded = append(encoded, leaf.ParachainHeadsRoot[:]...)
	return encoded
}

// HashMMRLeaf is keccak256 of EncodeMMRLeaf.
func HashMMRLeaf(leaf *MMRLeaf) common.Hash {
	return keccak.Sum(EncodeMMRLeaf(leaf))
}
