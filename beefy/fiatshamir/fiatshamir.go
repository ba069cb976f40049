// Package fiatshamir derives the subset of validator signatures a BEEFY
// commitment submission must open. The subset is a deterministic function of
// the commitment hash, the claimed attendance bitfield and the validator set,
// so a relayer cannot choose it ahead of fixing those inputs.
package fiatshamir

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/minio/sha256-simd"
	gobitfield "github.com/prysmaticlabs/go-bitfield"

	"github.com/snowfork/snowbridge/beefy-client/beefy/bitfield"
	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
)

const (
	// GlobalCap bounds the number of signatures checked for any set size.
	GlobalCap uint64 = 111
	// DomainID separates the sampling seed from every other hash in the protocol.
	DomainID = "SNOWBRIDGE-FIAT-SHAMIR-v1"
)

var ErrInvalidSamplingParams = errors.New("invalid sampling params")

// Quorum is the minimum number of signers for a set of n validators, more
// than two thirds of the set.
func Quorum(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return n - (n-1)/3
}

// MaxRequired is the number of signatures that guarantees at least one honest
// signer is sampled when fewer than a third of the set is faulty.
func MaxRequired(n uint64) uint64 {
	return n/3 + 1
}

// Required is MaxRequired capped at limit.
func Required(n, limit uint64) uint64 {
	required := MaxRequired(n)
	if required > limit {
		return limit
	}
	return required
}

// Seed computes
//
//	sha256(DomainID || sha256(commitmentHash || bitfieldHash || root || be256(id) || be256(length)))
func Seed(commitmentHash, bitfieldHash, root [32]byte, id, length uint64) [32]byte {
	idWord := uint256.NewInt(id).Bytes32()
	lengthWord := uint256.NewInt(length).Bytes32()

	inner := sha256.New()
	inner.Write(commitmentHash[:])
	inner.Write(bitfieldHash[:])
	inner.Write(root[:])
	inner.Write(idWord[:])
	inner.Write(lengthWord[:])

	outer := sha256.New()
	outer.Write([]byte(DomainID))
	outer.Write(inner.Sum(nil))

	var seed [32]byte
	copy(seed[:], outer.Sum(nil))
	return seed
}

// Index returns keccak256(seed || be256(iteration)) mod length, reduced over
// the full 256-bit digest.
func Index(seed [32]byte, iteration, length uint64) uint64 {
	if length == 0 {
		return 0
	}
	counter := uint256.NewInt(iteration).Bytes32()
	digest := keccak.Sum(seed[:], counter[:])

	value := new(uint256.Int).SetBytes32(digest[:])
	return value.Mod(value, uint256.NewInt(length)).Uint64()
}

// Selection is the set of validator indices a submission must open.
type Selection struct {
	// Indices in the order they were drawn.
	Indices []uint64
	pending gobitfield.Bitlist
}

// Contains reports whether index was selected and has not been consumed.
func (s *Selection) Contains(index uint64) bool {
	return s.pending.BitAt(index)
}

// Consume marks index as used. It returns false when index was not selected
// or was already consumed.
func (s *Selection) Consume(index uint64) bool {
	if !s.pending.BitAt(index) {
		return false
	}
	s.pending.SetBitAt(index, false)
	return true
}

// Remaining returns the number of selected indices not yet consumed.
func (s *Selection) Remaining() uint64 {
	return s.pending.Count()
}

// Bitfield returns the selection as a bitfield for a set of the given length.
func (s *Selection) Bitfield(length uint64) bitfield.Bitfield {
	return bitfield.FromMembers(length, s.Indices)
}

// Sample draws required distinct indices out of the set bits of prior, which
// describes a validator set of the given length. Indices that are unset in
// prior, or already drawn, are skipped.
func Sample(seed [32]byte, prior bitfield.Bitfield, length, required uint64) (*Selection, error) {
	if length == 0 || prior.Words() != bitfield.ContainerLength(length) {
		return nil, fmt.Errorf("%w: bitfield has %d words for %d validators", ErrInvalidSamplingParams, prior.Words(), length)
	}

	var available uint64
	for i := uint64(0); i < length; i++ {
		if prior.IsSet(i) {
			available++
		}
	}
	if required > available {
		return nil, fmt.Errorf("%w: %d required but only %d signers", ErrInvalidSamplingParams, required, available)
	}

	selection := &Selection{
		Indices: make([]uint64, 0, required),
		pending: gobitfield.NewBitlist(length),
	}

	for iteration := uint64(0); uint64(len(selection.Indices)) < required; iteration++ {
		index := Index(seed, iteration, length)
		if !prior.IsSet(index) || selection.pending.BitAt(index) {
			continue
		}
		selection.pending.SetBitAt(index, true)
		selection.Indices = append(selection.Indices, index)
	}

	return selection, nil
}

// Select derives the seed for the given commitment, attendance bitfield and
// validator set, then samples the required indices.
func Select(commitmentHash [32]byte, prior bitfield.Bitfield, root [32]byte, id, length, limit uint64) (*Selection, error) {
	seed := Seed(commitmentHash, prior.Hash(), root, id, length)
	return Sample(seed, prior, length, Required(length, limit))
}
