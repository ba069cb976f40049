package beefy

import (
	"errors"

	"github.com/snowfork/snowbridge/beefy-client/beefy/bitfield"
	"github.com/snowfork/snowbridge/beefy-client/beefy/fiatshamir"
	"github.com/snowfork/snowbridge/beefy-client/crypto/merkle"
)

var (
	ErrStaleCommitment          = errors.New("stale commitment")
	ErrInvalidCommitment        = errors.New("invalid commitment")
	ErrInvalidBitfieldLength    = bitfield.ErrInvalidBitfieldLength
	ErrInsufficientSetBits      = bitfield.ErrInsufficientSetBits
	ErrInvalidBitfieldPadding   = bitfield.ErrInvalidBitfieldPadding
	ErrInvalidValidatorProofLen = errors.New("invalid validator proof length")
	ErrValidatorNotInBitfield   = errors.New("validator not in bitfield")
	ErrInvalidValidatorProof    = errors.New("invalid validator proof")
	ErrInvalidSignature         = errors.New("invalid signature")
	ErrMMRRootNotFound          = errors.New("mmr root not found")
	ErrInvalidMMRRootLength     = errors.New("invalid mmr root length")
	ErrInvalidMMRLeaf           = errors.New("invalid mmr leaf")
	ErrInvalidMMRLeafProof      = errors.New("invalid mmr leaf proof")
	ErrProofSizeExceeded        = merkle.ErrProofSizeExceeded
)

// Class groups verification failures by what they say about the submitter.
type Class int

const (
	ClassUnknown Class = iota
	// ClassStale submissions were honest but arrived too late.
	ClassStale
	// ClassMalformed submissions are structurally wrong.
	ClassMalformed
	// ClassForgery submissions carry cryptographic material that does not
	// check out against the trusted validator sets.
	ClassForgery
)

func (c Class) String() string {
	switch c {
	case ClassStale:
		return "stale"
	case ClassMalformed:
		return "malformed"
	case ClassForgery:
		return "forgery"
	default:
		return "unknown"
	}
}

var classes = map[error]Class{
	ErrStaleCommitment:          ClassStale,
	ErrInvalidCommitment:        ClassMalformed,
	ErrInvalidBitfieldLength:    ClassMalformed,
	ErrInsufficientSetBits:      ClassMalformed,
	ErrInvalidBitfieldPadding:   ClassMalformed,
	ErrInvalidValidatorProofLen: ClassMalformed,
	ErrMMRRootNotFound:          ClassMalformed,
	ErrInvalidMMRRootLength:     ClassMalformed,
	ErrProofSizeExceeded:        ClassMalformed,
	ErrValidatorNotInBitfield:   ClassForgery,
	ErrInvalidValidatorProof:    ClassForgery,
	ErrInvalidSignature:         ClassForgery,
	ErrInvalidMMRLeaf:           ClassForgery,
	ErrInvalidMMRLeafProof:      ClassForgery,

	// only reachable with a degenerate validator set, such as one of length zero
	fiatshamir.ErrInvalidSamplingParams: ClassMalformed,
}

// Classify returns the class of a verification error, unwrapping as needed.
func Classify(err error) Class {
	for sentinel, class := range classes {
		if errors.Is(err, sentinel) {
			return class
		}
	}
	return ClassUnknown
}
