package secp256k1

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	secp256k1 "github.com/ethereum/go-ethereum/crypto"
)

// VerifySignature reports whether the signature (v, r, s) over the prehashed
// message recovers to account. Recovery ids are accepted in both the raw
// {0, 1} and the legacy {27, 28} forms. Any malformed input yields false.
func VerifySignature(account common.Address, v uint8, r, s, hash [32]byte) bool {
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return false
	}

	if !secp256k1.ValidateSignatureValues(v, new(big.Int).SetBytes(r[:]), new(big.Int).SetBytes(s[:]), false) {
		return false
	}

	sig := make([]byte, 65)
	copy(sig[:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = v

	pub, err := secp256k1.Ecrecover(hash[:], sig)
	if err != nil || len(pub) != 65 {
		return false
	}

	var recovered common.Address
	copy(recovered[:], secp256k1.Keccak256(pub[1:])[12:])

	return recovered == account
}
