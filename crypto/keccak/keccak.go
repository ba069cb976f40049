package keccak

import "github.com/ethereum/go-ethereum/crypto"

// Sum hashes the concatenation of its arguments into a fixed size digest.
func Sum(data ...[]byte) [32]byte {
	return crypto.Keccak256Hash(data...)
}

// Pair hashes two 32 byte nodes in the given order.
func Pair(left, right [32]byte) [32]byte {
	return crypto.Keccak256Hash(left[:], right[:])
}
