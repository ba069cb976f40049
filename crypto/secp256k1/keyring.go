// Copyright 2020 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package secp256k1

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

// Keypairs for use in tests

func Alice() *Keypair {
	bz := padWithZeros([]byte("Alice"), PrivateKeyLength)
	kp, err := NewKeypairFromPrivateKey(bz)
	if err != nil {
		panic(err)
	}
	return kp
}

func Bob() *Keypair {
	bz := padWithZeros([]byte("Bob"), PrivateKeyLength)
	kp, err := NewKeypairFromPrivateKey(bz)
	if err != nil {
		panic(err)
	}
	return kp
}

// Validators returns n deterministic keypairs derived from seed, suitable for
// building validator sets in tests and fixtures.
func Validators(seed string, n int) []*Keypair {
	keypairs := make([]*Keypair, n)
	for i := 0; i < n; i++ {
		var index [8]byte
		binary.BigEndian.PutUint64(index[:], uint64(i))
		// keccak output is below the curve order with overwhelming probability
		kp, err := NewKeypairFromPrivateKey(crypto.Keccak256([]byte(seed), index[:]))
		if err != nil {
			panic(err)
		}
		keypairs[i] = kp
	}
	return keypairs
}

// padWithZeros adds on extra 0 bytes to make a byte array of a specified length
func padWithZeros(key []byte, targetLength int) []byte {
	res := make([]byte, targetLength-len(key))
	return append(res, key...)
}
