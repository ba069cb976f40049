// Copyright 2020 ChainSafe Systems
// SPDX-License-Identifier: LGPL-3.0-only

package secp256k1

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"

	secp256k1 "github.com/ethereum/go-ethereum/crypto"
)

const PrivateKeyLength = 32

type Keypair struct {
	public  *ecdsa.PublicKey
	private *ecdsa.PrivateKey
}

func NewKeypairFromPrivateKey(priv []byte) (*Keypair, error) {
	pk, err := secp256k1.ToECDSA(priv)
	if err != nil {
		return nil, err
	}

	return &Keypair{
		public:  pk.Public().(*ecdsa.PublicKey),
		private: pk,
	}, nil
}

// NewKeypairFromString parses a string for a hex private key. Must be at least
// PrivateKeyLength long.
func NewKeypairFromString(priv string) (*Keypair, error) {
	pk, err := secp256k1.HexToECDSA(priv)
	if err != nil {
		return nil, err
	}

	return &Keypair{
		public:  pk.Public().(*ecdsa.PublicKey),
		private: pk,
	}, nil
}

// CommonAddress returns the Ethereum address in the common.Address Format
func (kp *Keypair) CommonAddress() common.Address {
	return secp256k1.PubkeyToAddress(*kp.public)
}

// CompressedPublicKey returns the 33 byte compressed public key, the format
// BEEFY authorities are stored in on the relay chain.
func (kp *Keypair) CompressedPublicKey() [33]byte {
	var out [33]byte
	copy(out[:], secp256k1.CompressPubkey(kp.public))
	return out
}

// Sign signs a prehashed 32 byte message and returns the signature split into
// its recovery id (27 or 28) and r, s scalars.
func (kp *Keypair) Sign(hash [32]byte) (uint8, [32]byte, [32]byte, error) {
	sig, err := secp256k1.Sign(hash[:], kp.private)
	if err != nil {
		return 0, [32]byte{}, [32]byte{}, err
	}

	var r, s [32]byte
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	return sig[64] + 27, r, s, nil
}
