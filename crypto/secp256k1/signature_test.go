package secp256k1

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	for _, kp := range []*Keypair{Alice(), Bob()} {
		hash := crypto.Keccak256Hash([]byte("commitment"))
		v, r, s, err := kp.Sign(hash)
		require.NoError(t, err)

		require.True(t, VerifySignature(kp.CommonAddress(), v, r, s, hash))
		// raw recovery ids are accepted too
		require.True(t, VerifySignature(kp.CommonAddress(), v-27, r, s, hash))
	}
}

func TestVerifySignatureBitFlips(t *testing.T) {
	kp := Alice()
	hash := crypto.Keccak256Hash([]byte("commitment"))
	v, r, s, err := kp.Sign(hash)
	require.NoError(t, err)

	for bit := 0; bit < 256; bit++ {
		byteIndex, mask := bit/8, byte(1)<<(bit%8)

		flippedR := r
		flippedR[byteIndex] ^= mask
		assert.False(t, VerifySignature(kp.CommonAddress(), v, flippedR, s, hash), "r bit %d", bit)

		flippedS := s
		flippedS[byteIndex] ^= mask
		assert.False(t, VerifySignature(kp.CommonAddress(), v, r, flippedS, hash), "s bit %d", bit)

		flippedHash := hash
		flippedHash[byteIndex] ^= mask
		assert.False(t, VerifySignature(kp.CommonAddress(), v, r, s, flippedHash), "hash bit %d", bit)
	}
}

func TestVerifySignatureMalformed(t *testing.T) {
	kp := Alice()
	hash := crypto.Keccak256Hash([]byte("commitment"))
	v, r, s, err := kp.Sign(hash)
	require.NoError(t, err)

	assert.False(t, VerifySignature(Bob().CommonAddress(), v, r, s, hash))
	assert.False(t, VerifySignature(kp.CommonAddress(), 2, r, s, hash))
	assert.False(t, VerifySignature(kp.CommonAddress(), 29, r, s, hash))
	assert.False(t, VerifySignature(kp.CommonAddress(), 255, r, s, hash))
	assert.False(t, VerifySignature(kp.CommonAddress(), v, [32]byte{}, s, hash))
	assert.False(t, VerifySignature(kp.CommonAddress(), v, r, [32]byte{}, hash))

	var max [32]byte
	for i := range max {
		max[i] = 0xff
	}
	assert.False(t, VerifySignature(kp.CommonAddress(), v, max, s, hash))
	assert.False(t, VerifySignature(common.Address{}, v, r, s, hash))
}

func TestValidatorsAreDeterministic(t *testing.T) {
	a := Validators("validators", 3)
	b := Validators("validators", 3)
	for i := range a {
		require.Equal(t, a[i].CommonAddress(), b[i].CommonAddress())
	}
	require.NotEqual(t, a[0].CommonAddress(), a[1].CommonAddress())
}
