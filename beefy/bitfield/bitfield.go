package bitfield

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
)

const (
	// WordBits is the number of bits in a bitfield word (a Solidity uint256).
	WordBits = 256
	// WordBytes is the number of bytes in a bitfield word.
	WordBytes = WordBits / 8
)

var (
	ErrInvalidBitfieldLength  = errors.New("invalid bitfield length")
	ErrInsufficientSetBits    = errors.New("insufficient set bits in bitfield")
	ErrInvalidBitfieldPadding = errors.New("bitfield padding bits are set")
)

// Bitfield is a sequence of 256-bit big-endian words, the byte layout of a
// Solidity uint256[]. Bit i lives in word i/256 at bit position i%256 of
// that word's integer value.
type Bitfield []byte

// ContainerLength returns the number of words needed to hold length bits.
func ContainerLength(length uint64) uint64 {
	return (length + WordBits - 1) / WordBits
}

// New returns a Bitfield initialized from the Solidity representation of a Bitfield (an array of uint256). See below:
// https://github.com/Snowfork/snowbridge/blob/18c6225b21782170156729d54a35404d876a2c7b/ethereum/contracts/utils/Bitfield.sol
func New(input []*big.Int) Bitfield {
	result := make(Bitfield, WordBytes*len(input))
	for i, chunk := range input {
		if chunk == nil {
			continue
		}
		chunk.FillBytes(result[i*WordBytes : (i+1)*WordBytes])
	}
	return result
}

// Empty returns a zeroed bitfield with capacity for length bits.
func Empty(length uint64) Bitfield {
	return make(Bitfield, ContainerLength(length)*WordBytes)
}

// FromMembers returns a bitfield with capacity for length bits and the given
// indices set. Indices at or beyond length are ignored.
func FromMembers(length uint64, members []uint64) Bitfield {
	b := Empty(length)
	for _, index := range members {
		if index < length {
			b.Set(index)
		}
	}
	return b
}

// FromWords builds a bitfield from raw 32 byte big-endian words.
func FromWords(words [][32]byte) Bitfield {
	result := make(Bitfield, 0, WordBytes*len(words))
	for _, word := range words {
		result = append(result, word[:]...)
	}
	return result
}

// Words returns the number of 256-bit words in the bitfield.
func (b Bitfield) Words() uint64 {
	return uint64(len(b)) / WordBytes
}

// Capacity returns the number of addressable bits.
func (b Bitfield) Capacity() uint64 {
	return b.Words() * WordBits
}

// BigInts returns the Solidity representation of the bitfield.
func (b Bitfield) BigInts() []*big.Int {
	words := make([]*big.Int, b.Words())
	for i := range words {
		words[i] = new(big.Int).SetBytes(b[i*WordBytes : (i+1)*WordBytes])
	}
	return words
}

func (b Bitfield) locate(index uint64) (int, byte, bool) {
	if index >= b.Capacity() {
		return 0, 0, false
	}
	word := index >> 8
	offset := word*WordBytes + (WordBytes - 1 - (index/8)%WordBytes)
	return int(offset), byte(1) << (index % 8), true
}

// IsSet reports whether the bit at index is set. Bits beyond the capacity
// are reported as unset.
func (b Bitfield) IsSet(index uint64) bool {
	offset, mask, ok := b.locate(index)
	if !ok {
		return false
	}
	return b[offset]&mask != 0
}

// Set sets the bit at index. Indices beyond the capacity are ignored.
func (b Bitfield) Set(index uint64) {
	if offset, mask, ok := b.locate(index); ok {
		b[offset] |= mask
	}
}

// Unset clears the bit at index. Indices beyond the capacity are ignored.
func (b Bitfield) Unset(index uint64) {
	if offset, mask, ok := b.locate(index); ok {
		b[offset] &^= mask
	}
}

// CountSetBits returns the number of set bits.
func (b Bitfield) CountSetBits() uint64 {
	var count int
	for _, bz := range b {
		count += bits.OnesCount8(bz)
	}
	return uint64(count)
}

// Members returns the set bits in the bitfield
func (b Bitfield) Members() []uint64 {
	results := []uint64{}
	for i := uint64(0); i < b.Capacity(); i++ {
		if b.IsSet(i) {
			results = append(results, i)
		}
	}
	return results
}

// Clone returns a copy that shares no memory with b.
func (b Bitfield) Clone() Bitfield {
	return append(Bitfield{}, b...)
}

// Hash returns keccak256 over the packed words.
func (b Bitfield) Hash() [32]byte {
	return keccak.Sum(b)
}

// Validate checks the bitfield is shaped for a validator set of the given
// length, carries at least minRequired set bits and has no padding bits set.
func (b Bitfield) Validate(length, minRequired uint64) error {
	if uint64(len(b))%WordBytes != 0 || b.Words() != ContainerLength(length) {
		return ErrInvalidBitfieldLength
	}

	if b.CountSetBits() < minRequired {
		return ErrInsufficientSetBits
	}

	for i := length; i < b.Capacity(); i++ {
		if b.IsSet(i) {
			return ErrInvalidBitfieldPadding
		}
	}

	return nil
}

// MarshalJSON encodes the bitfield as an array of 0x-prefixed 32 byte words.
func (b Bitfield) MarshalJSON() ([]byte, error) {
	words := make([]string, b.Words())
	for i := range words {
		words[i] = hexutil.Encode(b[i*WordBytes : (i+1)*WordBytes])
	}
	return json.Marshal(words)
}

// UnmarshalJSON decodes an array of hex words. Words shorter than 32 bytes are
// left padded, as big-endian integers.
func (b *Bitfield) UnmarshalJSON(data []byte) error {
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return err
	}

	result := make(Bitfield, WordBytes*len(words))
	for i, word := range words {
		bz, err := hexutil.Decode(word)
		if err != nil {
			return fmt.Errorf("decode bitfield word %d: %w", i, err)
		}
		if len(bz) > WordBytes {
			return fmt.Errorf("bitfield word %d is %d bytes long", i, len(bz))
		}
		copy(result[(i+1)*WordBytes-len(bz):(i+1)*WordBytes], bz)
	}
	*b = result
	return nil
}
