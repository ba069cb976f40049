package substrate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Authority is a BEEFY authority id, a compressed secp256k1 public key.
type Authority [33]uint8

func (authority Authority) IntoEthereumAddress() (common.Address, error) {
	pub, err := crypto.DecompressPubkey(authority[:])
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// IntoEthereumAddresses converts a whole authority set, preserving order.
func IntoEthereumAddresses(authorities []Authority) ([]common.Address, error) {
	addresses := make([]common.Address, len(authorities))
	for i, authority := range authorities {
		address, err := authority.IntoEthereumAddress()
		if err != nil {
			return nil, fmt.Errorf("convert authority %d to ethereum address: %w", i, err)
		}
		addresses[i] = address
	}
	return addresses, nil
}
