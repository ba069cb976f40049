package secp256k1

import (
	"fmt"
	"os"
	"strings"
)

// ResolvePrivateKey parses a hex private key given directly or, when
// privateKey is empty, read from privateKeyFile.
func ResolvePrivateKey(privateKey, privateKeyFile string) (*Keypair, error) {
	var cleanedKey string

	if privateKey == "" {
		if privateKeyFile == "" {
			return nil, fmt.Errorf("private key not supplied")
		}
		contentBytes, err := os.ReadFile(privateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load private key: %w", err)
		}
		cleanedKey = strings.TrimPrefix(strings.TrimSpace(string(contentBytes)), "0x")
	} else {
		cleanedKey = strings.TrimPrefix(privateKey, "0x")
	}

	keypair, err := NewKeypairFromString(cleanedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return keypair, nil
}
