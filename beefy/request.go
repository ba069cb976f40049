package beefy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"

	"github.com/snowfork/snowbridge/beefy-client/beefy/bitfield"
	"github.com/snowfork/snowbridge/beefy-client/crypto/merkle"
	"github.com/snowfork/snowbridge/beefy-client/substrate"
)

// Request is a signed commitment as observed on the relay chain, together
// with the authority set that signed it and, for handovers, the MMR proof of
// the leaf announcing the following set.
type Request struct {
	Validators       []substrate.Authority
	SignedCommitment types.SignedCommitment
	Proof            merkle.SimplifiedMMRProof
	IsHandover       bool
}

func toCommitment(c *types.Commitment) Commitment {
	return Commitment{
		BlockNumber:    c.BlockNumber,
		ValidatorSetID: c.ValidatorSetID,
		Payload:        toPayload(c.Payload),
	}
}

func toPayload(items []types.PayloadItem) []PayloadItem {
	payload := make([]PayloadItem, len(items))
	for i, item := range items {
		payload[i] = PayloadItem{
			PayloadID: item.ID,
			Data:      item.Data,
		}
	}
	return payload
}

func toMMRLeaf(leaf *types.MMRLeaf) MMRLeaf {
	return MMRLeaf{
		Version:              uint8(leaf.Version),
		ParentNumber:         uint32(leaf.ParentNumberAndHash.ParentNumber),
		ParentHash:           common.Hash(leaf.ParentNumberAndHash.Hash),
		NextAuthoritySetID:   uint64(leaf.BeefyNextAuthoritySet.ID),
		NextAuthoritySetLen:  uint32(leaf.BeefyNextAuthoritySet.Len),
		NextAuthoritySetRoot: common.Hash(leaf.BeefyNextAuthoritySet.Root),
		ParachainHeadsRoot:   common.Hash(leaf.ParachainHeads),
	}
}

func cleanSignature(input types.BeefySignature) (uint8, [32]byte, [32]byte) {
	// Update signature format (Polkadot uses recovery IDs 0 or 1, Eth uses 27 or 28, so we need to add 27)
	// Split signature into r, s, v and add 27 to v
	r := *(*[32]byte)(input[:32])
	s := *(*[32]byte)(input[32:64])
	v := byte(uint8(input[64]) + 27)
	return v, r, s
}

// ValidatorSetFromAuthorities commits to an authority set: the Merkle root
// over keccak256 of each authority's Ethereum address.
func ValidatorSetFromAuthorities(id uint64, authorities []substrate.Authority) (ValidatorSet, error) {
	tree, err := validatorTree(authorities)
	if err != nil {
		return ValidatorSet{}, err
	}
	return ValidatorSet{
		ID:     id,
		Length: uint64(len(authorities)),
		Root:   tree.Root(),
	}, nil
}

func validatorTree(authorities []substrate.Authority) (*merkle.Tree, error) {
	addresses, err := substrate.IntoEthereumAddresses(authorities)
	if err != nil {
		return nil, err
	}
	leaves := make([][]byte, len(addresses))
	for i, address := range addresses {
		leaves[i] = address.Bytes()
	}

	tree := merkle.NewTree()
	if err := tree.Hash(leaves); err != nil {
		return nil, fmt.Errorf("build validator tree: %w", err)
	}
	return tree, nil
}

// Commitment returns the commitment in verifier form.
func (r *Request) Commitment() Commitment {
	return toCommitment(&r.SignedCommitment.Commitment)
}

// Attendance returns the bitfield of validators that signed the commitment.
func (r *Request) Attendance() bitfield.Bitfield {
	attendance := bitfield.Empty(uint64(len(r.Validators)))
	for i, signature := range r.SignedCommitment.Signatures {
		if ok, _ := signature.Unwrap(); ok {
			attendance.Set(uint64(i))
		}
	}
	return attendance
}

// HandoverLeaf returns the MMR leaf carried by the proof in verifier form.
func (r *Request) HandoverLeaf() MMRLeaf {
	return toMMRLeaf(&r.Proof.Leaf)
}

// MakeSubmission selects the validators the verifier will sample under
// state and bundles their signatures and address proofs.
func (r *Request) MakeSubmission(state State, opts Options) (*Submission, error) {
	commitment := r.Commitment()
	attendance := r.Attendance()

	indices, err := SelectValidators(state, &commitment, attendance, opts)
	if err != nil {
		return nil, fmt.Errorf("select validators: %w", err)
	}

	tree, err := validatorTree(r.Validators)
	if err != nil {
		return nil, err
	}

	proofs := make([]ValidatorProof, 0, len(indices))
	for _, validatorIndex := range indices {
		ok, beefySig := r.SignedCommitment.Signatures[validatorIndex].Unwrap()
		if !ok {
			return nil, fmt.Errorf("signature is empty")
		}

		v, _r, s := cleanSignature(beefySig)
		account, err := r.Validators[validatorIndex].IntoEthereumAddress()
		if err != nil {
			return nil, fmt.Errorf("convert to ethereum address: %w", err)
		}

		merkleProof, err := tree.Proof(int(validatorIndex))
		if err != nil {
			return nil, fmt.Errorf("generate validator proof: %w", err)
		}
		hashes := make([]common.Hash, len(merkleProof))
		for i, item := range merkleProof {
			hashes[i] = item
		}

		proofs = append(proofs, ValidatorProof{
			V:       v,
			R:       _r,
			S:       s,
			Index:   uint32(validatorIndex),
			Account: account,
			Proof:   hashes,
		})
	}

	sub := &Submission{
		Commitment: commitment,
		Bitfield:   attendance,
		Proofs:     proofs,
	}

	if r.IsHandover {
		leaf := r.HandoverLeaf()
		sub.Leaf = &leaf
		for _, item := range r.Proof.Items() {
			sub.LeafProof = append(sub.LeafProof, item)
		}
		sub.LeafProofOrder = r.Proof.ProofOrderWord()
	}

	return sub, nil
}
