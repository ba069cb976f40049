package cmd

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cbroglie/mustache"
	"github.com/sirupsen/logrus"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"github.com/spf13/cobra"

	"github.com/snowfork/snowbridge/beefy-client/beefy"
	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
	"github.com/snowfork/snowbridge/beefy-client/crypto/merkle"
	"github.com/snowfork/snowbridge/beefy-client/crypto/secp256k1"
	"github.com/snowfork/snowbridge/beefy-client/substrate"
)

const checkpointTemplate = `log-level: info
verifier:
  max-required-signatures: {{maxRequiredSignatures}}
  output-byte-order: little
checkpoint:
  latest-mmr-root: "{{latestMMRRoot}}"
  latest-beefy-block: {{latestBeefyBlock}}
  current-validator-set:
    id: {{current.ID}}
    length: {{current.Length}}
    root: "{{currentRoot}}"
  next-validator-set:
    id: {{next.ID}}
    length: {{next.Length}}
    root: "{{nextRoot}}"
`

func generateFixtureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-fixture",
		Short: "Generate a checkpoint config and signed submissions for testing.",
		Long: `Generate a checkpoint config and signed submissions for testing.

Writes beefy.yaml, submission.json and rotation.json into the output
directory. The submission advances the checkpoint under the current set and
the rotation hands over to the next set.`,
		Args: cobra.ExactArgs(0),
		RunE: generateFixtureFn,
	}

	cmd.Flags().String("out-dir", ".", "Directory to write fixtures to")
	cmd.Flags().String("seed", "beefy", "Seed for deterministic validator keys")
	cmd.Flags().Int("validators", 16, "Number of validators in each set")
	cmd.Flags().Uint64("validator-set-id", 1, "ID of the current validator set")
	cmd.Flags().Uint32("block", 100, "Latest BEEFY block of the checkpoint")
	cmd.Flags().Uint64("max-required-signatures", 111, "Upper bound on sampled signatures")
	cmd.Flags().String("private-key", "", "Hex private key used as the first validator of every set")
	cmd.Flags().String("private-key-file", "", "File holding the private key used as the first validator of every set")
	return cmd
}

type fixtureParams struct {
	Seed                  string
	Validators            int
	ValidatorSetID        uint64
	Block                 uint32
	MaxRequiredSignatures uint64
	// Replaces the first validator of every set when set
	Signer *secp256k1.Keypair
}

type fixture struct {
	Checkpoint beefy.State
	Submission *beefy.Submission
	Rotation   *beefy.Submission
}

func generateFixtureFn(cmd *cobra.Command, _ []string) error {
	outDir, _ := cmd.Flags().GetString("out-dir")
	params := fixtureParams{}
	params.Seed, _ = cmd.Flags().GetString("seed")
	params.Validators, _ = cmd.Flags().GetInt("validators")
	params.ValidatorSetID, _ = cmd.Flags().GetUint64("validator-set-id")
	params.Block, _ = cmd.Flags().GetUint32("block")
	params.MaxRequiredSignatures, _ = cmd.Flags().GetUint64("max-required-signatures")

	privateKey, _ := cmd.Flags().GetString("private-key")
	privateKeyFile, _ := cmd.Flags().GetString("private-key-file")
	if privateKey != "" || privateKeyFile != "" {
		signer, err := secp256k1.ResolvePrivateKey(privateKey, privateKeyFile)
		if err != nil {
			return err
		}
		params.Signer = signer
	}

	f, err := generateFixture(params)
	if err != nil {
		return err
	}

	config, err := renderCheckpoint(f.Checkpoint, params.MaxRequiredSignatures)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "beefy.yaml"), []byte(config), 0o644); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(outDir, "submission.json"), f.Submission); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(outDir, "rotation.json"), f.Rotation); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"location":       outDir,
		"validators":     params.Validators,
		"validatorSetID": params.ValidatorSetID,
	}).Info("wrote fixtures")

	return nil
}

func generateFixture(params fixtureParams) (*fixture, error) {
	if params.Validators <= 0 {
		return nil, fmt.Errorf("validator count must be positive")
	}
	opts := beefy.Options{MaxRequiredSignatures: params.MaxRequiredSignatures}

	keys := func(name string) []*secp256k1.Keypair {
		keypairs := secp256k1.Validators(params.Seed+"/"+name, params.Validators)
		if params.Signer != nil {
			keypairs[0] = params.Signer
		}
		return keypairs
	}
	current := keys("current")
	next := keys("next")
	following := keys("following")

	currentSet, err := beefy.ValidatorSetFromAuthorities(params.ValidatorSetID, authorities(current))
	if err != nil {
		return nil, err
	}
	nextSet, err := beefy.ValidatorSetFromAuthorities(params.ValidatorSetID+1, authorities(next))
	if err != nil {
		return nil, err
	}
	followingSet, err := beefy.ValidatorSetFromAuthorities(params.ValidatorSetID+2, authorities(following))
	if err != nil {
		return nil, err
	}

	checkpoint := beefy.State{
		LatestMMRRoot:       mmrRoot(params.Seed, params.Block),
		LatestBeefyBlock:    uint64(params.Block),
		CurrentValidatorSet: currentSet,
		NextValidatorSet:    nextSet,
	}

	// A commitment from the current set
	root := mmrRoot(params.Seed, params.Block+1)
	request := beefy.Request{
		Validators: authorities(current),
		SignedCommitment: signCommitment(current, types.Commitment{
			Payload:        []types.PayloadItem{{ID: beefy.MMRRootID, Data: root[:]}},
			BlockNumber:    params.Block + 1,
			ValidatorSetID: currentSet.ID,
		}),
	}
	submission, err := request.MakeSubmission(checkpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("make submission: %w", err)
	}
	advanced, _, err := beefy.Verify(checkpoint, submission, opts)
	if err != nil {
		return nil, fmt.Errorf("verify submission: %w", err)
	}

	// A handover signed by the next set. The leaf announcing the following
	// set is the middle leaf of a three leaf MMR
	//
	//	    2
	//	   / \
	//	  0   1   3
	//
	// and its raw proof (sibling, then the bagged right peak) is converted
	// to the ordered form the verifier folds.
	parentHash := keccak.Sum([]byte(params.Seed), []byte("parent"))
	var leaf types.MMRLeaf
	leaf.ParentNumberAndHash.ParentNumber = types.U32(params.Block + 1)
	leaf.ParentNumberAndHash.Hash = types.Hash(parentHash)
	leaf.BeefyNextAuthoritySet.ID = types.U64(followingSet.ID)
	leaf.BeefyNextAuthoritySet.Len = types.U32(followingSet.Length)
	leaf.BeefyNextAuthoritySet.Root = types.H256(followingSet.Root)

	handover := beefy.Request{
		Validators: authorities(next),
		IsHandover: true,
	}
	handover.Proof.Leaf = leaf
	handoverLeaf := handover.HandoverLeaf()

	first := keccak.Sum([]byte(params.Seed), []byte("mmr leaf 0"))
	last := keccak.Sum([]byte(params.Seed), []byte("mmr leaf 2"))
	rotationRoot := keccak.Pair(last, keccak.Pair(first, beefy.HashMMRLeaf(&handoverLeaf)))

	handover.Proof, err = merkle.ConvertToSimplifiedMMRProof(types.H256(parentHash), 1, leaf, 3, []types.H256{first, last})
	if err != nil {
		return nil, fmt.Errorf("convert mmr proof: %w", err)
	}
	handover.SignedCommitment = signCommitment(next, types.Commitment{
		Payload:        []types.PayloadItem{{ID: beefy.MMRRootID, Data: rotationRoot[:]}},
		BlockNumber:    params.Block + 2,
		ValidatorSetID: nextSet.ID,
	})
	rotation, err := handover.MakeSubmission(advanced, opts)
	if err != nil {
		return nil, fmt.Errorf("make rotation: %w", err)
	}
	if _, _, err := beefy.Verify(advanced, rotation, opts); err != nil {
		return nil, fmt.Errorf("verify rotation: %w", err)
	}

	return &fixture{
		Checkpoint: checkpoint,
		Submission: submission,
		Rotation:   rotation,
	}, nil
}

func authorities(keypairs []*secp256k1.Keypair) []substrate.Authority {
	result := make([]substrate.Authority, len(keypairs))
	for i, kp := range keypairs {
		result[i] = substrate.Authority(kp.CompressedPublicKey())
	}
	return result
}

func mmrRoot(seed string, block uint32) [32]byte {
	var number [4]byte
	binary.BigEndian.PutUint32(number[:], block)
	return keccak.Sum([]byte(seed), []byte("mmr"), number[:])
}

// signCommitment signs with every keypair, in the relay chain's
// r || s || recovery id layout.
func signCommitment(keypairs []*secp256k1.Keypair, commitment types.Commitment) types.SignedCommitment {
	hash := beefy.HashCommitment(&beefy.Commitment{
		BlockNumber:    commitment.BlockNumber,
		ValidatorSetID: commitment.ValidatorSetID,
		Payload:        []beefy.PayloadItem{{PayloadID: commitment.Payload[0].ID, Data: commitment.Payload[0].Data}},
	})

	signatures := make([]types.OptionBeefySignature, len(keypairs))
	for i, kp := range keypairs {
		v, r, s, err := kp.Sign(hash)
		if err != nil {
			panic(err)
		}
		var sig types.BeefySignature
		copy(sig[0:32], r[:])
		copy(sig[32:64], s[:])
		sig[64] = v - 27
		signatures[i] = types.NewOptionBeefySignature(sig)
	}

	return types.SignedCommitment{Commitment: commitment, Signatures: signatures}
}

func renderCheckpoint(state beefy.State, maxRequiredSignatures uint64) (string, error) {
	rendered, err := mustache.Render(checkpointTemplate, map[string]interface{}{
		"maxRequiredSignatures": maxRequiredSignatures,
		"latestMMRRoot":         state.LatestMMRRoot.Hex(),
		"latestBeefyBlock":      state.LatestBeefyBlock,
		"current":               state.CurrentValidatorSet,
		"currentRoot":           state.CurrentValidatorSet.Root.Hex(),
		"next":                  state.NextValidatorSet,
		"nextRoot":              state.NextValidatorSet.Root.Hex(),
	})
	if err != nil {
		return "", fmt.Errorf("render checkpoint config: %w", err)
	}
	return rendered, nil
}

func writeJSONFile(path string, v interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeJSON(file, v)
}
