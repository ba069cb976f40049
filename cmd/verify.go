package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/snowfork/snowbridge/beefy-client/beefy"
)

type verifyResult struct {
	File             string        `json:"file"`
	Index            int           `json:"index"`
	Accepted         bool          `json:"accepted"`
	Error            string        `json:"error,omitempty"`
	Class            string        `json:"class,omitempty"`
	CommitmentHash   *common.Hash  `json:"commitmentHash,omitempty"`
	LatestMMRRoot    *common.Hash  `json:"latestMMRRoot,omitempty"`
	LatestBeefyBlock uint64        `json:"latestBeefyBlock,omitempty"`
	PublicValues     hexutil.Bytes `json:"publicValues,omitempty"`
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [submission.json...]",
		Short: "Verify submissions in order, advancing the light client state.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  verifyFn,
	}

	cmd.Flags().Bool("keep-going", false, "Continue with the next submission after a rejection")
	return cmd
}

func verifyFn(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	order, err := cfg.Verifier.ByteOrder()
	if err != nil {
		return err
	}
	keepGoing, _ := cmd.Flags().GetBool("keep-going")

	client, closeClient, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	var rejected int
	for _, path := range args {
		subs, err := readSubmissions(path)
		if err != nil {
			return err
		}

		for i, sub := range subs {
			result := verifyResult{File: path, Index: i}

			output, err := client.Submit(sub)
			if err != nil {
				rejected++
				result.Error = err.Error()
				result.Class = beefy.Classify(err).String()
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
					return werr
				}
				if !keepGoing {
					return err
				}
				continue
			}

			result.Accepted = true
			result.CommitmentHash = &output.CommitmentHash
			result.LatestMMRRoot = &output.LatestMMRRoot
			result.LatestBeefyBlock = output.LatestBeefyBlock
			result.PublicValues = output.PublicValues(order)
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
		}
	}

	state := client.State()
	logrus.WithFields(logrus.Fields{
		"latestBeefyBlock":      state.LatestBeefyBlock,
		"currentValidatorSetID": state.CurrentValidatorSet.ID,
		"rejected":              rejected,
	}).Info("Finished verifying submissions")

	if rejected > 0 {
		return fmt.Errorf("%d submissions rejected", rejected)
	}
	return nil
}
