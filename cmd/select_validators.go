package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/snowfork/snowbridge/beefy-client/beefy"
	"github.com/snowfork/snowbridge/beefy-client/beefy/bitfield"
)

type selectionRequest struct {
	Commitment beefy.Commitment  `json:"commitment"`
	Bitfield   bitfield.Bitfield `json:"bitfield"`
}

func selectValidatorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-validators [request.json]",
		Short: "Print the validator indices a submission must carry proofs for.",
		Long: `Print the validator indices a submission must carry proofs for.

The input is a JSON object {"commitment": ..., "bitfield": [...]} where the
bitfield marks every validator whose signature the relayer holds.`,
		Args: cobra.ExactArgs(1),
		RunE: selectValidatorsFn,
	}
	return cmd
}

func selectValidatorsFn(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var request selectionRequest
	if err := readJSON(args[0], &request); err != nil {
		return err
	}

	client, closeClient, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	indices, err := beefy.SelectValidators(client.State(), &request.Commitment, request.Bitfield, cfg.Verifier.Options())
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"blockNumber":    request.Commitment.BlockNumber,
		"validatorSetID": request.Commitment.ValidatorSetID,
		"signers":        request.Bitfield.CountSetBits(),
		"required":       len(indices),
	}).Info("Selected validators")

	return writeJSON(cmd.OutOrStdout(), indices)
}
