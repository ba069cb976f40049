package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/snowfork/snowbridge/beefy-client/beefy"
	"github.com/snowfork/snowbridge/beefy-client/store"
)

type historyResult struct {
	BlockNumber    uint32        `json:"blockNumber"`
	ValidatorSetID uint64        `json:"validatorSetID"`
	Valid          bool          `json:"valid"`
	Error          string        `json:"error,omitempty"`
	Class          string        `json:"class,omitempty"`
	Output         *beefy.Output `json:"output,omitempty"`
}

func verifyHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-history [history.json]",
		Short: "Verify past commitments against trusted validator sets in parallel.",
		Long: `Verify past commitments against trusted validator sets in parallel.

The input is a JSON array of {"validatorSet": ..., "submission": ...} entries.
Entries without a validator set are checked against the set persisted in the
configured store under the commitment's validator set id. State is never
advanced.`,
		Args: cobra.ExactArgs(1),
		RunE: verifyHistoryFn,
	}
	return cmd
}

func verifyHistoryFn(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var items []beefy.HistoricalSubmission
	if err := readJSON(args[0], &items); err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	if s != nil {
		defer s.Close()
	}
	if err := resolveValidatorSets(s, items); err != nil {
		return err
	}

	verifier, err := beefy.NewHistoryVerifier(cfg.Verifier.HistoryWorkers, cfg.Verifier.HistoryCacheSize, cfg.Verifier.Options())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	// Ensure clean termination upon SIGINT, SIGTERM
	eg.Go(func() error {
		notify := make(chan os.Signal, 1)
		signal.Notify(notify, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(notify)

		select {
		case <-ctx.Done():
			return nil
		case sig := <-notify:
			logrus.WithField("signal", sig.String()).Info("Received signal")
			cancel()
		}

		return nil
	})

	var results []beefy.HistoryResult
	eg.Go(func() error {
		defer cancel()
		var err error
		results, err = verifier.VerifyAll(ctx, items)
		return err
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	invalid := 0
	for i, result := range results {
		commitment := items[i].Submission.Commitment
		out := historyResult{
			BlockNumber:    commitment.BlockNumber,
			ValidatorSetID: commitment.ValidatorSetID,
			Valid:          result.Err == nil,
			Output:         result.Output,
		}
		if result.Err != nil {
			invalid++
			out.Error = result.Err.Error()
			out.Class = beefy.Classify(result.Err).String()
		}
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"total":   len(results),
		"invalid": invalid,
	}).Info("Finished verifying history")

	if invalid > 0 {
		return fmt.Errorf("%d of %d historical commitments failed verification", invalid, len(results))
	}
	return nil
}

func resolveValidatorSets(s *store.Store, items []beefy.HistoricalSubmission) error {
	for i := range items {
		if items[i].Submission == nil {
			return fmt.Errorf("entry %d has no submission", i)
		}
		if items[i].ValidatorSet.Length != 0 {
			continue
		}
		if s == nil {
			return fmt.Errorf("entry %d has no validator set and no store is configured", i)
		}
		set, err := s.ValidatorSet(items[i].Submission.Commitment.ValidatorSetID)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		items[i].ValidatorSet = set
	}
	return nil
}
