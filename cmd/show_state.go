package cmd

import (
	"github.com/spf13/cobra"
)

func showStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-state",
		Short: "Print the current light client state.",
		Args:  cobra.ExactArgs(0),
		RunE:  showStateFn,
	}
	return cmd
}

func showStateFn(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, closeClient, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	return writeJSON(cmd.OutOrStdout(), client.State())
}
