package client

import (
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/financelm/internal/tui"
)

// ChatCmd opens the terminal chat.
func ChatCmd() *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive question answering in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := flags.filters()
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return tui.Run(api, flags.topK, filters)
		},
	}

	flags.register(cmd)

	return cmd
}
