package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/tenvad/vad"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := vad.Version(a.vadOptions(cmd.Context())...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s backend)\n", v, a.cfg.Backend)
			return nil
		},
	}
}
