package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Show native library search paths and what loads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			r := a.nativeResolver()
			d := r.Descriptor()

			fmt.Fprintf(out, "Platform: %s\n", d.Platform)
			fmt.Fprintln(out, "Candidates:")
			candidates := r.Candidates()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "  (none for this platform)")
			}
			for _, c := range candidates {
				fmt.Fprintf(out, "  %s\n", c)
			}
			if d.SystemName != "" {
				fmt.Fprintf(out, "System fallback: %s\n", d.SystemName)
			}

			lib, err := r.Resolve()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Loaded: %s\n", lib.Path())
			return nil
		},
	}
}
