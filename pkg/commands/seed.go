package commands

import (
	"os"

	"github.com/spf13/cobra"

	"tableflip.dev/acctview/pkg/runner/seed"
)

func addSeed(topLevel *cobra.Command) {
	reset := false

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write sample accounts and balances to the data directory.",
		Example: `
acctview seed
acctview seed --reset
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			env, err := load(os.Stderr)
			if err != nil {
				return err
			}
			defer env.close()

			s := seed.Seed{Disk: env.disk, Reset: reset, Out: cmd.OutOrStdout()}
			err = s.Do(cmd.Context())
			return output.HandleError(err)
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Erase every record before seeding.")

	topLevel.AddCommand(cmd)
}
