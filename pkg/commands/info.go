package commands

import (
	"os"

	"github.com/spf13/cobra"

	"tableflip.dev/acctview/pkg/runner/info"
)

func addInfo(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Details about the configuration and where accounts are stored.",
		Example: `
acctview info
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			env, err := load(os.Stderr)
			if err != nil {
				return err
			}
			defer env.close()

			s := info.Info{
				Config: env.cfg,
				Disk:   env.disk,
				Out:    cmd.OutOrStdout(),
			}
			err = s.Do(cmd.Context())
			return output.HandleError(err)
		},
	}

	topLevel.AddCommand(cmd)
}
