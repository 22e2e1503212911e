package commands

import (
	"os"

	"github.com/spf13/cobra"

	"tableflip.dev/acctview/pkg/commands/options"
	"tableflip.dev/acctview/pkg/runner/list"
)

func addList(topLevel *cobra.Command) {
	lo := &options.ListOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print accounts with their balances.",
		Example: `
acctview list
acctview list --id
acctview list --json
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			err := runList(cmd, lo)
			return output.HandleError(err)
		},
	}

	options.AddListArgs(cmd, lo)
	options.AddOutputArg(cmd, output)

	topLevel.AddCommand(cmd)
}

func runList(cmd *cobra.Command, lo *options.ListOptions) error {
	env, err := load(os.Stderr)
	if err != nil {
		return err
	}
	defer env.close()

	l := list.List{
		Service: env.service(),
		ShowID:  lo.ShowID,
		JSON:    output.JSON,
		Timeout: lo.Timeout,
		Out:     cmd.OutOrStdout(),
	}
	return l.Do(cmd.Context())
}
