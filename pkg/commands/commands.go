package commands

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tableflip.dev/acctview/pkg/commands/options"
)

var (
	output = &options.OutputOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "acctview",
		Short: options.Wrap80("Browse accounts and their balances, and block them from the terminal."),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return runUI(cmd)
			}
			return runList(cmd, &options.ListOptions{})
		},
	}

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addUI(topLevel)
	addList(topLevel)
	addSeed(topLevel)
	addInfo(topLevel)
	addVersion(topLevel)
}
