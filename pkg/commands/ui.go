package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/acctview/pkg/runner/ui"
)

func addUI(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "open the text-based user interface",
		Example: `
acctview ui
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runUI(cmd)
		},
	}

	topLevel.AddCommand(cmd)
}

func runUI(cmd *cobra.Command) error {
	// The UI owns the terminal, so logs only go to a configured file.
	env, err := load(nil)
	if err != nil {
		return err
	}
	defer env.close()

	i := ui.UI{
		Service:     env.service(),
		MetricsAddr: env.cfg.MetricsAddr(),
		Logger:      env.log,
	}
	return i.Do(cmd.Context())
}
