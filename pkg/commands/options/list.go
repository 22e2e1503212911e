package options

import (
	"time"

	"github.com/spf13/cobra"
)

// ListOptions
type ListOptions struct {
	ShowID  bool
	Timeout time.Duration
}

func AddListArgs(cmd *cobra.Command, o *ListOptions) {
	cmd.Flags().BoolVar(&o.ShowID, "id", false,
		"Show account ids.")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", 5*time.Second,
		Wrap80("How long to wait for accounts and balances to load."))
}
