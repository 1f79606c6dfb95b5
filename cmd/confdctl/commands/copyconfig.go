package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yangconf/confd/cmd/confdctl/cmdutil"
)

var copyConfigCmd = &cobra.Command{
	Use:   "copy-config <source> <target>",
	Short: "Copy one datastore's configuration onto another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.GetClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.CopyConfig(args[0], args[1]); err != nil {
			return fmt.Errorf("copy-config failed: %w", err)
		}
		cmdutil.PrintSuccess(fmt.Sprintf("%q copied to %q", args[0], args[1]))
		return nil
	},
}
