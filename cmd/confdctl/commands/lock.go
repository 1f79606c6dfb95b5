package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yangconf/confd/cmd/confdctl/cmdutil"
)

var lockCmd = &cobra.Command{
	Use:   "lock <datastore>",
	Short: "Take the advisory lock on a datastore",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.GetClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Lock(args[0]); err != nil {
			return fmt.Errorf("lock failed: %w", err)
		}
		cmdutil.PrintSuccess(fmt.Sprintf("%q locked (session %d)", args[0], client.SessionID()))
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <datastore>",
	Short: "Release the advisory lock on a datastore",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.GetClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Unlock(args[0]); err != nil {
			return fmt.Errorf("unlock failed: %w", err)
		}
		cmdutil.PrintSuccess(fmt.Sprintf("%q unlocked", args[0]))
		return nil
	},
}
