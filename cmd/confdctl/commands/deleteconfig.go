package commands

import (
	"github.com/spf13/cobra"

	"github.com/yangconf/confd/cmd/confdctl/cmdutil"
)

var deleteConfigForce bool

var deleteConfigCmd = &cobra.Command{
	Use:   "delete-config <datastore>",
	Short: "Delete a datastore entirely",
	Long: `Delete the named datastore's on-disk file and cache entry. The
running datastore may not be deleted this way; use edit-config to
clear it instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.GetClient()
		if err != nil {
			return err
		}
		defer client.Close()

		return cmdutil.RunDeleteWithConfirmation("datastore", args[0], deleteConfigForce, func() error {
			return client.DeleteConfig(args[0])
		})
	},
}

func init() {
	deleteConfigCmd.Flags().BoolVarP(&deleteConfigForce, "force", "f", false, "skip confirmation prompt")
}
