package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yangconf/confd/cmd/confdctl/cmdutil"
	"github.com/yangconf/confd/internal/serial"
)

var (
	upgradeNamespace    string
	upgradeOperation    string
	upgradeFromRevision string
	upgradeToRevision   string
)

var upgradeDatastoreCmd = &cobra.Command{
	Use:   "upgrade-datastore <datastore>",
	Short: "Run datastore-upgrade plugins against a module namespace",
	Long: `Invoke the agent's registered upgrade plugins (§4.5) for a module
namespace against the given datastore, reporting add/del/change of the
module between --from-revision and --to-revision. A rejecting plugin's
diagnostic is printed and the command exits non-zero.

Examples:
  confdctl upgrade-datastore running --namespace urn:example:iface --operation change --from-revision 20200101 --to-revision 20210101`,
	Args: cobra.ExactArgs(1),
	RunE: runUpgradeDatastore,
}

func init() {
	upgradeDatastoreCmd.Flags().StringVar(&upgradeNamespace, "namespace", "", "module namespace being upgraded")
	upgradeDatastoreCmd.Flags().StringVar(&upgradeOperation, "operation", "change", "edit kind: add, del, or change")
	upgradeDatastoreCmd.Flags().StringVar(&upgradeFromRevision, "from-revision", "", "on-disk module revision (YYYYMMDD)")
	upgradeDatastoreCmd.Flags().StringVar(&upgradeToRevision, "to-revision", "", "target module revision (YYYYMMDD)")
}

func runUpgradeDatastore(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}
	defer client.Close()

	nodes, err := client.UpgradeDatastore(args[0], upgradeNamespace, upgradeOperation, upgradeFromRevision, upgradeToRevision)
	if err != nil {
		for _, n := range nodes {
			var buf strings.Builder
			if encErr := (serial.XMLCodec{}).Encode(&buf, n, true); encErr == nil {
				cmd.PrintErrln(buf.String())
			}
		}
		return fmt.Errorf("upgrade-datastore failed: %w", err)
	}
	cmdutil.PrintSuccess(fmt.Sprintf("%q upgraded for namespace %q", args[0], upgradeNamespace))
	return nil
}
