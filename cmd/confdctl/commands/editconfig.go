package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yangconf/confd/cmd/confdctl/cmdutil"
	"github.com/yangconf/confd/internal/serial"
)

var (
	editConfigFile      string
	editConfigDefaultOp string
)

var editConfigCmd = &cobra.Command{
	Use:   "edit-config <datastore>",
	Short: "Apply a configuration edit to a datastore",
	Long: `Apply the <config> tree read from --file to the named datastore,
using --default-operation (merge, replace, none) as the root operation
unless an element overrides it with its own "operation" attribute.

Examples:
  confdctl edit-config candidate --file edit.xml
  confdctl edit-config candidate --file edit.xml --default-operation replace`,
	Args: cobra.ExactArgs(1),
	RunE: runEditConfig,
}

func init() {
	editConfigCmd.Flags().StringVar(&editConfigFile, "file", "", "path to the <config> document to apply")
	editConfigCmd.Flags().StringVar(&editConfigDefaultOp, "default-operation", "", "root edit operation (merge|replace|none)")
	editConfigCmd.MarkFlagRequired("file")
}

func runEditConfig(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(editConfigFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", editConfigFile, err)
	}

	tree, err := (serial.XMLCodec{}).Decode(strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("parse %s: %w", editConfigFile, err)
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.EditConfig(args[0], editConfigDefaultOp, tree); err != nil {
		return fmt.Errorf("edit-config failed: %w", err)
	}
	cmdutil.PrintSuccess(fmt.Sprintf("configuration applied to %q", args[0]))
	return nil
}
