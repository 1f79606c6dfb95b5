package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yangconf/confd/cmd/confdctl/cmdutil"
	"github.com/yangconf/confd/internal/serial"
)

var (
	getConfigSelect string
)

var getConfigCmd = &cobra.Command{
	Use:   "get-config <datastore>",
	Short: "Retrieve configuration from a datastore",
	Long: `Retrieve configuration from the named datastore (running, candidate,
or startup), optionally filtered by an xpath select expression.

Examples:
  confdctl get-config running
  confdctl get-config candidate --select "/interfaces/interface[name=\"eth0\"]"`,
	Args: cobra.ExactArgs(1),
	RunE: runGetConfig,
}

func init() {
	getConfigCmd.Flags().StringVar(&getConfigSelect, "select", "", "xpath select expression")
}

func runGetConfig(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}
	defer client.Close()

	data, err := client.GetConfig(args[0], getConfigSelect)
	if err != nil {
		return fmt.Errorf("get-config failed: %w", err)
	}

	var buf strings.Builder
	if err := (serial.XMLCodec{}).Encode(&buf, data, true); err != nil {
		return err
	}
	cmd.Println(buf.String())
	return nil
}
