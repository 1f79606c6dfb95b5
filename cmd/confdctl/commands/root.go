// Package commands implements the CLI commands for confdctl.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yangconf/confd/cmd/confdctl/cmdutil"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "confdctl",
	Short: "confd control - NETCONF configuration client",
	Long: `confdctl is the command-line client for cmd/confd, the YANG/NETCONF
configuration agent. It talks to the agent over its IPC listener,
issuing the same get-config/edit-config/lock/unlock/copy-config/
delete-config operations a NETCONF manager would.

Use "confdctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.Network, _ = cmd.Flags().GetString("network")
		cmdutil.Flags.Address, _ = cmd.Flags().GetString("address")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("network", "unix", "Transport network for the agent connection (unix|tcp)")
	rootCmd.PersistentFlags().String("address", defaultAddress(), "Agent IPC address")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(getConfigCmd)
	rootCmd.AddCommand(editConfigCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(copyConfigCmd)
	rootCmd.AddCommand(deleteConfigCmd)
	rootCmd.AddCommand(upgradeDatastoreCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func defaultAddress() string {
	if addr := os.Getenv("CONFDCTL_ADDRESS"); addr != "" {
		return addr
	}
	return "/var/run/confd/confd.sock"
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("confdctl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
