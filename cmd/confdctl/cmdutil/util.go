// Package cmdutil provides shared utilities for confdctl commands.
// Grounded on the teacher's cmd/dittofsctl/cmdutil package, narrowed
// from its REST+JSON/YAML output modes and credential store down to
// this CLI's single transport (the IPC frame connection) and single
// output mode (table).
package cmdutil

import (
	"fmt"
	"os"

	"github.com/yangconf/confd/internal/cliutil/output"
	"github.com/yangconf/confd/internal/cliutil/prompt"
	"github.com/yangconf/confd/internal/confdclient"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values bound by the root command.
type GlobalFlags struct {
	Network string
	Address string
	Verbose bool
}

// GetClient dials the agent's IPC listener using the current global
// flags.
func GetClient() (*confdclient.Client, error) {
	if Flags.Address == "" {
		return nil, fmt.Errorf("no agent address configured; pass --address or set CONFDCTL_ADDRESS")
	}
	return confdclient.Dial(Flags.Network, Flags.Address)
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(msg)
}

// PrintTable renders data as a table, or emptyMsg if there is nothing
// to show.
func PrintTable(data output.TableRenderer, isEmpty bool, emptyMsg string) error {
	if isEmpty {
		fmt.Println(emptyMsg)
		return nil
	}
	return output.PrintTable(os.Stdout, data)
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is
// true) and runs deleteFn.
func RunDeleteWithConfirmation(resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s %q?", resourceType, name), force)
	if err != nil {
		return HandleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}
	if err := deleteFn(); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("%s %q deleted", resourceType, name))
	return nil
}

// HandleAbort turns a prompt abort into a clean nil return, printing a
// message; any other error passes through unchanged.
func HandleAbort(err error) error {
	if err == prompt.ErrAborted {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
