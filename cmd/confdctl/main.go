package main

import (
	"os"

	"github.com/yangconf/confd/cmd/confdctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("%v", err)
		os.Exit(1)
	}
}
