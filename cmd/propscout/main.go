package main

import (
	"os"

	"github.com/propscout/propscout/cmd/propscout/commands"
	"github.com/propscout/propscout/logger"
)

func main() {
	root := commands.NewRootCmd()
	err := root.Execute()
	logger.Cleanup()
	if err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
