package main

import (
	"os"

	"github.com/bryanchriswhite/snapmaster/cmd/snapmaster/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
