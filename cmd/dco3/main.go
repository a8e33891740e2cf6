package main

import (
	"os"

	"github.com/unbekanntes-pferd/dco3-go/cmd/dco3/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
