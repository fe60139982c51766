package main

import (
	"os"

	"github.com/tripsmart/server/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
