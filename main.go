package main

import (
	"os"

	"github.com/personakit/persona-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
