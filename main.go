package main

import (
	"os"

	"github.com/enriqueman/articlecrew/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
