package main

import (
	"os"

	"github.com/Josephvarghes/Edu-Stack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
