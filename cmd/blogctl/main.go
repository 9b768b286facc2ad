package main

import (
	"os"

	"github.com/hungpv1995/blog-frontkit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
