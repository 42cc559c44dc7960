// Command kage scans web pages for dark patterns.
package main

import (
	"os"

	"github.com/raysh454/kage/internal/cli"
	"github.com/raysh454/kage/internal/fetcher"
)

func main() {
	fetcher.RegisterDefaultBackends()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
