// Package main is the single-binary entrypoint for kickoff.
package main

import "github.com/kickoff-wellness/kickoff/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
