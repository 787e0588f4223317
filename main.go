package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/tekpress/cli/cmd"
)

// version is set by the release pipeline via -ldflags.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	if err := fang.Execute(context.Background(), cmd.Root(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}
