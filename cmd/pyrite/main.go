package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/pyrite/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands print their own diagnostics and return an ExitError;
		// anything else is a cobra flag or usage error that still needs a line.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
