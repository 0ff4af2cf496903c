package main

import (
	"fmt"
	"os"

	"photodock/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		code := exitCode(err)
		if code != exitCanceled {
			fmt.Fprintf(os.Stderr, "photodock: %v\n", err)
		}
		os.Exit(code)
	}
}

const (
	exitFailure  = 1
	exitUsage    = 2
	exitInput    = 3
	exitCanceled = 130
)

// exitCode maps an error's kind to a process exit status so scripts can tell
// bad configuration and bad input apart from infrastructure failures.
func exitCode(err error) int {
	switch services.Kind(err) {
	case "":
		return 0
	case "configuration", "validation":
		return exitUsage
	case "archive", "image_load":
		return exitInput
	case "canceled":
		return exitCanceled
	default:
		return exitFailure
	}
}
