package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spboyer/irtcal/internal/models"
)

// Exit codes for different failure modes
const (
	ExitSuccess      = 0 // Fit converged, or --strict was not set
	ExitNotConverged = 1 // --strict and estimation stopped early
	ExitError        = 2 // Configuration, input or runtime error
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var notConverged *models.NotConvergedError
	if errors.As(err, &notConverged) {
		return ExitNotConverged
	}
	return ExitError
}
