package config

import (
	"fmt"
	"os"

	apperrors "github.com/louisbranch/photos/internal/platform/errors"
)

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// ExitErr writes err to stderr and exits with the status mapped from its
// domain code.
func ExitErr(prefix string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
	os.Exit(apperrors.GetCode(err).ExitCode())
}
