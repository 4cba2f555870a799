package testhelper

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// init disables logging for tests unless explicitly enabled
func init() {
	if isTesting() {
		// Disable logging for all tests unless BLOCKSMITH_TEST_LOG is set
		if os.Getenv("BLOCKSMITH_TEST_LOG") == "" {
			zerolog.SetGlobalLevel(zerolog.Disabled)
		}
	}
}

// isTesting returns true if we're currently running tests
func isTesting() bool {
	return testing.Testing() ||
		os.Getenv("GO_TEST") != "" ||
		(len(os.Args) > 1 && os.Args[1] == "test")
}
