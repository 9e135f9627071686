// Package testutil provides shared test infrastructure for the modelnet
// simulator: a fatal-capture helper so kernel.Fatal paths (bad magic, VC
// buffer overflow, unknown event tags) are testable without killing the
// test binary, consolidating what would otherwise be copy-pasted into
// every package that exercises an error path.
package testutil

import (
	"testing"

	"github.com/modelnet-sim/modelnet/kernel"
)

// CaptureFatal replaces kernel.FatalHandler for the duration of the calling
// test, recording every message passed to kernel.Fatal instead of calling
// logrus.Fatal/os.Exit. The original handler is restored via t.Cleanup.
func CaptureFatal(t *testing.T) *[]string {
	t.Helper()
	var messages []string
	prev := kernel.FatalHandler
	kernel.FatalHandler = func(msg string) {
		messages = append(messages, msg)
	}
	t.Cleanup(func() { kernel.FatalHandler = prev })
	return &messages
}
