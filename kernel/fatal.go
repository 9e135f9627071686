package kernel

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// FatalHandler receives the formatted message for an unrecoverable
// simulation error (bad magic, unknown event tag, VC buffer overflow). The
// default logs at Fatal and terminates the process, the way tw_error does.
// Tests that need
// to exercise an overflow/integrity-violation path without killing the test
// binary replace FatalHandler (see internal/testutil.CaptureFatal).
var FatalHandler = func(msg string) {
	logrus.Fatal(msg)
}

// Fatal reports an unrecoverable error tied to lp (nil if not LP-specific)
// and hands it to FatalHandler. Callers should treat this as non-returning.
func Fatal(lp LP, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if lp != nil {
		msg = fmt.Sprintf("lp %d: %s", lp.GID(), msg)
	}
	FatalHandler(msg)
}
