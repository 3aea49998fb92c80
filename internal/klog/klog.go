// Package klog is the kernel's only logging: a timestamp-prefixed writer over
// os.Stderr, the same shape as the teacher's inline
// `fmt.Fprintf(os.Stderr, "%s cpu.Push\tStack overflow error...", ...)`
// diagnostics. No structured logging library is introduced; nothing in the
// example pack reaches for one around CPU-core-shaped code this size.
package klog

import (
	"fmt"
	"os"
	"time"
)

// Fatalf prints a timestamped diagnostic naming the failing component and
// the error that stopped it, mirroring the halt-loop diagnostic every fatal
// host error (spec.md §7) produces on its way to the halt loop.
func Fatalf(component string, err error) {
	fmt.Fprintf(os.Stderr, "%s %s\tfatal: %v\n", time.Now().Format(time.RFC3339), component, err)
}

// Infof prints a timestamped informational line.
func Infof(component, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\t%s\n", time.Now().Format(time.RFC3339), component, fmt.Sprintf(format, args...))
}
