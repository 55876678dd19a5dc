// Command alertd watches sensor readings of the selected dashboard device
// and raises alerts when user-defined thresholds are crossed.
package main

import (
	"fmt"
	"os"
)

// Set by the linker: -ldflags "-X main.version=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
