// Command syncprof is the thin CLI front end wiring the debugger driver to
// the synchronization profiler core. The debugger integration itself is
// treated as an external collaborator; this binary wires the driver, model
// and view together. Its trace loop reads gdb's stop records but does not
// translate them into model events, so the model only sees the final Flush.
package main

import (
	"fmt"
	"os"

	"github.com/SoftwareStartups/sync-prof/cmd/syncprof/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
