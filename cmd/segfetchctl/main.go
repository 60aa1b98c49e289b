// Command segfetchctl is the CLI shell around the segmented download
// engine — the idiomatic Go substitute for "a shell that polls the task
// handle" now that the graphical shell is out of scope. Grounded on the
// cobra entrypoints across the example pack (surge's cmd/, GoNZB's
// cmd/gonzb, TeraFetch's cmd).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "segfetchctl",
	Short: "Segmented HTTP download accelerator",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
