// Command mlsctl analyzes an MLS export from the command line: KPIs,
// filtered exports, comparables and questions, without running the server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
