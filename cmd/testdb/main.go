// Command testdb manages the commerce test databases outside of go test:
// building the template, bringing a database up or down and printing the
// migration plan for the flags in effect.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
