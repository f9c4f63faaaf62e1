// Command anactl is the operator CLI for the sales assistant.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := buildRootCommand(openFirestore).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
