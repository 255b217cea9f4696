// Command vidtui plays videos into a native window from a terminal UI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vidtui:", err)
		os.Exit(1)
	}
}
