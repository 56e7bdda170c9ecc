// Command rosterctl loads a save document and prints or browses its roster.
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/simroster/internal/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, "rosterctl:", core.FormatUserError(err))
		} else {
			fmt.Fprintln(os.Stderr, "rosterctl:", err)
		}
		os.Exit(1)
	}
}
