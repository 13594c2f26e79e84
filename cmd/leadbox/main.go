// Command leadbox serves the contact form and admin dashboard and manages
// the lead database from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/leadbox/leadbox/cmd/leadbox/cli"
)

// Overridden at release time with
// -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	build := cli.BuildInfo{Version: version, Commit: commit, Date: date}
	if err := cli.Execute(build); err != nil {
		fmt.Fprintf(os.Stderr, "leadbox: %v\n", err)
		os.Exit(1)
	}
}
