// Command viewq resolves view queries against a client store from the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/viewq/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
