// Command dilogctl inspects, validates, and replays dilog trace files.
package main

import (
	"fmt"
	"os"

	"github.com/rtjones/dilog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
