// Command edix drives EDI exchange records through their lifecycle.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/edix/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "edix:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
