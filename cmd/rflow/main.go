// Command rflow is the entrypoint for the workflow runner. Grounded on
// the teacher's cmd/scriptweaver/main.go: parse, execute, map the
// resulting error onto an exit code.
package main

import (
	"fmt"
	"os"

	"github.com/otaviog/rflow/internal/cli"
)

func main() {
	root := cli.NewRootCommand(cli.Options{Stdout: os.Stdout, Stderr: os.Stderr})
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCodeFor(err))
}
