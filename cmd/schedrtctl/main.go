// Command schedrtctl is the operator CLI: register an app with a running
// daemon over its HTTP API or into its config file, or submit a one-off
// task and print its result, following the teacher's
// cobra.Command-per-subcommand shape.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "schedrtctl",
		Short: "Operate a schedrt daemon",
	}

	root.AddCommand(newRegisterAppCmd())
	root.AddCommand(newSubmitCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
