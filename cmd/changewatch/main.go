// Command changewatch is an example and debugging harness for the
// changewatch library: it watches one or more directories and prints
// every change event as it arrives.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "changewatch",
		Short:         "Watch directories for filesystem changes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(watchCommand())
	root.AddCommand(dedupCommand())
	return root
}
