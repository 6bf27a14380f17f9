package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/changewatch/changewatch"
)

// printTime mirrors the teacher's debug-tool convention: a short,
// millisecond-bearing timestamp prefix, shorter than log.Print's.
func printTime(format string, a ...interface{}) {
	fmt.Printf(time.Now().Format("15:04:05.0000")+" "+format+"\n", a...)
}

func watchCommand() *cobra.Command {
	var latency time.Duration

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Watch the given paths and print every event",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(args, latency)
		},
	}
	cmd.Flags().DurationVar(&latency, "latency", 0, "coalescing latency hint (macOS only)")
	return cmd
}

func runWatch(paths []string, latency time.Duration) error {
	i := 0
	sink := changewatch.FuncSink{
		OnChange: func(t changewatch.ChangeType, path string) {
			i++
			printTime("%3d %s %s", i, t, path)
		},
		OnError: func(err error) {
			printTime("ERROR: %s", err)
		},
	}

	var opts []changewatch.Option
	if latency > 0 {
		opts = append(opts, changewatch.WithLatency(latency))
	}

	w, err := changewatch.New(sink, opts...)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close(5 * time.Second)

	if err := w.StartWatching(paths); err != nil {
		return fmt.Errorf("starting watch: %w", err)
	}

	printTime("ready; press ^C to exit")
	<-make(chan struct{})
	return nil
}
