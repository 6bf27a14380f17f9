package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/changewatch/changewatch"
)

// dedupCommand demonstrates consumer-side coalescing: a burst of events for
// the same path within the window is collapsed into the single event
// printed once the window elapses, the same debounce shape the teacher's
// (commented-out) closeWrite example used for paths lacking a native
// close-write notification.
func dedupCommand() *cobra.Command {
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "dedup [paths...]",
		Short: "Watch the given paths, coalescing rapid repeats per path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDedup(args, window)
		},
	}
	cmd.Flags().DurationVar(&window, "window", 100*time.Millisecond, "coalescing window")
	return cmd
}

func runDedup(paths []string, window time.Duration) error {
	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)

	flush := func(t changewatch.ChangeType, path string) {
		mu.Lock()
		defer mu.Unlock()
		printTime("%s %s", t, path)
		delete(timers, path)
	}

	sink := changewatch.FuncSink{
		OnChange: func(t changewatch.ChangeType, path string) {
			mu.Lock()
			existing, ok := timers[path]
			mu.Unlock()

			if ok {
				existing.Reset(window)
				return
			}

			timer := time.AfterFunc(window, func() { flush(t, path) })
			mu.Lock()
			timers[path] = timer
			mu.Unlock()
		},
		OnError: func(err error) {
			printTime("ERROR: %s", err)
		},
	}

	w, err := changewatch.New(sink)
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
