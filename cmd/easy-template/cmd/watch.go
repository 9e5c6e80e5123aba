package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/GV888/easy-template-mcp/internal/watch"
)

var (
	watchOnce    bool
	historyLimit int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll seller events and forward them to the configured notifier",
	RunE:  runWatch,
}

var watchHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded seller-event polls",
	RunE:  runWatchHistory,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "poll once and exit")
	watchHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of polls to list")
	watchCmd.AddCommand(watchHistoryCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	if err := cfg.ValidateForWatch(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	a.autoLogin(ctx)
	w := a.newWatcher()

	if watchOnce {
		n, err := w.Poll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d seller event(s) forwarded\n", n)
		return nil
	}

	// Cron's first run is one interval out; poll right away as well.
	if _, err := w.Poll(ctx); err != nil {
		log.Error("initial seller-event poll failed", "error", err)
	}

	sched, err := watch.NewScheduler(w, cfg.Watch.Interval, log)
	if err != nil {
		return fmt.Errorf("scheduling watcher: %w", err)
	}
	sched.Start()

	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}

func runWatchHistory(_ *cobra.Command, _ []string) error {
	if err := cfg.ValidateForDatabase(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if a.store == nil {
		return errors.New("watch history needs a database")
	}

	batches, err := a.store.ListSellerEvents(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("listing seller events: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSINCE\tPOLLED\tNOTIFIED\tBYTES")
	for _, b := range batches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%d\n",
			b.ID,
			b.Since.Format(time.RFC3339),
			b.PolledAt.Format(time.RFC3339),
			b.Notified,
			len(b.Payload),
		)
	}
	return tw.Flush()
}
