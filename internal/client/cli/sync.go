package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/spf13/cobra"
)

func queueCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show changes waiting to be sent to the server",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			pending, err := a.queue.Pending(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(a.out, "Nothing to sync")
				return nil
			}
			fmt.Fprintln(a.out, renderActions(pending))
			return nil
		}),
	}
}

func syncCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send queued changes to the server now",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			return a.Sync(cmd.Context())
		}),
	}
}

func statusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and sync state",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			return a.Status(cmd.Context())
		}),
	}
}

func (a *App) Sync(ctx context.Context) error {
	rep, err := a.engine.ForceSync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d sent, %d failed, %d dropped, %d waiting\n", rep.Replayed, rep.Failed, rep.Dropped, rep.Remaining)
	if rep.Aborted != nil {
		fmt.Fprintf(a.out, "Stopped early: %v\n", rep.Aborted)
	}
	a.drainNotices()
	return nil
}

func (a *App) Status(ctx context.Context) error {
	if a.config.Connectivity != config.ConnectivityOffline {
		a.checkOnline(ctx)
	}
	st, err := a.monitor.GetSyncStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderStatus(st))
	return nil
}

// drainNotices prints notices raised during a one-shot command.
func (a *App) drainNotices() {
	for {
		select {
		case n := <-a.notices.C:
			fmt.Fprintln(a.out, n.Message)
		default:
			return
		}
	}
}
