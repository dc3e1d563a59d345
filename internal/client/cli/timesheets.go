package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
	"github.com/spf13/cobra"
)

func createCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "create <year> <month>",
		Short: "Create a timesheet for a month",
		Args:  cobra.ExactArgs(2),
		RunE: s.run(func(a *App, cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year %q: %w", args[0], err)
			}
			month, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("month %q: %w", args[1], err)
			}
			return a.Create(cmd.Context(), year, month)
		}),
	}
}

func submitCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <id>",
		Short: "Submit a timesheet for review",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(a *App, cmd *cobra.Command, args []string) error {
			res, err := a.timesheets.Submit(cmd.Context(), args[0])
			return a.report(res, err, "submitted")
		}),
	}
}

func updateCmd(s *session) *cobra.Command {
	var (
		status string
		notes  string
		hours  int
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a timesheet",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(a *App, cmd *cobra.Command, args []string) error {
			var u models.TimesheetUpdate
			if cmd.Flags().Changed("status") {
				u.Status = &status
			}
			if cmd.Flags().Changed("notes") {
				u.ReviewNotes = &notes
			}
			if cmd.Flags().Changed("hours") {
				u.TotalHours = &hours
			}
			res, err := a.timesheets.Update(cmd.Context(), args[0], u)
			return a.report(res, err, "updated")
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&notes, "notes", "", "review notes")
	cmd.Flags().IntVar(&hours, "hours", 0, "total hours")
	return cmd
}

func approveCmd(s *session) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a submitted timesheet",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(a *App, cmd *cobra.Command, args []string) error {
			res, err := a.timesheets.Approve(cmd.Context(), args[0], notes)
			return a.report(res, err, "approved")
		}),
	}
	cmd.Flags().StringVar(&notes, "notes", "", "review notes")
	return cmd
}

func rejectCmd(s *session) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a submitted timesheet",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(a *App, cmd *cobra.Command, args []string) error {
			res, err := a.timesheets.Reject(cmd.Context(), args[0], notes)
			return a.report(res, err, "rejected")
		}),
	}
	cmd.Flags().StringVar(&notes, "notes", "", "reason for the rejection")
	_ = cmd.MarkFlagRequired("notes")
	return cmd
}

func listCmd(s *session) *cobra.Command {
	var (
		local  bool
		review bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List timesheets",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				items []*models.CachedEntity
				err   error
			)
			switch {
			case local:
				items, err = a.timesheets.ListLocal(ctx)
			case review:
				items, err = a.timesheets.PendingReview(ctx)
			default:
				items, err = a.timesheets.List(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, renderTimesheets(items))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&local, "local", false, "show the local copy without contacting the server")
	cmd.Flags().BoolVar(&review, "pending-review", false, "show timesheets waiting for your review")
	cmd.MarkFlagsMutuallyExclusive("local", "pending-review")
	return cmd
}

func (a *App) Create(ctx context.Context, year, month int) error {
	res, err := a.timesheets.Create(ctx, year, month)
	return a.report(res, err, "created")
}

// report prints the outcome of a mutation.
func (a *App) report(res services.Result, err error, verb string) error {
	if err != nil {
		return err
	}
	id := ""
	if res.Timesheet != nil {
		id = res.Timesheet.ID
	}
	if res.Queued {
		fmt.Fprintf(a.out, "Server unreachable: timesheet %s %s locally, change #%d queued for sync\n", id, verb, res.ActionID)
		return nil
	}
	fmt.Fprintf(a.out, "Timesheet %s %s\n", id, verb)
	return nil
}
