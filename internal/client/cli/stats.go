package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd(s *session) *cobra.Command {
	var (
		months int
		team   bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show monthly hours and review counts",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			if team {
				return a.TeamStats(cmd.Context(), months)
			}
			return a.Stats(cmd.Context(), months)
		}),
	}
	cmd.Flags().IntVar(&months, "months", 6, "number of months to show")
	cmd.Flags().BoolVar(&team, "team", false, "show your team instead of yourself (supervisors)")
	return cmd
}

func teamCmd(s *session) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "team",
		Short: "List the timesheets of your staff (supervisors)",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			rep, err := a.analytics.TeamTimesheets(cmd.Context(), status)
			if err != nil {
				return err
			}
			a.cachedNote(rep.Cached)
			fmt.Fprintln(a.out, renderTeamTimesheets(rep.Data))
			return nil
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "only show timesheets in this status")
	return cmd
}

func (a *App) Stats(ctx context.Context, months int) error {
	rep, err := a.analytics.Monthly(ctx, months)
	if err != nil {
		return err
	}
	a.cachedNote(rep.Cached)
	fmt.Fprintln(a.out, renderMonthly(rep.Data, false))
	return nil
}

func (a *App) TeamStats(ctx context.Context, months int) error {
	stats, err := a.analytics.TeamStatistics(ctx)
	if err != nil {
		return err
	}
	monthly, err := a.analytics.TeamMonthly(ctx, months)
	if err != nil {
		return err
	}
	a.cachedNote(stats.Cached || monthly.Cached)
	fmt.Fprintln(a.out, renderTeamStatistics(stats.Data))
	fmt.Fprintln(a.out, renderMonthly(monthly.Data, true))
	return nil
}

func (a *App) cachedNote(cached bool) {
	if cached {
		fmt.Fprintln(a.out, "Server unreachable: showing cached data")
	}
}
