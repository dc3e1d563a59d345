package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dmitrijs2005/timekeeper/internal/client/statusapi"
	"github.com/dmitrijs2005/timekeeper/internal/client/tui"
	"github.com/spf13/cobra"
)

func watchCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show a live sync status view and sync on reconnect",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			wait := a.Start(ctx)
			defer wait()
			defer cancel()

			p := tea.NewProgram(
				tui.New(a.monitor, a.engine, a.notices.C, a.config.StatusPollInterval),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err := p.Run()
			if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
				return nil
			}
			return err
		}),
	}
}

func serveCmd(s *session) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync loop and the local status API until interrupted",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.config.StatusAddr = addr
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			wait := a.Start(ctx)
			defer wait()
			defer cancel()

			srv := statusapi.NewServer(a.config.StatusAddr, a.monitor, a.engine, a.timesheets, a.logger)
			return srv.Run(ctx)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address of the status API")
	return cmd
}
