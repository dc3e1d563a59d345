package cli

import (
	"errors"
	"io"

	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree. Each command gets a fresh App
// that is closed when the command returns.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	s := &session{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "timekeeper",
		Short:         "Offline-first client for the timesheet tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(
		loginCmd(s),
		logoutCmd(s),
		createCmd(s),
		submitCmd(s),
		updateCmd(s),
		approveCmd(s),
		rejectCmd(s),
		listCmd(s),
		statsCmd(s),
		teamCmd(s),
		feedbackCmd(s),
		queueCmd(s),
		syncCmd(s),
		statusCmd(s),
		watchCmd(s),
		serveCmd(s),
	)
	return root
}

// session carries the streams every App of this command tree uses.
type session struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// run adapts an App method to cobra's RunE. The App is built from the
// command's flags and closed afterwards.
func (s *session) run(fn func(a *App, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := config.LoadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		a, err := NewApp(cmd.Context(), cfg, s.in, s.out, s.errOut)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, a.Close())
		}()
		return fn(a, cmd, args)
	}
}
