package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func loginCmd(s *session) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the access token used to talk to the server",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			return a.Login(cmd.Context(), token)
		}),
	}
	cmd.Flags().StringVar(&token, "token", "", "access token (prompted for when empty)")
	return cmd
}

func logoutCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			return a.Logout(cmd.Context())
		}),
	}
}

// Login checks token against the server when it can and stores it. Without
// a token it prompts for one.
func (a *App) Login(ctx context.Context, token string) error {
	if token == "" {
		var err error
		token, err = GetToken(a.reader, a.out)
		if err != nil {
			return err
		}
	}

	claims, err := a.authService.Login(ctx, token)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as user %s", claims.OwnerID)
	if !claims.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, " (token expires %s)", claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
