package cli

import (
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/spf13/cobra"
)

func feedbackCmd(s *session) *cobra.Command {
	var (
		f      models.Feedback
		rating float64
	)
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Send feedback about the app",
		Args:  cobra.NoArgs,
		RunE: s.run(func(a *App, cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("rating") {
				f.Rating = &rating
			}
			res, err := a.feedback.Submit(cmd.Context(), f)
			if err != nil {
				return err
			}
			if res.Queued {
				fmt.Fprintf(a.out, "Server unreachable: feedback queued for sync (change #%d)\n", res.ActionID)
				return nil
			}
			fmt.Fprintln(a.out, "Thanks for the feedback")
			return nil
		}),
	}
	cmd.Flags().StringVar(&f.Category, "category", "app", "app, feature, bug or suggestion")
	cmd.Flags().StringVar(&f.Type, "type", "comment", "rating, comment or feature_request")
	cmd.Flags().StringVar(&f.Title, "title", "", "short summary")
	cmd.Flags().StringVar(&f.Description, "description", "", "details")
	cmd.Flags().Float64Var(&rating, "rating", 0, "rating from 1 to 5")
	return cmd
}
