package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradekit-dev/tradekit/internal/client"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context())
		},
	}
}

func runWhoami(ctx context.Context, opts ...Option) error {
	session, _, err := newSession(opts...)
	if err != nil {
		return err
	}

	if err := session.Bootstrap(ctx); err != nil {
		return err
	}

	if session.State() != client.StateAuthenticated {
		fmt.Println("Not logged in. Run 'tradekit login' first.")
		return nil
	}

	user := session.User()
	fmt.Printf("%s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	if user.Role == "admin" {
		fmt.Println("Role: Admin")
	}
	return nil
}
