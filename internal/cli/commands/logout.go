package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context())
		},
	}
}

func runLogout(ctx context.Context, opts ...Option) error {
	o, err := resolve(opts...)
	if err != nil {
		return err
	}
	session, _, err := o.session()
	if err != nil {
		return err
	}

	if err := session.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	// The provider refresh token would re-establish the session on the
	// next bootstrap; forget it along with the access token
	if o.refreshStore != nil {
		if err := o.refreshStore.Clear(); err != nil {
			return fmt.Errorf("failed to clear provider refresh token: %w", err)
		}
	}

	fmt.Println("✓ Logged out.")
	return nil
}
