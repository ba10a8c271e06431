package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tradekit-dev/tradekit/internal/provider"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set TRADEKIT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set TRADEKIT_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, email, password string, opts ...Option) error {
	// Environment variables are useful for CI
	if email == "" {
		email = os.Getenv("TRADEKIT_EMAIL")
	}
	if password == "" {
		password = os.Getenv("TRADEKIT_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or TRADEKIT_EMAIL env var)")
	}

	if password == "" {
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println()
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or TRADEKIT_PASSWORD env var)")
		}
	}

	o, err := resolve(opts...)
	if err != nil {
		return err
	}
	session, apiClient, err := o.session()
	if err != nil {
		return err
	}

	fmt.Printf("Logging in to %s...\n", apiClient.BaseURL())

	user, err := session.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	// With a provider configured, sign in there too and keep its refresh
	// token: it outlives the access token and lets a later bootstrap
	// recover the session. Best effort; backend login already succeeded.
	if o.providerURL != "" {
		if err := persistProviderRefreshToken(ctx, o, email, password); err != nil {
			fmt.Printf("  Warning: provider session not established: %v\n", err)
		}
	}

	fmt.Println("✓ Login successful!")
	fmt.Printf("  User: %s %s (%s)\n", user.FirstName, user.LastName, user.Email)
	if user.Role == "admin" {
		fmt.Println("  Role: Admin")
	}

	return nil
}

func persistProviderRefreshToken(ctx context.Context, o *options, email, password string) error {
	providerSession, err := provider.New(o.providerURL).SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	if providerSession.RefreshToken == "" {
		return nil
	}
	return o.refreshStore.Save(providerSession.RefreshToken)
}
