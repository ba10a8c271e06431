package commands

import (
	"context"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var email, password, firstName, lastName string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), email, password, firstName, lastName)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (will prompt if not provided)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")

	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("first-name")
	cmd.MarkFlagRequired("last-name")

	return cmd
}

func runRegister(ctx context.Context, email, password, firstName, lastName string, opts ...Option) error {
	if password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("password is required in non-interactive mode (use --password)")
		}
		fmt.Print("Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
		fmt.Println()
	}

	session, _, err := newSession(opts...)
	if err != nil {
		return err
	}

	outcome, err := session.Register(ctx, email, password, firstName, lastName)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if outcome.ConfirmationRequired {
		fmt.Println("✓ Account created.")
		if outcome.Message != "" {
			fmt.Printf("  %s\n", outcome.Message)
		} else {
			fmt.Println("  Check your email to confirm your address before logging in.")
		}
		return nil
	}

	fmt.Println("✓ Account created and logged in!")
	fmt.Printf("  User: %s %s (%s)\n", outcome.User.FirstName, outcome.User.LastName, outcome.User.Email)
	return nil
}
