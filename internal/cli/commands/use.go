package commands

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/tradekit-dev/tradekit/internal/cli/userconfig"
)

// NewUseCmd creates the use command, which points the CLI at an API server
func NewUseCmd() *cobra.Command {
	var providerURL string

	cmd := &cobra.Command{
		Use:   "use <api-url>",
		Short: "Select the API server to talk to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUse(args[0], providerURL)
		},
	}

	cmd.Flags().StringVar(&providerURL, "provider", "", "Auth provider URL (or set TRADEKIT_PROVIDER_URL)")

	return cmd
}

func runUse(apiURL, providerURL string) error {
	parsed, err := url.Parse(apiURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid API URL %q (want e.g. https://api.example.com)", apiURL)
	}

	if err := userconfig.SetAPIURL(apiURL); err != nil {
		return err
	}

	if providerURL != "" {
		parsed, err := url.Parse(providerURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid provider URL %q", providerURL)
		}
		if err := userconfig.SetProviderURL(providerURL); err != nil {
			return err
		}
	}

	fmt.Printf("✓ Using %s\n", apiURL)
	return nil
}
