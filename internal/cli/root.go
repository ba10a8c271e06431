package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tradekit-dev/tradekit/internal/cli/commands"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "tradekit",
	Short: "Tradekit - Digital product storefront",
	Long: `Tradekit CLI - Browse the catalog, purchase products and manage
your account and support tickets from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tradekit version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewUseCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewProductsCmd())
	rootCmd.AddCommand(commands.NewBuyCmd())
	rootCmd.AddCommand(commands.NewTransactionsCmd())
	rootCmd.AddCommand(commands.NewTicketsCmd())
	rootCmd.AddCommand(commands.NewDownloadCmd())
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
