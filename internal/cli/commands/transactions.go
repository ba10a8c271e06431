package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type transactionListing struct {
	Transactions []struct {
		RefID          string    `json:"ref_id"`
		Status         string    `json:"status"`
		Gateway        string    `json:"gateway"`
		Amount         int64     `json:"amount"`
		DiscountAmount int64     `json:"discount_amount"`
		CreatedAt      time.Time `json:"created_at"`
		Product    struct {
			Title string `json:"title"`
		} `json:"product"`
	} `json:"transactions"`
}

// NewTransactionsCmd creates the transactions command
func NewTransactionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List your purchase history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransactions(cmd.Context())
		},
	}
}

func runTransactions(ctx context.Context, opts ...Option) error {
	_, apiClient, err := newSession(opts...)
	if err != nil {
		return err
	}

	var listing transactionListing
	if err := apiClient.Get(ctx, "/api/transactions", &listing); err != nil {
		return err
	}

	if len(listing.Transactions) == 0 {
		fmt.Println("No transactions yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REFERENCE\tPRODUCT\tAMOUNT\tGATEWAY\tSTATUS\tDATE")
	fmt.Fprintln(w, "─────────\t───────\t──────\t───────\t──────\t────")

	for _, tx := range listing.Transactions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.RefID,
			tx.Product.Title,
			formatPrice(tx.Amount),
			tx.Gateway,
			tx.Status,
			tx.CreatedAt.Format("2006-01-02"),
		)
	}

	w.Flush()
	return nil
}
