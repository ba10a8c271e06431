package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type productListing struct {
	Products []struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		Price    int64   `json:"price"`
		Winrate  float64 `json:"winrate"`
		Category struct {
			Name string `json:"name"`
		} `json:"category"`
	} `json:"products"`
}

// NewProductsCmd creates the products command
func NewProductsCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"ls"},
		Short:   "List available products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProducts(cmd.Context(), category)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category slug")

	return cmd
}

func runProducts(ctx context.Context, category string, opts ...Option) error {
	_, apiClient, err := newSession(opts...)
	if err != nil {
		return err
	}

	endpoint := "/api/products"
	if category != "" {
		endpoint += "?category=" + category
	}

	var listing productListing
	if err := apiClient.Get(ctx, endpoint, &listing); err != nil {
		return err
	}

	if len(listing.Products) == 0 {
		fmt.Println("No products found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tWINRATE\tCATEGORY")
	fmt.Fprintln(w, "──\t────\t─────\t───────\t────────")

	for _, p := range listing.Products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%s\n",
			p.ID,
			p.Title,
			formatPrice(p.Price),
			p.Winrate,
			p.Category.Name,
		)
	}

	w.Flush()
	return nil
}
