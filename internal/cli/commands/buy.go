package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type initiatePaymentRequest struct {
	ProductID      string `json:"product_id"`
	Gateway        string `json:"gateway,omitempty"`
	CryptoCurrency string `json:"crypto_currency,omitempty"`
	DiscountCode   string `json:"discount_code,omitempty"`
}

type initiatePaymentResult struct {
	RefID          string `json:"ref_id"`
	OriginalPrice  int64  `json:"original_price"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalPrice     int64  `json:"final_price"`
	Status         string `json:"status"`
	BankAccount    *struct {
		BankName      string `json:"bank_name"`
		AccountHolder string `json:"account_holder"`
		IBAN          string `json:"iban"`
	} `json:"bank_account"`
	CryptoAddress  string `json:"crypto_address"`
	CryptoCurrency string `json:"crypto_currency"`
	Message        string `json:"message"`
}

// NewBuyCmd creates the buy command
func NewBuyCmd() *cobra.Command {
	var gateway, currency, discount string

	cmd := &cobra.Command{
		Use:   "buy <product-id>",
		Short: "Start a purchase and print payment instructions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuy(cmd.Context(), args[0], gateway, currency, discount)
		},
	}

	cmd.Flags().StringVar(&gateway, "gateway", "manual", "Payment gateway: manual or crypto")
	cmd.Flags().StringVar(&currency, "currency", "", "Crypto currency (required for the crypto gateway)")
	cmd.Flags().StringVar(&discount, "discount", "", "Discount code")

	return cmd
}

func runBuy(ctx context.Context, productID, gateway, currency, discount string, opts ...Option) error {
	_, apiClient, err := newSession(opts...)
	if err != nil {
		return err
	}

	var result initiatePaymentResult
	err = apiClient.Post(ctx, "/api/payments/initiate", initiatePaymentRequest{
		ProductID:      productID,
		Gateway:        gateway,
		CryptoCurrency: currency,
		DiscountCode:   discount,
	}, &result)
	if err != nil {
		return fmt.Errorf("purchase failed: %w", err)
	}

	fmt.Println("✓ Purchase initiated!")
	fmt.Printf("  Reference: %s\n", result.RefID)
	if result.DiscountAmount > 0 {
		fmt.Printf("  Price: %s (%s off)\n", formatPrice(result.FinalPrice), formatPrice(result.DiscountAmount))
	} else {
		fmt.Printf("  Price: %s\n", formatPrice(result.FinalPrice))
	}

	if result.BankAccount != nil {
		fmt.Println("\nTransfer the amount to:")
		fmt.Printf("  Bank:    %s\n", result.BankAccount.BankName)
		fmt.Printf("  Holder:  %s\n", result.BankAccount.AccountHolder)
		fmt.Printf("  IBAN:    %s\n", result.BankAccount.IBAN)
	}
	if result.CryptoAddress != "" {
		fmt.Printf("\nSend %s to:\n  %s\n", result.CryptoCurrency, result.CryptoAddress)
	}
	if result.Message != "" {
		fmt.Printf("\n%s\n", result.Message)
	}

	return nil
}
