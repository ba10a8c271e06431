package payments

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tradekit-dev/tradekit/internal/config"
	"github.com/tradekit-dev/tradekit/internal/discounts"
	"github.com/tradekit-dev/tradekit/internal/models"
	"github.com/tradekit-dev/tradekit/internal/tasks"
)

var (
	// ErrProductNotFound means the product does not exist or is inactive
	ErrProductNotFound = errors.New("product not found")
	// ErrNoActiveBankAccounts means manual payment is currently unavailable
	ErrNoActiveBankAccounts = errors.New("no active bank accounts")
	// ErrUnsupportedCurrency means no wallet is configured for the requested crypto currency
	ErrUnsupportedCurrency = errors.New("unsupported crypto currency")
	// ErrTransactionNotFound means the transaction does not exist or belongs to another user
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionNotPending means the transaction already settled and cannot be confirmed
	ErrTransactionNotPending = errors.New("transaction is not pending")
)

// Service creates and maintains purchase transactions
type Service struct {
	db          *gorm.DB
	cfg         *config.Config
	discounts   *discounts.Service
	asynqClient *asynq.Client
	logger      zerolog.Logger
}

// NewService creates a new payments service. asynqClient may be nil (no expiry
// task is enqueued then; the periodic sweep still catches stale transactions).
func NewService(db *gorm.DB, cfg *config.Config, discountsSvc *discounts.Service, asynqClient *asynq.Client, logger zerolog.Logger) *Service {
	return &Service{
		db:          db,
		cfg:         cfg,
		discounts:   discountsSvc,
		asynqClient: asynqClient,
		logger:      logger,
	}
}

// InitiateInput describes a purchase attempt
type InitiateInput struct {
	UserID         string
	ProductID      string
	Gateway        string // manual, crypto
	CryptoCurrency string // required for the crypto gateway
	DiscountCode   string // optional
}

// InitiateResult is returned to the buyer with everything needed to pay
type InitiateResult struct {
	TransactionID  string              `json:"transaction_id"`
	RefID          string              `json:"ref_id"`
	OriginalPrice  int64               `json:"original_price"`
	DiscountAmount int64               `json:"discount_amount"`
	FinalPrice     int64               `json:"final_price"`
	Status         string              `json:"status"`
	BankAccount    *models.BankAccount `json:"bank_account,omitempty"`
	CryptoAddress  string              `json:"crypto_address,omitempty"`
	CryptoCurrency string              `json:"crypto_currency,omitempty"`
	Message        string              `json:"message"`
}

// Initiate creates a pending transaction for the product. Discount validation
// and redemption run inside the same database transaction as the insert, so a
// code's usage cap cannot be overshot by concurrent purchases.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", in.ProductID, true).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	gateway := in.Gateway
	if gateway == "" {
		gateway = models.GatewayManual
	}

	var bankAccount *models.BankAccount
	var cryptoAddress, cryptoCurrency string

	switch gateway {
	case models.GatewayManual:
		var accounts []models.BankAccount
		if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&accounts).Error; err != nil {
			return nil, fmt.Errorf("failed to load bank accounts: %w", err)
		}
		if len(accounts) == 0 {
			return nil, ErrNoActiveBankAccounts
		}
		// Spread transfers across active accounts
		bankAccount = &accounts[rand.Intn(len(accounts))]
	case models.GatewayCrypto:
		cryptoCurrency = strings.ToUpper(in.CryptoCurrency)
		address, ok := s.cfg.Payments.Wallets[cryptoCurrency]
		if !ok {
			return nil, ErrUnsupportedCurrency
		}
		cryptoAddress = address
	default:
		return nil, fmt.Errorf("unknown gateway %q", gateway)
	}

	finalPrice := product.Price
	var discountAmount int64
	var discountCodeID *string

	var validation *discounts.Validation
	if in.DiscountCode != "" {
		v, err := s.discounts.Validate(ctx, in.DiscountCode, in.ProductID, in.UserID)
		if err != nil {
			return nil, err
		}
		// An unusable code falls back to the full price, mirroring checkout behavior
		if v.IsValid {
			validation = v
			finalPrice = v.FinalPrice
			discountAmount = v.DiscountAmount
			discountCodeID = &v.DiscountCodeID
		}
	}

	transaction := &models.Transaction{
		UserID:         in.UserID,
		ProductID:      in.ProductID,
		Amount:         finalPrice,
		DiscountAmount: discountAmount,
		DiscountCodeID: discountCodeID,
		RefID:          NewRefID(),
		Status:         models.TxPending,
		Gateway:        gateway,
		CryptoAddress:  cryptoAddress,
		CryptoCurrency: cryptoCurrency,
	}
	if bankAccount != nil {
		transaction.BankAccountID = &bankAccount.ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if validation != nil {
			if err := s.discounts.Redeem(tx, validation.DiscountCodeID); err != nil {
				return err
			}
		}
		return tx.Create(transaction).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.logger.Info().
		Str("transaction_id", transaction.ID).
		Str("ref_id", transaction.RefID).
		Str("user_id", in.UserID).
		Str("product_id", in.ProductID).
		Str("gateway", gateway).
		Int64("amount", finalPrice).
		Msg("Transaction initiated")

	s.enqueueExpiry(transaction.ID)

	return &InitiateResult{
		TransactionID:  transaction.ID,
		RefID:          transaction.RefID,
		OriginalPrice:  product.Price,
		DiscountAmount: discountAmount,
		FinalPrice:     finalPrice,
		Status:         transaction.Status,
		BankAccount:    bankAccount,
		CryptoAddress:  cryptoAddress,
		CryptoCurrency: cryptoCurrency,
		Message:        "Transaction created. Complete the transfer to receive access.",
	}, nil
}

func (s *Service) enqueueExpiry(transactionID string) {
	if s.asynqClient == nil {
		return
	}
	task, err := tasks.NewExpireTransactionTask(transactionID)
	if err != nil {
		s.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to build expiry task")
		return
	}
	if _, err := s.asynqClient.Enqueue(task, asynq.ProcessIn(s.cfg.Payments.PendingTTL), asynq.Queue("low")); err != nil {
		s.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to enqueue expiry task")
	}
}

// NewRefID generates an opaque unique payment reference
func NewRefID() string {
	return "TX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:20])
}

// UserTransactions lists a user's transactions, newest first
func (s *Service) UserTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("DiscountCode").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// Get loads one of the user's transactions with payment details
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("BankAccount").
		Preload("DiscountCode").
		Where("id = ? AND user_id = ?", id, userID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &tx, nil
}

// Expire cancels a transaction that is still pending. Safe to call more than
// once; a transaction that was completed in the meantime is left alone.
func (s *Service) Expire(ctx context.Context, transactionID string) error {
	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", transactionID, models.TxPending).
		UpdateColumn("status", models.TxCancelled)
	if result.Error != nil {
		return fmt.Errorf("failed to expire transaction: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info().Str("transaction_id", transactionID).Msg("Pending transaction expired")
	}
	return nil
}

// Confirm marks a pending transaction as paid. An operator calls this after
// verifying the bank transfer or on-chain payment by hand. Unlike Expire this
// is not idempotent: confirming a settled transaction is reported back so the
// operator notices a double entry.
func (s *Service) Confirm(ctx context.Context, transactionID string) (*models.Transaction, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", transactionID, models.TxPending).
		UpdateColumns(map[string]any{"status": models.TxCompleted, "paid_at": now})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to confirm transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
			Where("id = ?", transactionID).Count(&exists).Error; err != nil {
			return nil, fmt.Errorf("failed to load transaction: %w", err)
		}
		if exists == 0 {
			return nil, ErrTransactionNotFound
		}
		return nil, ErrTransactionNotPending
	}

	var tx models.Transaction
	if err := s.db.WithContext(ctx).Preload("Product").First(&tx, "id = ?", transactionID).Error; err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	s.logger.Info().Str("transaction_id", transactionID).Str("ref_id", tx.RefID).Msg("Transaction confirmed")
	return &tx, nil
}

// ExpireStale cancels all pending transactions older than the configured TTL.
// Backstop for expiry tasks lost to a Redis outage.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.cfg.Payments.PendingTTL)
	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("status = ? AND created_at < ?", models.TxPending, cutoff).
		UpdateColumn("status", models.TxCancelled)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire stale transactions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
