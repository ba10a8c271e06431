package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tradekit-dev/tradekit/internal/models"
)

// ErrProductNotFound is returned when the product behind a validation does not exist
var ErrProductNotFound = errors.New("product not found")

// ErrCodeExists is returned when creating a code that is already taken
var ErrCodeExists = errors.New("discount code already exists")

// Service validates and redeems discount codes
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new discounts service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Validation is the outcome of checking a code against a product and user.
// An unusable code is a valid (IsValid=false) outcome, not an error.
type Validation struct {
	IsValid        bool   `json:"is_valid"`
	Message        string `json:"message,omitempty"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalPrice     int64  `json:"final_price"`
	DiscountCodeID string `json:"discount_code_id,omitempty"`

	code *models.DiscountCode
}

// Code returns the matched discount code record, if the validation succeeded
func (v *Validation) Code() *models.DiscountCode {
	return v.code
}

// CreateInput carries the fields of a new discount code
type CreateInput struct {
	Code          string
	Type          string
	Amount        int64
	MaxUses       int
	MinimumAmount int64
	StartDate     *time.Time
	EndDate       *time.Time
}

// Create registers a new discount code. Codes are stored uppercase, matching
// the seeded catalog convention.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.DiscountCode, error) {
	if in.Type == "" {
		in.Type = models.DiscountPercentage
	}
	if in.Type == models.DiscountPercentage && (in.Amount < 1 || in.Amount > 100) {
		return nil, fmt.Errorf("percentage amount must be between 1 and 100, got %d", in.Amount)
	}
	if in.Type == models.DiscountFixed && in.Amount < 1 {
		return nil, fmt.Errorf("fixed amount must be positive, got %d", in.Amount)
	}

	code := strings.ToUpper(strings.TrimSpace(in.Code))

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("code = ?", code).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check discount code: %w", err)
	}
	if existing > 0 {
		return nil, ErrCodeExists
	}

	dc := &models.DiscountCode{
		Code:          code,
		Type:          in.Type,
		Amount:        in.Amount,
		IsActive:      true,
		MaxUses:       in.MaxUses,
		MinimumAmount: in.MinimumAmount,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
	}
	if err := s.db.WithContext(ctx).Create(dc).Error; err != nil {
		return nil, fmt.Errorf("failed to create discount code: %w", err)
	}

	s.logger.Info().Str("code", dc.Code).Str("type", dc.Type).Int64("amount", dc.Amount).Msg("Discount code created")
	return dc, nil
}

// Validate checks whether a code can be applied to a product purchase.
// All usability checks (active, date window, usage cap, minimum amount) run here;
// redemption is counted separately so validation stays side-effect free.
func (s *Service) Validate(ctx context.Context, code, productID, userID string) (*Validation, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", productID, true).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	invalid := func(msg string) *Validation {
		return &Validation{IsValid: false, Message: msg, FinalPrice: product.Price}
	}

	var dc models.DiscountCode
	err := s.db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).First(&dc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("discount code not found"), nil
		}
		return nil, fmt.Errorf("failed to load discount code: %w", err)
	}

	now := time.Now()
	switch {
	case !dc.IsActive:
		return invalid("discount code is not active"), nil
	case dc.StartDate != nil && now.Before(*dc.StartDate):
		return invalid("discount code is not active yet"), nil
	case dc.EndDate != nil && now.After(*dc.EndDate):
		return invalid("discount code has expired"), nil
	case dc.MaxUses > 0 && dc.CurrentUses >= dc.MaxUses:
		return invalid("discount code has reached its usage limit"), nil
	case product.Price < dc.MinimumAmount:
		return invalid("order amount is below the discount minimum"), nil
	}

	discountAmount := dc.Amount
	if dc.Type == models.DiscountPercentage {
		discountAmount = product.Price * dc.Amount / 100
	}
	if discountAmount > product.Price {
		discountAmount = product.Price
	}

	s.logger.Debug().
		Str("code", dc.Code).
		Str("product_id", productID).
		Str("user_id", userID).
		Int64("discount_amount", discountAmount).
		Msg("Discount code validated")

	return &Validation{
		IsValid:        true,
		DiscountAmount: discountAmount,
		FinalPrice:     product.Price - discountAmount,
		DiscountCodeID: dc.ID,
		code:           &dc,
	}, nil
}

// Redeem counts one use of a code. The guarded UPDATE keeps the usage cap
// intact under concurrent redemptions; tx is the enclosing purchase transaction.
func (s *Service) Redeem(tx *gorm.DB, codeID string) error {
	result := tx.Model(&models.DiscountCode{}).
		Where("id = ? AND (max_uses = 0 OR current_uses < max_uses)", codeID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to redeem discount code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("discount code has reached its usage limit")
	}
	return nil
}

// DeactivateExpired turns off codes whose end date has passed. Used by the
// periodic sweep worker; returns the number of codes touched.
func (s *Service) DeactivateExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date < ?", true, time.Now()).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate expired discount codes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
