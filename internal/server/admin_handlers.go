package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradekit-dev/tradekit/internal/discounts"
	"github.com/tradekit-dev/tradekit/internal/payments"
)

// CreateDiscountRequest represents a new discount code
type CreateDiscountRequest struct {
	Code          string     `json:"code" binding:"required" validate:"required,alphanumdash,min=3,max=32"`
	Type          string     `json:"type" validate:"omitempty,oneof=percentage fixed"`
	Amount        int64      `json:"amount" binding:"required" validate:"required,min=1"`
	MaxUses       int        `json:"max_uses" validate:"min=0"`
	MinimumAmount int64      `json:"minimum_amount" validate:"min=0"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
}

// @Summary Confirm transaction
// @Description Mark a pending transaction as paid after verifying the payment by hand
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/admin/transactions/{id}/confirm [post]
func (s *Server) confirmTransaction(c *gin.Context) {
	transaction, err := s.paymentsService.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		case errors.Is(err, payments.ErrTransactionNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": "Transaction is not pending"})
		default:
			s.logger.Error().Err(err).Str("transaction_id", c.Param("id")).Msg("Failed to confirm transaction")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// @Summary Create discount code
// @Description Register a new discount code for the catalog
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateDiscountRequest true "Discount code"
// @Success 201 {object} models.DiscountCode
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/admin/discounts [post]
func (s *Server) createDiscount(c *gin.Context) {
	var req CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		s.logger.Warn().Err(err).Msg("Discount creation failed validation")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	code, err := s.discountsService.Create(c.Request.Context(), discounts.CreateInput{
		Code:          req.Code,
		Type:          req.Type,
		Amount:        req.Amount,
		MaxUses:       req.MaxUses,
		MinimumAmount: req.MinimumAmount,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	})
	if err != nil {
		if errors.Is(err, discounts.ErrCodeExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Discount code already exists"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create discount code")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, code)
}
