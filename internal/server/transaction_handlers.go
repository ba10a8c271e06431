package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradekit-dev/tradekit/internal/discounts"
	"github.com/tradekit-dev/tradekit/internal/payments"
)

// InitiatePaymentRequest represents a purchase attempt
type InitiatePaymentRequest struct {
	ProductID      string `json:"product_id" binding:"required"`
	Gateway        string `json:"gateway" binding:"omitempty,oneof=manual crypto"`
	CryptoCurrency string `json:"crypto_currency"`
	DiscountCode   string `json:"discount_code"`
}

// ValidateDiscountRequest represents a discount code check
type ValidateDiscountRequest struct {
	Code      string `json:"code" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
}

// @Summary Initiate payment
// @Description Create a pending transaction and return payment instructions
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InitiatePaymentRequest true "Payment request"
// @Success 201 {object} payments.InitiateResult
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/payments/initiate [post]
func (s *Server) initiatePayment(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.paymentsService.Initiate(c.Request.Context(), payments.InitiateInput{
		UserID:         sessionData.UserID,
		ProductID:      req.ProductID,
		Gateway:        req.Gateway,
		CryptoCurrency: req.CryptoCurrency,
		DiscountCode:   req.DiscountCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		case errors.Is(err, payments.ErrNoActiveBankAccounts):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Manual payment is currently unavailable"})
		case errors.Is(err, payments.ErrUnsupportedCurrency):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported crypto currency"})
		default:
			s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to initiate payment")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate payment"})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// @Summary List transactions
// @Description List the authenticated user's transactions, newest first
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/transactions [get]
func (s *Server) listTransactions(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transactions, err := s.paymentsService.UserTransactions(c.Request.Context(), sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to list transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// @Summary Get transaction
// @Description Get one of the authenticated user's transactions
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} map[string]interface{}
// @Router /api/transactions/{id} [get]
func (s *Server) getTransaction(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transaction, err := s.paymentsService.Get(c.Request.Context(), sessionData.UserID, c.Param("id"))
	if err != nil {
		if errors.Is(err, payments.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to get transaction")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// @Summary List owned products
// @Description List the products the authenticated user owns through completed purchases
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/transactions/owned [get]
func (s *Server) listOwnedProducts(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	products, err := s.entitlementsService.OwnedProducts(c.Request.Context(), sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to list owned products")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// @Summary Validate discount code
// @Description Check a discount code against a product and report the resulting price
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ValidateDiscountRequest true "Validation request"
// @Success 200 {object} discounts.Validation
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/discounts/validate [post]
func (s *Server) validateDiscount(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	validation, err := s.discountsService.Validate(c.Request.Context(), req.Code, req.ProductID, sessionData.UserID)
	if err != nil {
		if errors.Is(err, discounts.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to validate discount")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, validation)
}
