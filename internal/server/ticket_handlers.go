package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradekit-dev/tradekit/internal/storage"
	"github.com/tradekit-dev/tradekit/internal/tickets"
)

// CreateTicketRequest represents a new support ticket
type CreateTicketRequest struct {
	Subject     string `json:"subject" binding:"required"`
	Description string `json:"description" binding:"required"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
}

// UpdateTicketRequest represents a ticket patch
type UpdateTicketRequest struct {
	Subject      *string `json:"subject,omitempty"`
	Description  *string `json:"description,omitempty"`
	Status       *string `json:"status,omitempty"`
	Priority     *string `json:"priority,omitempty"`
	Type         *string `json:"type,omitempty"`
	AssignedToID *string `json:"assigned_to_id,omitempty"`
}

// CreateTicketMessageRequest represents a ticket reply
type CreateTicketMessageRequest struct {
	Content     string   `json:"content" binding:"required"`
	Attachments []string `json:"attachments"`
}

func (s *Server) ticketError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, tickets.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
	case errors.Is(err, tickets.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error().Err(err).Str("action", action).Msg("Ticket operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// @Summary List tickets
// @Description Page through tickets. Admins see all tickets, users only their own.
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "Status filter"
// @Param priority query string false "Priority filter"
// @Param type query string false "Type filter"
// @Success 200 {object} tickets.ListResult
// @Router /api/tickets [get]
func (s *Server) listTickets(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := s.ticketsService.List(c.Request.Context(), sessionData.UserID, sessionData.IsAdmin(), tickets.ListParams{
		Page:     page,
		Limit:    limit,
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Type:     c.Query("type"),
	})
	if err != nil {
		s.ticketError(c, err, "list")
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Create ticket
// @Description Open a new support ticket
// @Tags tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTicketRequest true "Ticket"
// @Success 201 {object} models.Ticket
// @Failure 400 {object} map[string]interface{}
// @Router /api/tickets [post]
func (s *Server) createTicket(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := s.ticketsService.Create(c.Request.Context(), tickets.CreateInput{
		UserID:      sessionData.UserID,
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		Type:        req.Type,
	})
	if err != nil {
		s.ticketError(c, err, "create")
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

// @Summary Get ticket
// @Description Get a ticket with its conversation
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Success 200 {object} models.Ticket
// @Failure 404 {object} map[string]interface{}
// @Router /api/tickets/{id} [get]
func (s *Server) getTicket(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ticket, err := s.ticketsService.Get(c.Request.Context(), sessionData.UserID, sessionData.IsAdmin(), c.Param("id"))
	if err != nil {
		s.ticketError(c, err, "get")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// @Summary Get ticket by reference
// @Description Look up a ticket by its reference number
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Reference number"
// @Success 200 {object} models.Ticket
// @Failure 404 {object} map[string]interface{}
// @Router /api/tickets/reference/{ref} [get]
func (s *Server) getTicketByReference(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ticket, err := s.ticketsService.GetByReference(c.Request.Context(), sessionData.UserID, sessionData.IsAdmin(), c.Param("ref"))
	if err != nil {
		s.ticketError(c, err, "get_by_reference")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// @Summary Update ticket
// @Description Patch ticket fields. Workflow fields are admin-only.
// @Tags tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Param request body UpdateTicketRequest true "Patch"
// @Success 200 {object} models.Ticket
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/tickets/{id} [patch]
func (s *Server) updateTicket(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := s.ticketsService.Update(c.Request.Context(), sessionData.UserID, sessionData.IsAdmin(), c.Param("id"), tickets.UpdateInput{
		Subject:      req.Subject,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		Type:         req.Type,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		s.ticketError(c, err, "update")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// @Summary List ticket messages
// @Description List a ticket's conversation in chronological order
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/tickets/{id}/messages [get]
func (s *Server) listTicketMessages(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ticket, err := s.ticketsService.Get(c.Request.Context(), sessionData.UserID, sessionData.IsAdmin(), c.Param("id"))
	if err != nil {
		s.ticketError(c, err, "list_messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": ticket.Messages})
}

// @Summary Add ticket message
// @Description Reply to a ticket
// @Tags tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Param request body CreateTicketMessageRequest true "Message"
// @Success 201 {object} models.TicketMessage
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/tickets/{id}/messages [post]
func (s *Server) createTicketMessage(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateTicketMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := s.ticketsService.AddMessage(c.Request.Context(), sessionData.UserID, sessionData.IsAdmin(), c.Param("id"), req.Content, req.Attachments)
	if err != nil {
		s.ticketError(c, err, "add_message")
		return
	}

	c.JSON(http.StatusCreated, message)
}

// @Summary Ticket statistics
// @Description Ticket counts grouped by status, priority and type
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Success 200 {object} tickets.Statistics
// @Router /api/tickets/statistics [get]
func (s *Server) ticketStatistics(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stats, err := s.ticketsService.Stats(c.Request.Context(), sessionData.UserID, sessionData.IsAdmin())
	if err != nil {
		s.ticketError(c, err, "statistics")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Upload ticket image
// @Description Upload an image attachment for ticket messages
// @Tags tickets
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file"
// @Success 201 {object} storage.Object
// @Failure 400 {object} map[string]interface{}
// @Failure 413 {object} map[string]interface{}
// @Router /api/tickets/upload-image [post]
func (s *Server) uploadTicketImage(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer file.Close()

	object, err := s.imageStore.SaveImage(sessionData.UserID, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, storage.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		default:
			s.logger.Error().Err(err).Msg("Failed to store image")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		}
		return
	}

	s.logger.Info().Str("user_id", sessionData.UserID).Str("key", object.Key).Msg("Ticket image uploaded")

	c.JSON(http.StatusCreated, object)
}
