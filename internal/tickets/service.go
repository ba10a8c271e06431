package tickets

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tradekit-dev/tradekit/internal/models"
)

var (
	// ErrTicketNotFound means the ticket does not exist or is not visible to the caller
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrInvalidInput means a field failed enum or presence validation
	ErrInvalidInput = errors.New("invalid ticket input")
)

var validPriorities = map[string]bool{
	models.PriorityLow:    true,
	models.PriorityMedium: true,
	models.PriorityHigh:   true,
	models.PriorityUrgent: true,
}

var validTypes = map[string]bool{
	models.TypeTechnical:      true,
	models.TypeBilling:        true,
	models.TypeGeneral:        true,
	models.TypeFeatureRequest: true,
	models.TypeBugReport:      true,
}

var validStatuses = map[string]bool{
	models.TicketOpen:           true,
	models.TicketInProgress:     true,
	models.TicketWaitingForUser: true,
	models.TicketResolved:       true,
	models.TicketClosed:         true,
}

// Service manages support tickets and their conversations
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new tickets service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// CreateInput describes a new ticket
type CreateInput struct {
	UserID      string
	Subject     string
	Description string
	Priority    string // defaults to medium
	Type        string // defaults to general
}

// Create opens a ticket and records its description as the first message,
// atomically. Returns the created ticket with its reference number set.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Ticket, error) {
	subject := strings.TrimSpace(in.Subject)
	description := strings.TrimSpace(in.Description)
	if subject == "" || description == "" {
		return nil, fmt.Errorf("%w: subject and description are required", ErrInvalidInput)
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !validPriorities[priority] {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}

	ticketType := in.Type
	if ticketType == "" {
		ticketType = models.TypeGeneral
	}
	if !validTypes[ticketType] {
		return nil, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidInput, ticketType)
	}

	ticket := &models.Ticket{
		UserID:          in.UserID,
		Subject:         subject,
		Description:     description,
		Status:          models.TicketOpen,
		Priority:        priority,
		Type:            ticketType,
		ReferenceNumber: GenerateReferenceNumber(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ticket).Error; err != nil {
			return err
		}
		first := &models.TicketMessage{
			TicketID: ticket.ID,
			UserID:   &in.UserID,
			Content:  description,
			Type:     models.MessageUser,
		}
		return tx.Create(first).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.logger.Info().
		Str("ticket_id", ticket.ID).
		Str("reference", ticket.ReferenceNumber).
		Str("user_id", in.UserID).
		Msg("Ticket created")

	return ticket, nil
}

// GenerateReferenceNumber builds a short human-quotable ticket reference
func GenerateReferenceNumber() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			// crypto/rand failing is unrecoverable at this layer
			panic(err)
		}
		suffix[i] = alphabet[n.Int64()]
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return fmt.Sprintf("TKT-%s-%s", ts[len(ts)-6:], string(suffix))
}

// ListParams filters and paginates a ticket listing
type ListParams struct {
	Page     int
	Limit    int
	Status   string
	Priority string
	Type     string
}

// ListResult is one page of tickets
type ListResult struct {
	Tickets    []models.Ticket `json:"tickets"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}

// List pages through tickets. Non-admin callers only see their own.
func (s *Service) List(ctx context.Context, userID string, admin bool, p ListParams) (*ListResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Ticket{})
	if !admin {
		query = query.Where("user_id = ?", userID)
	}
	if p.Status != "" {
		if !validStatuses[p.Status] {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, p.Status)
		}
		query = query.Where("status = ?", p.Status)
	}
	if p.Priority != "" {
		if !validPriorities[p.Priority] {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, p.Priority)
		}
		query = query.Where("priority = ?", p.Priority)
	}
	if p.Type != "" {
		if !validTypes[p.Type] {
			return nil, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidInput, p.Type)
		}
		query = query.Where("type = ?", p.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	var tickets []models.Ticket
	err := query.
		Order("created_at DESC").
		Offset((p.Page - 1) * p.Limit).
		Limit(p.Limit).
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return &ListResult{
		Tickets:    tickets,
		Total:      total,
		Page:       p.Page,
		TotalPages: totalPages,
	}, nil
}

// Get loads a ticket with its conversation. Internal messages are stripped
// for non-admin callers.
func (s *Service) Get(ctx context.Context, userID string, admin bool, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	query := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Messages.User").
		Where("id = ?", id)
	if !admin {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	if !admin {
		visible := ticket.Messages[:0]
		for _, m := range ticket.Messages {
			if !m.IsInternal {
				visible = append(visible, m)
			}
		}
		ticket.Messages = visible
	}

	return &ticket, nil
}

// GetByReference resolves a ticket through its reference number
func (s *Service) GetByReference(ctx context.Context, userID string, admin bool, reference string) (*models.Ticket, error) {
	var ticket models.Ticket
	query := s.db.WithContext(ctx).Where("reference_number = ?", reference)
	if !admin {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	return s.Get(ctx, userID, admin, ticket.ID)
}

// AddMessage appends a message to a ticket the caller can see. A user reply
// to a waiting ticket moves it back to open.
func (s *Service) AddMessage(ctx context.Context, userID string, admin bool, ticketID, content string, attachments []string) (*models.TicketMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	var ticket models.Ticket
	query := s.db.WithContext(ctx).Where("id = ?", ticketID)
	if !admin {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	msgType := models.MessageUser
	if admin && ticket.UserID != userID {
		msgType = models.MessageSupport
	}

	var attachmentsJSON string
	if len(attachments) > 0 {
		raw, err := json.Marshal(attachments)
		if err != nil {
			return nil, fmt.Errorf("failed to encode attachments: %w", err)
		}
		attachmentsJSON = string(raw)
	}

	message := &models.TicketMessage{
		TicketID:    ticket.ID,
		UserID:      &userID,
		Content:     content,
		Type:        msgType,
		Attachments: attachmentsJSON,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		if msgType == models.MessageUser && ticket.Status == models.TicketWaitingForUser {
			return tx.Model(&ticket).UpdateColumn("status", models.TicketOpen).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	return message, nil
}

// UpdateInput carries mutable ticket fields; nil means leave unchanged
type UpdateInput struct {
	Subject      *string
	Description  *string
	Status       *string
	Priority     *string
	Type         *string
	AssignedToID *string
}

// Update patches a ticket. Status, priority and assignment changes are
// admin-only; owners may edit subject and description of open tickets.
func (s *Service) Update(ctx context.Context, userID string, admin bool, id string, in UpdateInput) (*models.Ticket, error) {
	var ticket models.Ticket
	query := s.db.WithContext(ctx).Where("id = ?", id)
	if !admin {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	updates := map[string]any{}

	if in.Subject != nil {
		updates["subject"] = strings.TrimSpace(*in.Subject)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}

	if !admin && (in.Status != nil || in.Priority != nil || in.Type != nil || in.AssignedToID != nil) {
		return nil, fmt.Errorf("%w: only support staff may change ticket workflow fields", ErrInvalidInput)
	}

	now := time.Now()
	if in.Status != nil {
		if !validStatuses[*in.Status] {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *in.Status)
		}
		updates["status"] = *in.Status
		switch *in.Status {
		case models.TicketResolved:
			updates["resolved_at"] = &now
		case models.TicketClosed:
			updates["closed_at"] = &now
		}
	}
	if in.Priority != nil {
		if !validPriorities[*in.Priority] {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *in.Priority)
		}
		updates["priority"] = *in.Priority
	}
	if in.Type != nil {
		if !validTypes[*in.Type] {
			return nil, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidInput, *in.Type)
		}
		updates["type"] = *in.Type
	}
	if in.AssignedToID != nil {
		updates["assigned_to_id"] = *in.AssignedToID
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&ticket).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update ticket: %w", err)
		}
	}

	return s.Get(ctx, userID, admin, id)
}

// Statistics aggregates ticket counts by status, priority and type
type Statistics struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
	ByType     map[string]int64 `json:"by_type"`
}

// Stats computes ticket statistics; non-admin callers see only their own tickets
func (s *Service) Stats(ctx context.Context, userID string, admin bool) (*Statistics, error) {
	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Ticket{})
		if !admin {
			q = q.Where("user_id = ?", userID)
		}
		return q
	}

	stats := &Statistics{
		ByStatus:   map[string]int64{},
		ByPriority: map[string]int64{},
		ByType:     map[string]int64{},
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	type bucket struct {
		Key   string
		Count int64
	}
	for column, dest := range map[string]map[string]int64{
		"status":   stats.ByStatus,
		"priority": stats.ByPriority,
		"type":     stats.ByType,
	} {
		var rows []bucket
		err := base().
			Select(column + " AS key, COUNT(*) AS count").
			Group(column).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate tickets by %s: %w", column, err)
		}
		for _, r := range rows {
			dest[r.Key] = r.Count
		}
	}

	return stats, nil
}
