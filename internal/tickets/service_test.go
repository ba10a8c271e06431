package tickets

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tradekit-dev/tradekit/internal/models"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return NewService(db, zerolog.Nop()), db
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCreateTicket(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)

	ticket, err := svc.Create(context.Background(), CreateInput{
		UserID:      user.ID,
		Subject:     "Cannot download course",
		Description: "The download link returns an error.",
		Priority:    models.PriorityHigh,
		Type:        models.TypeTechnical,
	})
	require.NoError(t, err)
	require.Equal(t, models.TicketOpen, ticket.Status)
	require.Regexp(t, `^TKT-\d{6}-[A-Z2-9]{6}$`, ticket.ReferenceNumber)

	// The description becomes the opening message
	got, err := svc.Get(context.Background(), user.ID, false, ticket.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "The download link returns an error.", got.Messages[0].Content)
	require.Equal(t, models.MessageUser, got.Messages[0].Type)
}

func TestCreateTicketDefaults(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)

	ticket, err := svc.Create(context.Background(), CreateInput{
		UserID:      user.ID,
		Subject:     "Question",
		Description: "How do refunds work?",
	})
	require.NoError(t, err)
	require.Equal(t, models.PriorityMedium, ticket.Priority)
	require.Equal(t, models.TypeGeneral, ticket.Type)
}

func TestCreateTicketValidation(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)

	cases := []CreateInput{
		{UserID: user.ID, Subject: "", Description: "body"},
		{UserID: user.ID, Subject: "subject", Description: "   "},
		{UserID: user.ID, Subject: "subject", Description: "body", Priority: "extreme"},
		{UserID: user.ID, Subject: "subject", Description: "body", Type: "complaint"},
	}
	for _, in := range cases {
		_, err := svc.Create(context.Background(), in)
		require.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestListScopesNonAdminsToOwnTickets(t *testing.T) {
	svc, db := setupService(t)
	alice := createUser(t, db, "alice@example.com", models.RoleUser)
	bob := createUser(t, db, "bob@example.com", models.RoleUser)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)

	for _, u := range []*models.User{alice, bob} {
		_, err := svc.Create(context.Background(), CreateInput{UserID: u.ID, Subject: "s", Description: "d"})
		require.NoError(t, err)
	}

	mine, err := svc.List(context.Background(), alice.ID, false, ListParams{})
	require.NoError(t, err)
	require.Equal(t, int64(1), mine.Total)
	require.Equal(t, alice.ID, mine.Tickets[0].UserID)

	all, err := svc.List(context.Background(), admin.ID, true, ListParams{})
	require.NoError(t, err)
	require.Equal(t, int64(2), all.Total)
}

func TestListPagingAndFilters(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), CreateInput{
			UserID: user.ID, Subject: "s", Description: "d", Priority: models.PriorityLow,
		})
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), user.ID, false, ListParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(5), page.Total)
	require.Len(t, page.Tickets, 2)
	require.Equal(t, 3, page.TotalPages)

	filtered, err := svc.List(context.Background(), user.ID, false, ListParams{Priority: models.PriorityUrgent})
	require.NoError(t, err)
	require.Zero(t, filtered.Total)

	_, err = svc.List(context.Background(), user.ID, false, ListParams{Status: "bogus"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetStripsInternalMessagesForUsers(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)

	ticket, err := svc.Create(context.Background(), CreateInput{UserID: user.ID, Subject: "s", Description: "d"})
	require.NoError(t, err)

	note := &models.TicketMessage{
		TicketID: ticket.ID, UserID: &admin.ID,
		Content: "escalate to billing", Type: models.MessageSupport, IsInternal: true,
	}
	require.NoError(t, db.Create(note).Error)

	asUser, err := svc.Get(context.Background(), user.ID, false, ticket.ID)
	require.NoError(t, err)
	require.Len(t, asUser.Messages, 1)

	asAdmin, err := svc.Get(context.Background(), admin.ID, true, ticket.ID)
	require.NoError(t, err)
	require.Len(t, asAdmin.Messages, 2)
}

func TestGetByReference(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)
	other := createUser(t, db, "other@example.com", models.RoleUser)

	ticket, err := svc.Create(context.Background(), CreateInput{UserID: user.ID, Subject: "s", Description: "d"})
	require.NoError(t, err)

	got, err := svc.GetByReference(context.Background(), user.ID, false, ticket.ReferenceNumber)
	require.NoError(t, err)
	require.Equal(t, ticket.ID, got.ID)

	_, err = svc.GetByReference(context.Background(), other.ID, false, ticket.ReferenceNumber)
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestUserReplyReopensWaitingTicket(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)

	ticket, err := svc.Create(context.Background(), CreateInput{UserID: user.ID, Subject: "s", Description: "d"})
	require.NoError(t, err)
	require.NoError(t, db.Model(ticket).UpdateColumn("status", models.TicketWaitingForUser).Error)

	msg, err := svc.AddMessage(context.Background(), user.ID, false, ticket.ID, "here are the logs", nil)
	require.NoError(t, err)
	require.Equal(t, models.MessageUser, msg.Type)

	var stored models.Ticket
	require.NoError(t, db.First(&stored, "id = ?", ticket.ID).Error)
	require.Equal(t, models.TicketOpen, stored.Status)
}

func TestAdminReplyIsSupportMessage(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)

	ticket, err := svc.Create(context.Background(), CreateInput{UserID: user.ID, Subject: "s", Description: "d"})
	require.NoError(t, err)

	msg, err := svc.AddMessage(context.Background(), admin.ID, true, ticket.ID, "looking into it", nil)
	require.NoError(t, err)
	require.Equal(t, models.MessageSupport, msg.Type)
}

func TestUpdateWorkflowFieldsAreAdminOnly(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)

	ticket, err := svc.Create(context.Background(), CreateInput{UserID: user.ID, Subject: "s", Description: "d"})
	require.NoError(t, err)

	resolved := models.TicketResolved
	_, err = svc.Update(context.Background(), user.ID, false, ticket.ID, UpdateInput{Status: &resolved})
	require.ErrorIs(t, err, ErrInvalidInput)

	updated, err := svc.Update(context.Background(), admin.ID, true, ticket.ID, UpdateInput{Status: &resolved})
	require.NoError(t, err)
	require.Equal(t, models.TicketResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)

	// Owners may still edit the text fields
	subject := "clearer subject"
	updated, err = svc.Update(context.Background(), user.ID, false, ticket.ID, UpdateInput{Subject: &subject})
	require.NoError(t, err)
	require.Equal(t, "clearer subject", updated.Subject)
}

func TestStats(t *testing.T) {
	svc, db := setupService(t)
	user := createUser(t, db, "user@example.com", models.RoleUser)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)

	for _, p := range []string{models.PriorityLow, models.PriorityLow, models.PriorityHigh} {
		_, err := svc.Create(context.Background(), CreateInput{UserID: user.ID, Subject: "s", Description: "d", Priority: p})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), CreateInput{UserID: admin.ID, Subject: "s", Description: "d"})
	require.NoError(t, err)

	mine, err := svc.Stats(context.Background(), user.ID, false)
	require.NoError(t, err)
	require.Equal(t, int64(3), mine.Total)
	require.Equal(t, int64(2), mine.ByPriority[models.PriorityLow])
	require.Equal(t, int64(3), mine.ByStatus[models.TicketOpen])

	all, err := svc.Stats(context.Background(), admin.ID, true)
	require.NoError(t, err)
	require.Equal(t, int64(4), all.Total)
}
