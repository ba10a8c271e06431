package entitlements

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tradekit-dev/tradekit/internal/models"
	"github.com/tradekit-dev/tradekit/internal/payments"
)

type fixture struct {
	db    *gorm.DB
	svc   *Service
	user  *models.User
	owned *models.Product
	other *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	user := &models.User{Email: "buyer@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	owned := &models.Product{Title: "Owned Strategy", Price: 10000, IsActive: true}
	other := &models.Product{Title: "Other Strategy", Price: 10000, IsActive: true}
	require.NoError(t, db.Create(owned).Error)
	require.NoError(t, db.Create(other).Error)

	return &fixture{db: db, svc: NewService(db, zerolog.Nop()), user: user, owned: owned, other: other}
}

func (f *fixture) addTransaction(t *testing.T, productID, status string) {
	t.Helper()
	tx := &models.Transaction{
		UserID:    f.user.ID,
		ProductID: productID,
		Amount:    10000,
		RefID:     payments.NewRefID(),
		Status:    status,
		Gateway:   models.GatewayManual,
	}
	require.NoError(t, f.db.Create(tx).Error)
}

func TestOwnedProducts(t *testing.T) {
	f := newFixture(t)
	f.addTransaction(t, f.owned.ID, models.TxCompleted)
	f.addTransaction(t, f.other.ID, models.TxPending)

	products, err := f.svc.OwnedProducts(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, f.owned.ID, products[0].ID)
}

func TestOwnedProductsDeduplicatesRepeatPurchases(t *testing.T) {
	f := newFixture(t)
	f.addTransaction(t, f.owned.ID, models.TxCompleted)
	f.addTransaction(t, f.owned.ID, models.TxCompleted)

	products, err := f.svc.OwnedProducts(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
}

func TestUserCourses(t *testing.T) {
	f := newFixture(t)
	f.addTransaction(t, f.owned.ID, models.TxCompleted)

	courses := []models.Course{
		{ProductID: f.owned.ID, Title: "Advanced", SortOrder: 2, IsActive: true},
		{ProductID: f.owned.ID, Title: "Basics", SortOrder: 1, IsActive: true},
		{ProductID: f.owned.ID, Title: "Retired", SortOrder: 3, IsActive: false},
		{ProductID: f.other.ID, Title: "Not Owned", SortOrder: 1, IsActive: true},
	}
	for i := range courses {
		require.NoError(t, f.db.Create(&courses[i]).Error)
	}

	got, err := f.svc.UserCourses(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Basics", got[0].Title)
	require.Equal(t, "Advanced", got[1].Title)
}

func TestUserFiles(t *testing.T) {
	f := newFixture(t)
	f.addTransaction(t, f.owned.ID, models.TxCompleted)

	files := []models.ProductFile{
		{ProductID: f.owned.ID, Name: "playbook.pdf", Path: "files/playbook.pdf"},
		{ProductID: f.other.ID, Name: "locked.pdf", Path: "files/locked.pdf"},
	}
	for i := range files {
		require.NoError(t, f.db.Create(&files[i]).Error)
	}

	got, err := f.svc.UserFiles(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "playbook.pdf", got[0].Name)
}

func TestCanAccessFile(t *testing.T) {
	f := newFixture(t)
	f.addTransaction(t, f.owned.ID, models.TxCompleted)

	paid := &models.ProductFile{ProductID: f.owned.ID, Name: "paid.pdf", Path: "files/paid.pdf"}
	locked := &models.ProductFile{ProductID: f.other.ID, Name: "locked.pdf", Path: "files/locked.pdf"}
	free := &models.ProductFile{ProductID: f.other.ID, Name: "free.pdf", Path: "files/free.pdf", IsFree: true}
	for _, file := range []*models.ProductFile{paid, locked, free} {
		require.NoError(t, f.db.Create(file).Error)
	}

	ok, err := f.svc.CanAccessFile(context.Background(), f.user.ID, paid)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.svc.CanAccessFile(context.Background(), f.user.ID, locked)
	require.NoError(t, err)
	require.False(t, ok)

	// Free files are open even to anonymous visitors
	ok, err = f.svc.CanAccessFile(context.Background(), "", free)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.svc.CanAccessFile(context.Background(), "", paid)
	require.NoError(t, err)
	require.False(t, ok)
}
