package discounts

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tradekit-dev/tradekit/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createProduct(t *testing.T, db *gorm.DB, price int64) *models.Product {
	t.Helper()
	product := &models.Product{Title: "Breakout Strategy", Price: price, IsActive: true}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestValidatePercentageCode(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())
	product := createProduct(t, db, 10000)

	code := &models.DiscountCode{Code: "SAVE20", Type: models.DiscountPercentage, Amount: 20, IsActive: true}
	require.NoError(t, db.Create(code).Error)

	v, err := svc.Validate(context.Background(), "SAVE20", product.ID, "user-1")
	require.NoError(t, err)
	require.True(t, v.IsValid)
	require.Equal(t, int64(2000), v.DiscountAmount)
	require.Equal(t, int64(8000), v.FinalPrice)
	require.Equal(t, code.ID, v.DiscountCodeID)
}

func TestValidateFixedCodeCappedAtPrice(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())
	product := createProduct(t, db, 1500)

	code := &models.DiscountCode{Code: "BIG", Type: models.DiscountFixed, Amount: 5000, IsActive: true}
	require.NoError(t, db.Create(code).Error)

	v, err := svc.Validate(context.Background(), "BIG", product.ID, "user-1")
	require.NoError(t, err)
	require.True(t, v.IsValid)
	require.Equal(t, int64(1500), v.DiscountAmount)
	require.Zero(t, v.FinalPrice)
}

func TestValidateUnusableCodesAreNotErrors(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())
	product := createProduct(t, db, 10000)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	codes := []models.DiscountCode{
		{Code: "INACTIVE", Amount: 10, IsActive: false},
		{Code: "EXPIRED", Amount: 10, IsActive: true, EndDate: &past},
		{Code: "NOTYET", Amount: 10, IsActive: true, StartDate: &future},
		{Code: "EXHAUSTED", Amount: 10, IsActive: true, MaxUses: 1, CurrentUses: 1},
		{Code: "MINIMUM", Amount: 10, IsActive: true, MinimumAmount: 99999},
	}
	for i := range codes {
		require.NoError(t, db.Create(&codes[i]).Error)
	}

	for _, name := range []string{"INACTIVE", "EXPIRED", "NOTYET", "EXHAUSTED", "MINIMUM", "MISSING"} {
		v, err := svc.Validate(context.Background(), name, product.ID, "user-1")
		require.NoError(t, err, "code %s", name)
		require.False(t, v.IsValid, "code %s", name)
		require.NotEmpty(t, v.Message, "code %s", name)
		require.Equal(t, product.Price, v.FinalPrice, "code %s keeps full price", name)
	}
}

func TestValidateUnknownProduct(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())

	_, err := svc.Validate(context.Background(), "SAVE20", "missing", "user-1")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestRedeemEnforcesUsageCap(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())

	code := &models.DiscountCode{Code: "LIMITED", Amount: 10, IsActive: true, MaxUses: 2}
	require.NoError(t, db.Create(code).Error)

	require.NoError(t, svc.Redeem(db, code.ID))
	require.NoError(t, svc.Redeem(db, code.ID))
	require.Error(t, svc.Redeem(db, code.ID), "third redemption must hit the cap")

	var stored models.DiscountCode
	require.NoError(t, db.First(&stored, "id = ?", code.ID).Error)
	require.Equal(t, 2, stored.CurrentUses)
}

func TestRedeemUnlimitedCode(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())

	code := &models.DiscountCode{Code: "FOREVER", Amount: 10, IsActive: true, MaxUses: 0}
	require.NoError(t, db.Create(code).Error)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Redeem(db, code.ID))
	}
}

func TestDeactivateExpired(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	require.NoError(t, db.Create(&models.DiscountCode{Code: "OLD", Amount: 10, IsActive: true, EndDate: &past}).Error)
	require.NoError(t, db.Create(&models.DiscountCode{Code: "CURRENT", Amount: 10, IsActive: true, EndDate: &future}).Error)

	n, err := svc.DeactivateExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	var current models.DiscountCode
	require.NoError(t, db.First(&current, "code = ?", "CURRENT").Error)
	require.True(t, current.IsActive)
}

func TestCreateCode(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())

	end := time.Now().Add(24 * time.Hour)
	dc, err := svc.Create(context.Background(), CreateInput{
		Code:    " spring25 ",
		Amount:  25,
		MaxUses: 10,
		EndDate: &end,
	})
	require.NoError(t, err)
	require.Equal(t, "SPRING25", dc.Code)
	require.Equal(t, models.DiscountPercentage, dc.Type)
	require.True(t, dc.IsActive)
	require.Equal(t, 10, dc.MaxUses)
	require.Equal(t, 0, dc.CurrentUses)
}

func TestCreateCodeRejectsDuplicate(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())

	_, err := svc.Create(context.Background(), CreateInput{Code: "SAVE20", Amount: 20})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Code: "save20", Amount: 10})
	require.ErrorIs(t, err, ErrCodeExists)
}

func TestCreateCodeRejectsBadAmounts(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, zerolog.Nop())

	_, err := svc.Create(context.Background(), CreateInput{Code: "TOOMUCH", Type: models.DiscountPercentage, Amount: 150})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Code: "FREE", Type: models.DiscountFixed, Amount: 0})
	require.Error(t, err)
}
