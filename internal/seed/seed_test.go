package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tradekit-dev/tradekit/internal/models"
)

const seedYAML = `
categories:
  - name: Strategies
    slug: strategies
    description: Trading strategies

products:
  - title: Breakout Strategy
    description: A complete breakout playbook
    price: 20000
    winrate: 62.5
    category: strategies
    courses:
      - title: Introduction
        duration_minutes: 12
      - title: Entries and Exits
        duration_minutes: 45
    files:
      - name: playbook.pdf
        mime_type: application/pdf
        path: files/playbook.pdf
        size: 102400
      - name: preview.pdf
        mime_type: application/pdf
        path: files/preview.pdf
        size: 2048
        is_free: true

bank_accounts:
  - bank_name: First National
    card_number: "4111111111111111"
    iban: DE89370400440532013000
    holder_name: TradeKit Ltd

discount_codes:
  - code: LAUNCH20
    amount: 20
  - code: TENOFF
    type: fixed
    amount: 1000
    max_uses: 50
`

func writeSeedFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))
	return path
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func TestApply(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Apply(db, writeSeedFile(t), zerolog.Nop()))

	var category models.Category
	require.NoError(t, db.First(&category, "slug = ?", "strategies").Error)
	require.True(t, category.IsActive)

	var product models.Product
	require.NoError(t, db.Preload("Courses").Preload("Files").First(&product, "title = ?", "Breakout Strategy").Error)
	require.Equal(t, category.ID, product.CategoryID)
	require.Equal(t, int64(20000), product.Price)
	require.Len(t, product.Courses, 2)
	require.Len(t, product.Files, 2)

	var free models.ProductFile
	require.NoError(t, db.First(&free, "name = ?", "preview.pdf").Error)
	require.True(t, free.IsFree)

	var account models.BankAccount
	require.NoError(t, db.First(&account, "iban = ?", "DE89370400440532013000").Error)
	require.True(t, account.IsActive)

	var percentage, fixed models.DiscountCode
	require.NoError(t, db.First(&percentage, "code = ?", "LAUNCH20").Error)
	require.Equal(t, models.DiscountPercentage, percentage.Type)
	require.NoError(t, db.First(&fixed, "code = ?", "TENOFF").Error)
	require.Equal(t, models.DiscountFixed, fixed.Type)
	require.Equal(t, 50, fixed.MaxUses)
}

func TestApplyIsIdempotent(t *testing.T) {
	db := setupDB(t)
	path := writeSeedFile(t)

	require.NoError(t, Apply(db, path, zerolog.Nop()))
	require.NoError(t, Apply(db, path, zerolog.Nop()))

	var products, courses, files, accounts, codes int64
	require.NoError(t, db.Model(&models.Product{}).Count(&products).Error)
	require.NoError(t, db.Model(&models.Course{}).Count(&courses).Error)
	require.NoError(t, db.Model(&models.ProductFile{}).Count(&files).Error)
	require.NoError(t, db.Model(&models.BankAccount{}).Count(&accounts).Error)
	require.NoError(t, db.Model(&models.DiscountCode{}).Count(&codes).Error)

	require.Equal(t, int64(1), products)
	require.Equal(t, int64(2), courses)
	require.Equal(t, int64(2), files)
	require.Equal(t, int64(1), accounts)
	require.Equal(t, int64(2), codes)
}

func TestApplyMissingFile(t *testing.T) {
	db := setupDB(t)
	require.Error(t, Apply(db, filepath.Join(t.TempDir(), "absent.yaml"), zerolog.Nop()))
}

func TestApplyMalformedYAML(t *testing.T) {
	db := setupDB(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: [not: closed"), 0o644))
	require.Error(t, Apply(db, path, zerolog.Nop()))
}
