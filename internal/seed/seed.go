// Package seed loads catalog fixtures (categories, products, bank accounts,
// discount codes) from a YAML file at server start. Applying the same file
// twice is a no-op; records are matched on their natural keys.
package seed

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tradekit-dev/tradekit/internal/models"
)

// File is the seed file layout
type File struct {
	Categories []struct {
		Name        string `yaml:"name"`
		Slug        string `yaml:"slug"`
		Description string `yaml:"description"`
	} `yaml:"categories"`

	Products []struct {
		Title       string  `yaml:"title"`
		Description string  `yaml:"description"`
		Price       int64   `yaml:"price"`
		Winrate     float64 `yaml:"winrate"`
		Category    string  `yaml:"category"` // category slug
		SortOrder   int     `yaml:"sort_order"`
		Courses     []struct {
			Title           string `yaml:"title"`
			Description     string `yaml:"description"`
			DurationMinutes int    `yaml:"duration_minutes"`
		} `yaml:"courses"`
		Files []struct {
			Name     string `yaml:"name"`
			MimeType string `yaml:"mime_type"`
			Path     string `yaml:"path"`
			Size     int64  `yaml:"size"`
			IsFree   bool   `yaml:"is_free"`
		} `yaml:"files"`
	} `yaml:"products"`

	BankAccounts []struct {
		BankName   string `yaml:"bank_name"`
		CardNumber string `yaml:"card_number"`
		IBAN       string `yaml:"iban"`
		HolderName string `yaml:"holder_name"`
	} `yaml:"bank_accounts"`

	DiscountCodes []struct {
		Code          string     `yaml:"code"`
		Type          string     `yaml:"type"`
		Amount        int64      `yaml:"amount"`
		MaxUses       int        `yaml:"max_uses"`
		MinimumAmount int64      `yaml:"minimum_amount"`
		EndDate       *time.Time `yaml:"end_date"`
	} `yaml:"discount_codes"`
}

// Apply loads the seed file and upserts its records
func Apply(db *gorm.DB, path string, logger zerolog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		categories := map[string]string{} // slug -> id
		for _, c := range f.Categories {
			category := models.Category{Name: c.Name, Slug: c.Slug, Description: c.Description, IsActive: true}
			if err := tx.Where(models.Category{Slug: c.Slug}).FirstOrCreate(&category).Error; err != nil {
				return fmt.Errorf("failed to seed category %q: %w", c.Slug, err)
			}
			categories[c.Slug] = category.ID
		}

		for _, p := range f.Products {
			product := models.Product{
				Title:       p.Title,
				Description: p.Description,
				Price:       p.Price,
				Winrate:     p.Winrate,
				SortOrder:   p.SortOrder,
				CategoryID:  categories[p.Category],
				IsActive:    true,
			}
			if err := tx.Where(models.Product{Title: p.Title}).FirstOrCreate(&product).Error; err != nil {
				return fmt.Errorf("failed to seed product %q: %w", p.Title, err)
			}

			for i, c := range p.Courses {
				course := models.Course{
					ProductID:       product.ID,
					Title:           c.Title,
					Description:     c.Description,
					DurationMinutes: c.DurationMinutes,
					SortOrder:       i,
					IsActive:        true,
				}
				if err := tx.Where(models.Course{ProductID: product.ID, Title: c.Title}).FirstOrCreate(&course).Error; err != nil {
					return fmt.Errorf("failed to seed course %q: %w", c.Title, err)
				}
			}

			for _, pf := range p.Files {
				file := models.ProductFile{
					ProductID: product.ID,
					Name:      pf.Name,
					MimeType:  pf.MimeType,
					Path:      pf.Path,
					Size:      pf.Size,
					IsFree:    pf.IsFree,
				}
				if err := tx.Where(models.ProductFile{ProductID: product.ID, Name: pf.Name}).FirstOrCreate(&file).Error; err != nil {
					return fmt.Errorf("failed to seed file %q: %w", pf.Name, err)
				}
			}
		}

		for _, b := range f.BankAccounts {
			account := models.BankAccount{
				BankName:   b.BankName,
				CardNumber: b.CardNumber,
				IBAN:       b.IBAN,
				HolderName: b.HolderName,
				IsActive:   true,
			}
			if err := tx.Where(models.BankAccount{IBAN: b.IBAN}).FirstOrCreate(&account).Error; err != nil {
				return fmt.Errorf("failed to seed bank account %q: %w", b.IBAN, err)
			}
		}

		for _, d := range f.DiscountCodes {
			dcType := d.Type
			if dcType == "" {
				dcType = models.DiscountPercentage
			}
			code := models.DiscountCode{
				Code:          d.Code,
				Type:          dcType,
				Amount:        d.Amount,
				MaxUses:       d.MaxUses,
				MinimumAmount: d.MinimumAmount,
				EndDate:       d.EndDate,
				IsActive:      true,
			}
			if err := tx.Where(models.DiscountCode{Code: d.Code}).FirstOrCreate(&code).Error; err != nil {
				return fmt.Errorf("failed to seed discount code %q: %w", d.Code, err)
			}
		}

		logger.Info().
			Int("categories", len(f.Categories)).
			Int("products", len(f.Products)).
			Int("bank_accounts", len(f.BankAccounts)).
			Int("discount_codes", len(f.DiscountCodes)).
			Msg("Seed data applied")
		return nil
	})
}
