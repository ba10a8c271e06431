// Package entitlements answers "what did this user pay for": owned products,
// their courses, and whether a given file may be served. A completed
// transaction is the sole source of an entitlement.
package entitlements

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tradekit-dev/tradekit/internal/models"
)

// Service resolves purchase entitlements
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new entitlements service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// OwnedProducts lists products the user holds a completed transaction for
func (s *Service) OwnedProducts(ctx context.Context, userID string) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("Courses").
		Preload("Files").
		Joins("JOIN transactions ON transactions.product_id = products.id").
		Where("transactions.user_id = ? AND transactions.status = ?", userID, models.TxCompleted).
		Distinct("products.*").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list owned products: %w", err)
	}
	return products, nil
}

// UserCourses lists courses attached to the user's owned products
func (s *Service) UserCourses(ctx context.Context, userID string) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.WithContext(ctx).
		Joins("JOIN transactions ON transactions.product_id = courses.product_id").
		Where("transactions.user_id = ? AND transactions.status = ? AND courses.is_active = ?",
			userID, models.TxCompleted, true).
		Distinct("courses.*").
		Order("courses.sort_order").
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user courses: %w", err)
	}
	return courses, nil
}

// UserFiles lists files the user may download (free files excluded; those need no entitlement)
func (s *Service) UserFiles(ctx context.Context, userID string) ([]models.ProductFile, error) {
	var files []models.ProductFile
	err := s.db.WithContext(ctx).
		Joins("JOIN transactions ON transactions.product_id = product_files.product_id").
		Where("transactions.user_id = ? AND transactions.status = ?", userID, models.TxCompleted).
		Distinct("product_files.*").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user files: %w", err)
	}
	return files, nil
}

// CanAccessFile reports whether the user may be served the file.
// Free files are open to everyone, including anonymous visitors.
func (s *Service) CanAccessFile(ctx context.Context, userID string, file *models.ProductFile) (bool, error) {
	if file.IsFree {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND product_id = ? AND status = ?", userID, file.ProductID, models.TxCompleted).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check entitlement: %w", err)
	}
	return count > 0, nil
}
