package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tradekit-dev/tradekit/internal/models"
)

// @Summary List products
// @Description List active products, optionally filtered by category slug
// @Tags catalog
// @Produce json
// @Param category query string false "Category slug"
// @Success 200 {object} map[string]interface{}
// @Router /api/products [get]
func (s *Server) listProducts(c *gin.Context) {
	query := s.db.Preload("Category").Where("is_active = ?", true).Order("created_at DESC")

	if slug := c.Query("category"); slug != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", slug)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list products")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// @Summary Get product
// @Description Get a single active product with its courses and file metadata
// @Tags catalog
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} map[string]interface{}
// @Router /api/products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	var product models.Product
	err := s.db.Preload("Category").Preload("Courses").Preload("Files").
		Where("id = ? AND is_active = ?", c.Param("id"), true).
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to get product")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// @Summary List categories
// @Description List product categories
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/categories [get]
func (s *Server) listCategories(c *gin.Context) {
	var categories []models.Category
	if err := s.db.Order("name ASC").Find(&categories).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list categories")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// @Summary List courses
// @Description List published courses with their parent product
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/courses [get]
func (s *Server) listCourses(c *gin.Context) {
	var courses []models.Course
	err := s.db.Preload("Product").
		Joins("JOIN products ON products.id = courses.product_id").
		Where("products.is_active = ?", true).
		Order("courses.created_at DESC").
		Find(&courses).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list courses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}
