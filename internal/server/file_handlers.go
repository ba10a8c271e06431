package server

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tradekit-dev/tradekit/internal/models"
)

// @Summary Serve product file
// @Description Stream a product file. Free files are public; paid files require
// @Description a completed purchase. The token is read from the Authorization
// @Description header or, for direct browser downloads, a token query parameter.
// @Tags catalog
// @Produce octet-stream
// @Param id path string true "File ID"
// @Param token query string false "Access token"
// @Success 200 {file} binary
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/files/{id}/serve [get]
func (s *Server) serveFile(c *gin.Context) {
	var file models.ProductFile
	if err := s.db.Where("id = ?", c.Param("id")).First(&file).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	userID := ""
	if token, err := requestToken(c); err == nil {
		sessionData, err := resolveSession(c, s.db, s.providerVerifier, token)
		if err == nil {
			userID = sessionData.UserID
		} else if !file.IsFree {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
	}

	allowed, err := s.entitlementsService.CanAccessFile(c.Request.Context(), userID, &file)
	if err != nil {
		s.logger.Error().Err(err).Str("file_id", file.ID).Msg("Failed to check file access")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !allowed {
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Purchase required to download this file"})
		return
	}

	c.FileAttachment(file.Path, filepath.Base(file.Path))
}
