package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tradekit-dev/tradekit/internal/auth"
	"github.com/tradekit-dev/tradekit/internal/models"
)

// UpdateUserRequest represents a profile update request
type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Password  *string `json:"password,omitempty" binding:"omitempty,min=8"`
}

// canAccessUser reports whether the session may read or modify the given user record.
func canAccessUser(session *auth.SessionData, userID string) bool {
	return session.UserID == userID || session.IsAdmin()
}

func (s *Server) loadUserForSession(c *gin.Context) (*models.User, bool) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	userID := c.Param("id")
	if !canAccessUser(sessionData, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return nil, false
	}

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return nil, false
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}

	return &user, true
}

// @Summary Get user
// @Description Get a user's profile. Users can only read their own profile unless they are admins.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} UserDetail
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/{id} [get]
func (s *Server) getUser(c *gin.Context) {
	user, ok := s.loadUserForSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userDetail(user))
}

// @Summary Update user
// @Description Update profile fields. Users can only modify their own profile unless they are admins.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateUserRequest true "Update request"
// @Success 200 {object} UserDetail
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/users/{id} [patch]
func (s *Server) updateUser(c *gin.Context) {
	user, ok := s.loadUserForSession(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to hash password")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		updates["password_hash"] = hash
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, userDetail(user))
		return
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User updated")

	c.JSON(http.StatusOK, userDetail(user))
}

// @Summary List user courses
// @Description List the courses a user owns through completed purchases
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/users/{id}/courses [get]
func (s *Server) getUserCourses(c *gin.Context) {
	user, ok := s.loadUserForSession(c)
	if !ok {
		return
	}

	courses, err := s.entitlementsService.UserCourses(c.Request.Context(), user.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list user courses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// @Summary List user files
// @Description List the downloadable files a user owns through completed purchases
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/users/{id}/files [get]
func (s *Server) getUserFiles(c *gin.Context) {
	user, ok := s.loadUserForSession(c)
	if !ok {
		return
	}

	files, err := s.entitlementsService.UserFiles(c.Request.Context(), user.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list user files")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}
