package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tradekit-dev/tradekit/internal/auth"
	"github.com/tradekit-dev/tradekit/internal/models"
	"github.com/tradekit-dev/tradekit/internal/provider"
)

const (
	bearerPrefix = "Bearer "
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrUserNotFound      = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the authenticated session attached to the request
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// requestToken pulls the bearer token from the Authorization header, falling
// back to the token query parameter (media elements cannot set headers)
func requestToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		return extractBearerToken(authHeader)
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingAuthHeader
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// resolveSession validates a token (backend JWT first, then provider-issued)
// and loads the user behind it
func resolveSession(c *gin.Context, db *gorm.DB, verifier *provider.Verifier, token string) (*auth.SessionData, error) {
	if claims, err := auth.ValidateToken(token); err == nil {
		var user models.User
		if err := db.Where("id = ?", claims.Subject).First(&user).Error; err != nil {
			return nil, ErrUserNotFound
		}
		return &auth.SessionData{
			UserID:     user.ID,
			Email:      user.Email,
			Role:       user.Role,
			AuthMethod: "jwt",
		}, nil
	}

	// Not one of ours; try the external provider's signature
	if verifier == nil {
		return nil, ErrInvalidToken
	}
	identity, err := verifier.Verify(c.Request.Context(), token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := db.Where("provider_subject = ?", identity.Subject).First(&user).Error; err != nil {
		return nil, ErrUserNotFound
	}
	return &auth.SessionData{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		AuthMethod: "provider",
	}, nil
}

// AuthMiddleware validates bearer tokens and attaches the session
func AuthMiddleware(db *gorm.DB, verifier *provider.Verifier, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := requestToken(c)
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Missing authorization header"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		sessionData, err := resolveSession(c, db, verifier, token)
		if err != nil {
			respondWithError(c, log, http.StatusUnauthorized, err, "Invalid or expired token")
			return
		}

		setSession(c, sessionData)
		c.Next()
	}
}

// AdminOnlyMiddleware ensures the authenticated user is an admin
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		if !sessionData.IsAdmin() {
			respondWithError(c, log, http.StatusForbidden, errors.New("not admin"), "Admin access required")
			return
		}

		c.Next()
	}
}
