package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"roadmap-service/internal/guard"
	"roadmap-service/internal/repository"
	"roadmap-service/pkg/jwtutil"
	"roadmap-service/pkg/logger"
	"roadmap-service/prometheus"
)

// AccessTokenCookie is the HTTP-only cookie mirroring the access token.
const AccessTokenCookie = "access_token"

// JWTAuth validates the bearer token (Authorization header, cookie
// fallback), loads the user row behind it and stores the resulting identity
// in the context. Loading the row makes deleting a user an immediate
// revocation and keeps role changes effective without re-login.
func JWTAuth(jwtUtil *jwtutil.JWTUtil, users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			tokenString := extractToken(c)
			if tokenString == "" {
				log.Warn("Missing authorization token")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			// Validate the token; refresh tokens are not accepted here
			claims, err := jwtUtil.ValidateAccessToken(tokenString)
			if err != nil {
				log.Warn("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			// Deleted users are revoked users
			user, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					log.Warn("Token subject no longer exists", zap.String("user_id", claims.UserID.String()))
					prometheus.RecordAuthError("user_not_found")
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
				}
				log.Error("Failed to load user for token", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
			}

			// Identity comes from the live row, not the token claims, so
			// role changes apply without waiting for token expiry.
			c.Set(guard.ContextKey, guard.Identity{
				UserID:   user.ID,
				TenantID: user.TenantID,
				Email:    user.Email,
				Role:     user.Role,
			})

			log.Debug("Request authenticated",
				zap.String("user_id", user.ID.String()),
				zap.String("tenant_id", user.TenantID.String()),
				zap.String("role", user.Role))

			return next(c)
		}
	}
}

// extractToken pulls the bearer token from the Authorization header, then
// falls back to the access-token cookie set at login.
func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	cookie, err := c.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}
