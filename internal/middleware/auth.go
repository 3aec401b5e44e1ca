package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/society-service/pkg/jwtutil"
	"github.com/suteetoe/society-service/pkg/logger"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
)

const claimsKey = "claims"

// Authenticate validates the bearer token and stores its claims on the
// context.
func Authenticate(j *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
			// a bare scheme arrives as "Bearer" once the trailing space is trimmed
			if authHeader == "Bearer" {
				authHeader = ""
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if authHeader == "" || token == "" {
				prometheus.RecordAuthError("token_missing")
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "token missing"})
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
			}

			claims, err := j.ValidateToken(token)
			if err != nil {
				log.Warn("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
			}

			c.Set(claimsKey, claims)
			logger.SetContext(c, log.With(zap.String("user_id", claims.ID), zap.String("role", claims.Role)))
			return next(c)
		}
	}
}

// RequireRole rejects principals whose role differs from role.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := Claims(c)
			if !ok || claims.Role != role {
				prometheus.RecordAuthError("forbidden")
				return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
			}
			return next(c)
		}
	}
}

// Claims returns the claims stored by Authenticate.
func Claims(c echo.Context) (*jwtutil.UserClaims, bool) {
	claims, ok := c.Get(claimsKey).(*jwtutil.UserClaims)
	return claims, ok
}
