package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/interfaces/http/response"
	"tip-chain.backend/pkg/jwt"
	"tip-chain.backend/pkg/logger"
)

const RelayNameKey = "relay_name"

// RelayTokenValidator validates a relay bearer token
type RelayTokenValidator interface {
	Validate(token string) (*jwt.RelayClaims, error)
}

// RelayAuthMiddleware requires a valid relay bearer token. A nil validator
// disables the check.
func RelayAuthMiddleware(validator RelayTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if validator == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, "missing relay token")
			c.Abort()
			return
		}

		claims, err := validator.Validate(strings.TrimSpace(token))
		if err != nil {
			logger.Warn(c.Request.Context(), "Rejected relay token", zap.Error(err))
			response.ErrorWithStatus(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, err.Error())
			c.Abort()
			return
		}

		c.Set(RelayNameKey, claims.RelayName())
		c.Next()
	}
}
