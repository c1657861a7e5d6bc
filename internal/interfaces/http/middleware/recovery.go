package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/interfaces/http/response"
	"tip-chain.backend/pkg/logger"
)

// RecoveryMiddleware turns a handler panic into a logged 500
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error(c.Request.Context(), "Panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.String("panic", fmt.Sprint(recovered)),
			zap.Stack("stack"),
		)
		response.ErrorWithStatus(c, http.StatusInternalServerError, domainerrors.CodeInternalError, "internal server error")
		c.Abort()
	})
}
