package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rideledger/rideledger/internal/tenantctx"
)

const (
	headerTenantID  = "X-Tenant-ID"
	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
	headerRequestID = "X-Request-ID"

	contextRequestIDKey = "request_id"
)

// RequestID assigns a correlation id to every request, honouring the
// gateway's id when one is forwarded.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextRequestIDKey, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// TenantScope lifts the gateway-verified identity headers into the request
// context. Requests without a tenant are rejected before any handler runs;
// the gateway owns authentication, this service only enforces scoping.
func TenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(headerTenantID)
		if tenantID == "" {
			writeProblem(c, http.StatusUnauthorized, "TENANT_CONTEXT_MISSING",
				"tenant identity header is required", nil)
			return
		}

		scope := tenantctx.Scope{
			TenantID: tenantID,
			UserID:   c.GetHeader(headerUserID),
			Email:    c.GetHeader(headerUserEmail),
		}
		c.Request = c.Request.WithContext(tenantctx.WithScope(c.Request.Context(), scope))
		c.Next()
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString(contextRequestIDKey)),
		}
		if tenant := c.GetHeader(headerTenantID); tenant != "" {
			fields = append(fields, zap.String("tenant_id", tenant))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// Recovery converts panics into problem responses instead of dropping the
// connection.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic",
					zap.Any("panic", r),
					zap.String("path", c.FullPath()),
					zap.String("request_id", c.GetString(contextRequestIDKey)),
					zap.Stack("stack"),
				)
				writeProblem(c, http.StatusInternalServerError, "INFRASTRUCTURE_FAILURE",
					"internal error", nil)
			}
		}()
		c.Next()
	}
}
