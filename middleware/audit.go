package middleware

import (
	"github.com/labstack/echo/v4"

	"writ_docket_go/services"
)

const ContextKeyAuditContext = "audit_context"

// AuditContext is middleware that extracts caller info for audit logging
func AuditContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := services.AuditContext{
				SourceAddress: c.RealIP(),
				UserAgent:     c.Request().UserAgent(),
			}

			if caller, ok := c.Get(ContextKeyCaller).(services.Caller); ok {
				ctx.ActorID = caller.UserID
				ctx.ActorEmail = caller.Email
			}

			c.Set(ContextKeyAuditContext, ctx)
			return next(c)
		}
	}
}

// GetAuditContext retrieves the audit context from the request
func GetAuditContext(c echo.Context) services.AuditContext {
	if ctx, ok := c.Get(ContextKeyAuditContext).(services.AuditContext); ok {
		return ctx
	}
	return services.AuditContext{}
}
