package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"writ_docket_go/services"
)

const (
	// AccessTokenHeader carries the access token when no bearer token is sent
	AccessTokenHeader = "x-access-token"
	// ContextKeyCaller is the context key for the authenticated caller
	ContextKeyCaller = "caller"
)

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// requestToken reads the token from x-access-token, then Authorization
func requestToken(c echo.Context) string {
	if token := strings.TrimSpace(c.Request().Header.Get(AccessTokenHeader)); token != "" {
		return token
	}
	if token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); ok {
		return token
	}
	return ""
}

// RequireAuth is middleware that requires a valid access token
func RequireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := requestToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "access token required")
			}

			claims, err := services.ParseAccessToken(secret, token)
			if err != nil {
				services.LogSecurityEvent("INVALID_TOKEN", c.RealIP(), err.Error())
				if services.Monitor != nil {
					services.Monitor.TrackInvalidToken(c.RealIP())
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			c.Set(ContextKeyCaller, claims.Caller())
			return next(c)
		}
	}
}

// RequireAdmin is middleware that requires the admin role
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := c.Get(ContextKeyCaller).(services.Caller)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}
			if !caller.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}

// GetCaller retrieves the authenticated caller, with the request metadata
// the audit middleware attached. The zero Caller matches no case.
func GetCaller(c echo.Context) services.Caller {
	caller, _ := c.Get(ContextKeyCaller).(services.Caller)
	audit := GetAuditContext(c)
	caller.SourceAddress = audit.SourceAddress
	caller.UserAgent = audit.UserAgent
	return caller
}
