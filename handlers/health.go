package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"writ_docket_go/services"
)

// HealthHandler reports whether the database answers
func (a *API) HealthHandler(c echo.Context) error {
	status := map[string]string{"status": "ok", "database": "ok", "storage": "none"}
	if services.Storage != nil {
		status["storage"] = services.Storage.Name()
	}

	sqlDB, err := a.DB.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}
