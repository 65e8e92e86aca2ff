package handlers

import (
	"github.com/labstack/echo/v4"

	"writ_docket_go/middleware"
)

// RegisterRoutes mounts the REST surface on e
func (a *API) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", a.HealthHandler)

	api := e.Group("/api/v1")
	api.Use(middleware.RequireAuth(a.Config.JWTSecret))
	api.Use(middleware.AuditContext())

	cases := api.Group("/cases")
	cases.GET("", a.ListCasesHandler)
	cases.GET("/search", a.SearchCasesHandler)
	cases.GET("/dash", a.DashboardSummaryHandler)
	cases.POST("", a.CreateCaseHandler)
	cases.GET("/:id", a.GetCaseHandler)
	cases.PUT("/:id", a.UpdateCaseHandler)
	cases.DELETE("/:id", a.DeleteCaseHandler)
	cases.GET("/:id/export", a.ExportCaseHandler)

	uploads := middleware.UploadRateLimiter()

	proceedings := api.Group("/proceedings")
	proceedings.GET("", a.ListProceedingsHandler)
	proceedings.GET("/case/:caseId", a.ListProceedingsByCaseHandler)
	proceedings.GET("/case/:caseId/draft", a.FindDraftByCaseHandler)
	proceedings.POST("", a.CreateProceedingHandler, uploads.Middleware())
	proceedings.GET("/:id", a.GetProceedingHandler)
	proceedings.PUT("/:id", a.UpdateProceedingHandler, uploads.Middleware())
	proceedings.DELETE("/:id", a.DeleteProceedingHandler)

	api.POST("/attachments", a.UploadAttachmentHandler, uploads.Middleware())
	api.GET("/attachments/:filename", a.DownloadAttachmentHandler)

	api.GET("/branches", a.ListBranchesHandler)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/summary", a.DashboardSummaryHandler)
	admin.GET("/audit-logs", a.GetAuditLogsHandler)
	admin.GET("/audit-logs/:resourceType/:resourceId", a.ResourceAuditHistoryHandler)
	admin.GET("/security-alerts", a.SecurityAlertsHandler)
}
