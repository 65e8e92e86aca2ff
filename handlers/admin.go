package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"writ_docket_go/middleware"
	"writ_docket_go/models"
	"writ_docket_go/services"
)

// auditPageSize is the number of audit entries per page
const auditPageSize = 50

// AuditLogEntry is an audit row with its old and new values diffed per field
type AuditLogEntry struct {
	models.AuditLog
	Changes []models.AuditChange `json:"changes"`
}

// AuditLogPage is one page of the audit listing
type AuditLogPage struct {
	Logs     []AuditLogEntry `json:"logs"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func auditLogEntries(logs []models.AuditLog) []AuditLogEntry {
	entries := make([]AuditLogEntry, 0, len(logs))
	for i := range logs {
		changes := logs[i].Changes()
		if changes == nil {
			changes = []models.AuditChange{}
		}
		entries = append(entries, AuditLogEntry{AuditLog: logs[i], Changes: changes})
	}
	return entries
}

// DashboardSummaryHandler returns case counts and upcoming hearings over the
// cases the caller may see
func (a *API) DashboardSummaryHandler(c echo.Context) error {
	summary, err := services.GetDashboardSummary(a.DB, middleware.GetCaller(c), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// GetAuditLogsHandler returns filtered and paginated audit logs
func (a *API) GetAuditLogsHandler(c echo.Context) error {
	page := queryInt(c, "page")
	if page < 1 {
		page = 1
	}

	from, to, err := services.ParseDateRange(c.QueryParam("dateFrom"), c.QueryParam("dateTo"))
	if err != nil {
		return err
	}

	filters := services.AuditLogFilters{
		ActorEmail:   c.QueryParam("actorEmail"),
		ResourceType: c.QueryParam("resourceType"),
		ResourceID:   c.QueryParam("resourceId"),
		Action:       c.QueryParam("action"),
		DateFrom:     from,
		DateTo:       to,
		SearchQuery:  c.QueryParam("search"),
	}

	logs, total, err := services.ListAuditLogs(a.DB, filters, page, auditPageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AuditLogPage{Logs: auditLogEntries(logs), Total: total, Page: page, PageSize: auditPageSize})
}

// SecurityAlertsHandler lists recent invalid token alerts
func (a *API) SecurityAlertsHandler(c echo.Context) error {
	alerts := []services.SecurityAlert{}
	if services.Monitor != nil {
		alerts = services.Monitor.GetRecentAlerts()
	}
	return c.JSON(http.StatusOK, alerts)
}

// ResourceAuditHistoryHandler returns every audit entry of one case,
// proceeding or attachment, with per-field changes
func (a *API) ResourceAuditHistoryHandler(c echo.Context) error {
	logs, err := services.GetResourceAuditHistory(a.DB, strings.ToUpper(c.Param("resourceType")), c.Param("resourceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, auditLogEntries(logs))
}
