package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"writ_docket_go/models"
)

// AuditContext contains contextual information for audit logging
type AuditContext struct {
	ActorID       string
	ActorEmail    string
	SourceAddress string
	UserAgent     string
}

// AuditEntry is one mutation handed to the audit recorder
type AuditEntry struct {
	Action       models.AuditAction
	ActorEmail   string
	ResourceType string
	Details      string
	ResourceID   string
	ActorID      string
	// Request metadata (optional)
	SourceAddress string
	UserAgent     string
	// Change tracking (optional)
	OldValues interface{}
	NewValues interface{}
}

// NewAuditEntry fills the actor and request fields of an entry from ctx
func NewAuditEntry(ctx AuditContext, action models.AuditAction, resourceType, resourceID, details string) AuditEntry {
	return AuditEntry{
		Action:        action,
		ActorEmail:    ctx.ActorEmail,
		ActorID:       ctx.ActorID,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		Details:       details,
		SourceAddress: ctx.SourceAddress,
		UserAgent:     ctx.UserAgent,
	}
}

// AuditRecorder receives every mutation. Record must never block the caller
// or fail the operation being audited.
type AuditRecorder interface {
	Record(entry AuditEntry)
}

// DBAuditRecorder persists audit entries asynchronously
type DBAuditRecorder struct {
	DB *gorm.DB
	wg sync.WaitGroup
}

// NewDBAuditRecorder creates a recorder writing to db
func NewDBAuditRecorder(db *gorm.DB) *DBAuditRecorder {
	return &DBAuditRecorder{DB: db}
}

// Record creates the audit log entry in a goroutine
func (r *DBAuditRecorder) Record(entry AuditEntry) {
	r.wg.Add(1)
	// Run in goroutine to avoid blocking the request
	go func() {
		defer r.wg.Done()
		if _, err := WriteAuditLog(r.DB, entry); err != nil {
			log.Error().Err(err).
				Str("action", string(entry.Action)).
				Str("resource_id", entry.ResourceID).
				Msg("[AUDIT] Failed to create audit log")
		}
	}()
}

// Wait blocks until every pending entry has been written
func (r *DBAuditRecorder) Wait() {
	r.wg.Wait()
}

// WriteAuditLog persists one entry synchronously
func WriteAuditLog(db *gorm.DB, entry AuditEntry) (*models.AuditLog, error) {
	auditLog := models.AuditLog{
		ActorEmail:    entry.ActorEmail,
		ActorID:       ptrIfNotEmpty(entry.ActorID),
		ResourceType:  entry.ResourceType,
		ResourceID:    ptrIfNotEmpty(entry.ResourceID),
		Action:        entry.Action,
		Details:       entry.Details,
		OldValues:     encodeAuditValues(entry.OldValues),
		NewValues:     encodeAuditValues(entry.NewValues),
		SourceAddress: entry.SourceAddress,
		UserAgent:     entry.UserAgent,
	}

	if err := db.Create(&auditLog).Error; err != nil {
		return nil, err
	}
	return &auditLog, nil
}

func encodeAuditValues(values interface{}) string {
	if values == nil {
		return ""
	}
	bytes, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(bytes)
}

// ptrIfNotEmpty returns a pointer to the string if not empty, nil otherwise
func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetResourceAuditHistory retrieves the audit history for a specific resource
func GetResourceAuditHistory(db *gorm.DB, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	ActorEmail   string
	ResourceType string
	ResourceID   string
	Action       string
	DateFrom     time.Time
	DateTo       time.Time
	SearchQuery  string
}

// ListAuditLogs retrieves paginated audit logs, newest first
func ListAuditLogs(db *gorm.DB, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	query := db.Model(&models.AuditLog{})

	// Apply filters
	if filters.ActorEmail != "" {
		query = query.Where("actor_email = ?", filters.ActorEmail)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.ResourceID != "" {
		query = query.Where("resource_id = ?", filters.ResourceID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}
	if filters.SearchQuery != "" {
		searchPattern := "%" + filters.SearchQuery + "%"
		query = query.Where("details LIKE ? OR actor_email LIKE ?", searchPattern, searchPattern)
	}

	// Count total
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&logs).Error

	return logs, total, err
}
