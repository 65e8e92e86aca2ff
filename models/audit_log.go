package models

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction represents the type of operation performed
type AuditAction string

const (
	AuditActionCreateCase         AuditAction = "CREATE_CASE"
	AuditActionUpdateCase         AuditAction = "UPDATE_CASE"
	AuditActionDeleteCase         AuditAction = "DELETE_CASE"
	AuditActionUpdateCaseStatus   AuditAction = "UPDATE_CASE_STATUS"
	AuditActionCreateProceeding   AuditAction = "CREATE_PROCEEDING"
	AuditActionUpdateProceeding   AuditAction = "UPDATE_PROCEEDING"
	AuditActionFinalizeProceeding AuditAction = "FINALIZE_PROCEEDING"
	AuditActionDeleteProceeding   AuditAction = "DELETE_PROCEEDING"
	AuditActionUploadAttachment   AuditAction = "UPLOAD_ATTACHMENT"
)

// Audited resource types
const (
	ResourceTypeCase       = "CASE"
	ResourceTypeProceeding = "PROCEEDING"
	ResourceTypeAttachment = "ATTACHMENT"
)

// AuditLog represents an immutable record of a mutation
type AuditLog struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"createdAt"`

	// Actor identification
	ActorEmail string  `gorm:"not null;index:idx_audit_actor" json:"actorEmail"`
	ActorID    *string `json:"actorId,omitempty"`

	// Target resource
	ResourceType string  `gorm:"not null;index:idx_audit_resource" json:"resourceType"`
	ResourceID   *string `gorm:"index:idx_audit_resource" json:"resourceId,omitempty"`

	// Operation details
	Action  AuditAction `gorm:"not null;index:idx_audit_action" json:"action"`
	Details string      `gorm:"type:text" json:"details,omitempty"` // Human-readable summary

	// Change tracking (for UPDATE operations)
	OldValues string `gorm:"type:text" json:"oldValues,omitempty"` // JSON encoded
	NewValues string `gorm:"type:text" json:"newValues,omitempty"` // JSON encoded

	// Request metadata (optional)
	SourceAddress string `json:"sourceAddress,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
}

// AuditChange represents a single field change
type AuditChange struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
}

// Changes parses OldValues and NewValues into a slice of AuditChange
func (a *AuditLog) Changes() []AuditChange {
	var changes []AuditChange
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})

	if a.OldValues != "" {
		_ = json.Unmarshal([]byte(a.OldValues), &oldMap)
	}
	if a.NewValues != "" {
		_ = json.Unmarshal([]byte(a.NewValues), &newMap)
	}

	keys := make(map[string]struct{})
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	for k := range keys {
		o := oldMap[k]
		n := newMap[k]
		if !reflect.DeepEqual(o, n) {
			changes = append(changes, AuditChange{Field: k, Old: o, New: n})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// BeforeCreate generates UUID
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of audit logs (immutability)
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// BeforeDelete prevents deletion of audit logs (immutability)
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
