package services

import (
	"strings"

	"gorm.io/gorm"

	"writ_docket_go/models"
)

// RoleAdmin is the token role that may act on every case
const RoleAdmin = "ADMIN"

// Caller is the identity a request acts as, taken from its access token
type Caller struct {
	Email  string
	Role   string
	Branch string
	UserID string

	// Request metadata carried into audit entries
	SourceAddress string
	UserAgent     string
}

// AuditContext returns the audit fields describing this caller
func (c Caller) AuditContext() AuditContext {
	return AuditContext{
		ActorID:       c.UserID,
		ActorEmail:    c.Email,
		SourceAddress: c.SourceAddress,
		UserAgent:     c.UserAgent,
	}
}

// IsAdmin reports whether the caller bypasses ownership checks
func (c Caller) IsAdmin() bool {
	return strings.EqualFold(c.Role, RoleAdmin)
}

// CanAccessCase applies the ownership policy: admins may act on any case,
// everyone else only on cases they own.
func CanAccessCase(caller Caller, c *models.Case) bool {
	if c == nil || caller.Email == "" {
		return false
	}
	if caller.IsAdmin() {
		return true
	}
	return strings.EqualFold(c.Email, caller.Email)
}

// ScopeCases restricts a case query to the cases the caller may see
func ScopeCases(db *gorm.DB, caller Caller) *gorm.DB {
	if caller.Email == "" {
		// Return query that matches nothing
		return db.Where("1 = 0")
	}
	if caller.IsAdmin() {
		return db
	}
	// Owner emails are stored lower-cased
	return db.Where("email = ?", strings.ToLower(caller.Email))
}

// FindAuthorizedCase loads a case the caller may act on. Absence and a
// failed ownership check both return ErrNotFoundOrDenied.
func FindAuthorizedCase(db *gorm.DB, caller Caller, caseID string) (*models.Case, error) {
	if caseID == "" {
		return nil, ErrNotFoundOrDenied
	}

	var c models.Case
	if err := db.Where("id = ?", caseID).First(&c).Error; err != nil {
		return nil, notFoundOrDenied(err, "failed to load case")
	}
	if !CanAccessCase(caller, &c) {
		return nil, ErrNotFoundOrDenied
	}
	return &c, nil
}

// FindAuthorizedProceeding loads a proceeding whose parent case the caller
// may act on, together with that case.
func FindAuthorizedProceeding(db *gorm.DB, caller Caller, proceedingID string) (*models.Proceeding, *models.Case, error) {
	if proceedingID == "" {
		return nil, nil, ErrNotFoundOrDenied
	}

	var p models.Proceeding
	if err := db.Where("id = ?", proceedingID).First(&p).Error; err != nil {
		return nil, nil, notFoundOrDenied(err, "failed to load proceeding")
	}

	c, err := FindAuthorizedCase(db, caller, p.CaseID)
	if err != nil {
		return nil, nil, err
	}
	return &p, c, nil
}
