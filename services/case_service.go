package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"writ_docket_go/models"
)

// Pagination defaults for case listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CaseFilters narrows a case listing
type CaseFilters struct {
	Branch   string
	Status   string
	WritType string
	Page     int
	Limit    int
}

// normalize clamps paging to sane bounds
func (f *CaseFilters) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	f.WritType = strings.ToUpper(strings.TrimSpace(f.WritType))
	f.Branch = strings.TrimSpace(f.Branch)
}

// CaseList is one page of cases
type CaseList struct {
	Cases []models.Case `json:"cases"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// caseAuditValues is the part of a case recorded in audit old/new values
func caseAuditValues(c *models.Case) map[string]interface{} {
	return map[string]interface{}{
		"caseNumber":    c.CaseNumber,
		"caseDate":      c.CaseDate.Format(models.DateLayout),
		"branchName":    c.BranchName,
		"writNumber":    c.WritNumber,
		"writType":      c.WritType,
		"writYear":      c.WritYear,
		"policeStation": c.PoliceStation,
		"petitioner":    c.PetitionerName,
		"email":         c.Email,
	}
}

func checkBranch(deps *Deps, input *CaseInput) error {
	dir := deps.branches()
	if dir == nil {
		return nil
	}
	b, ok := dir.Lookup(input.BranchName)
	if !ok {
		return NewValidationError("branchName", "is not a known branch")
	}
	// Store the directory spelling
	input.BranchName = b.Name
	return nil
}

func wrapCaseWriteError(err error, caseNumber string) error {
	if isUniqueViolation(err) {
		return &ConflictError{Resource: "case number " + caseNumber, Err: err}
	}
	return fmt.Errorf("failed to save case: %w", err)
}

// CreateCase files a new case. It starts PENDING and is owned by the caller,
// or by input.Email when an admin files on someone's behalf.
func CreateCase(db *gorm.DB, deps *Deps, caller Caller, input *CaseInput) (*models.Case, error) {
	if caller.Email == "" {
		return nil, ErrNotFoundOrDenied
	}
	if err := checkBranch(deps, input); err != nil {
		return nil, err
	}

	owner := strings.ToLower(caller.Email)
	if caller.IsAdmin() && input.Email != "" {
		owner = input.Email
	}

	c := &models.Case{
		Email:  owner,
		Status: models.WritStatusPending,
	}
	input.ApplyTo(c)

	if err := db.Create(c).Error; err != nil {
		return nil, wrapCaseWriteError(err, c.CaseNumber)
	}

	entry := NewAuditEntry(caller.AuditContext(), models.AuditActionCreateCase, models.ResourceTypeCase, c.ID,
		fmt.Sprintf("Case %s filed for branch %s", c.CaseNumber, c.BranchName))
	entry.NewValues = caseAuditValues(c)
	deps.record(entry)

	return c, nil
}

// GetCase returns a case the caller may see
func GetCase(db *gorm.DB, caller Caller, id string) (*models.Case, error) {
	return FindAuthorizedCase(db, caller, id)
}

// FindCaseByNumber looks a case up by its case number
func FindCaseByNumber(db *gorm.DB, caller Caller, caseNumber string) (*models.Case, error) {
	var c models.Case
	if err := ScopeCases(db, caller).Where("case_number = ?", strings.TrimSpace(caseNumber)).First(&c).Error; err != nil {
		return nil, notFoundOrDenied(err, "failed to load case")
	}
	return &c, nil
}

// ListCases returns a page of the caller's cases, newest case date first.
// Admins see every case and may narrow by branch.
func ListCases(db *gorm.DB, caller Caller, filters CaseFilters) (*CaseList, error) {
	filters.normalize()

	query := ScopeCases(db.Model(&models.Case{}), caller)
	if filters.Branch != "" {
		query = query.Where("branch_name = ?", filters.Branch)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.WritType != "" {
		query = query.Where("writ_type = ?", filters.WritType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}

	cases := []models.Case{}
	err := query.Order("case_date DESC, created_at DESC").
		Offset((filters.Page - 1) * filters.Limit).
		Limit(filters.Limit).
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	return &CaseList{Cases: cases, Total: total, Page: filters.Page, Limit: filters.Limit}, nil
}

// UpdateCase replaces the editable fields of a case. Status and owner are
// left untouched.
func UpdateCase(db *gorm.DB, deps *Deps, caller Caller, id string, input *CaseInput) (*models.Case, error) {
	c, err := FindAuthorizedCase(db, caller, id)
	if err != nil {
		return nil, err
	}
	if err := checkBranch(deps, input); err != nil {
		return nil, err
	}

	oldValues := caseAuditValues(c)
	input.ApplyTo(c)

	result := db.Model(c).
		Select("*").
		Omit("id", "created_at", "email", "status").
		Updates(c)
	if result.Error != nil {
		return nil, wrapCaseWriteError(result.Error, c.CaseNumber)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFoundOrDenied
	}

	entry := NewAuditEntry(caller.AuditContext(), models.AuditActionUpdateCase, models.ResourceTypeCase, c.ID,
		fmt.Sprintf("Case %s updated", c.CaseNumber))
	entry.OldValues = oldValues
	entry.NewValues = caseAuditValues(c)
	deps.record(entry)

	return c, nil
}

// DeleteCase removes a case and its proceedings in one transaction.
// Attachment files are left in place.
func DeleteCase(db *gorm.DB, deps *Deps, caller Caller, id string) error {
	c, err := FindAuthorizedCase(db, caller, id)
	if err != nil {
		return err
	}

	var removed int64
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("case_id = ?", c.ID).Delete(&models.Proceeding{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete proceedings: %w", result.Error)
		}
		removed = result.RowsAffected

		result = tx.Delete(&models.Case{}, "id = ?", c.ID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete case: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFoundOrDenied
		}
		return nil
	})
	if err != nil {
		return err
	}

	entry := NewAuditEntry(caller.AuditContext(), models.AuditActionDeleteCase, models.ResourceTypeCase, c.ID,
		fmt.Sprintf("Case %s deleted with %d proceeding(s)", c.CaseNumber, removed))
	entry.OldValues = caseAuditValues(c)
	deps.record(entry)
	return nil
}
