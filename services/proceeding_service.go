package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"writ_docket_go/models"
)

// placeFunc writes a proceeding inside the placement transaction
type placeFunc func(tx *gorm.DB) (*Placement, error)

// commitPlacement runs write and the status propagation in one transaction
// while holding the case lock. Conflicts on the sequence index are retried
// with a fresh read.
func commitPlacement(ctx context.Context, db *gorm.DB, deps *Deps, record *models.Proceeding, write placeFunc) (*Placement, *StatusChange, error) {
	release, err := deps.locker().Lock(ctx, record.CaseID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	for attempt := 1; ; attempt++ {
		var (
			placement *Placement
			change    *StatusChange
		)
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			if placement, err = write(tx); err != nil {
				return err
			}
			change, err = PropagateStatus(tx, record)
			return err
		})
		if err == nil {
			return placement, change, nil
		}
		if !IsConflict(err) || attempt >= maxPlacementAttempts {
			return nil, nil, err
		}
		log.Debug().Err(err).Int("attempt", attempt).Str("case_id", record.CaseID).Msg("Retrying proceeding placement")
	}
}

// afterCommit sends the audit entries and the status notification of a
// committed proceeding write.
func afterCommit(deps *Deps, caller Caller, action models.AuditAction, record *models.Proceeding, placement *Placement, change *StatusChange) {
	actx := caller.AuditContext()

	details := fmt.Sprintf("%s proceeding on case %s", record.Type, record.CaseID)
	if placement != nil && placement.Finalized {
		details = fmt.Sprintf("%s proceeding #%d on case %s", record.Type, record.Sequence, record.CaseID)
	}
	entry := NewAuditEntry(actx, action, models.ResourceTypeProceeding, record.ID, details)
	if placement != nil && placement.ReplacedDraftID != "" {
		entry.OldValues = map[string]interface{}{"draftId": placement.ReplacedDraftID}
		entry.NewValues = map[string]interface{}{"id": record.ID, "sequence": record.Sequence}
	}
	deps.record(entry)

	if change != nil {
		statusEntry := NewAuditEntry(actx, models.AuditActionUpdateCaseStatus, models.ResourceTypeCase, change.CaseID,
			fmt.Sprintf("Case %s status set by proceeding %s", change.CaseNumber, change.ProceedingID))
		statusEntry.OldValues = map[string]interface{}{"status": change.From}
		statusEntry.NewValues = map[string]interface{}{"status": change.To}
		deps.record(statusEntry)
		deps.notifyStatusChange(change)
	}
}

// CreateProceeding files a new proceeding under a case the caller may act on.
// A draft takes the single draft slot of the case; a finalized proceeding
// discards that draft and gets the next sequence number.
func CreateProceeding(ctx context.Context, db *gorm.DB, deps *Deps, caller Caller, payload *ProceedingPayload) (*models.Proceeding, error) {
	c, err := FindAuthorizedCase(db, caller, payload.Case)
	if err != nil {
		return nil, err
	}

	record := &models.Proceeding{
		CaseID:    c.ID,
		Email:     c.Email,
		CreatedBy: caller.Email,
	}
	payload.Apply(record)

	placement, change, err := commitPlacement(ctx, db, deps, record, func(tx *gorm.DB) (*Placement, error) {
		return PlaceProceeding(tx, record)
	})
	if err != nil {
		return nil, err
	}

	action := models.AuditActionCreateProceeding
	if placement.ReplacedDraftID != "" {
		action = models.AuditActionFinalizeProceeding
	}
	afterCommit(deps, caller, action, record, placement, change)
	return record, nil
}

// UpdateProceeding rewrites a proceeding. Type and case are fixed at
// creation and a finalized proceeding cannot go back to draft. Updating a
// draft with draft=false finalizes it under a new id and sequence number.
func UpdateProceeding(ctx context.Context, db *gorm.DB, deps *Deps, caller Caller, id string, payload *ProceedingPayload) (*models.Proceeding, error) {
	existing, c, err := FindAuthorizedProceeding(db, caller, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if payload.Case != existing.CaseID {
		verr.Add("case", "cannot be changed")
	}
	if payload.Type != existing.Type {
		verr.Add("type", "cannot be changed")
	}
	if !existing.Draft && payload.Draft {
		verr.Add("draft", "a finalized proceeding cannot return to draft")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	record := *existing
	record.Email = c.Email
	payload.Apply(&record)

	var write placeFunc
	if existing.Draft {
		write = func(tx *gorm.DB) (*Placement, error) {
			// The draft may have been finalized while we waited for the lock
			var current models.Proceeding
			if err := tx.Select("id").Where("id = ? AND draft = ?", existing.ID, true).First(&current).Error; err != nil {
				return nil, notFoundOrDenied(err, "failed to reload draft")
			}
			return PlaceProceeding(tx, &record)
		}
	} else {
		write = func(tx *gorm.DB) (*Placement, error) {
			result := tx.Model(&record).Select("*").Omit("id", "case_id", "sequence", "type", "draft", "created_at", "created_by").Updates(&record)
			if result.Error != nil {
				return nil, wrapPlacementError(result.Error, &record)
			}
			if result.RowsAffected == 0 {
				return nil, ErrNotFoundOrDenied
			}
			return &Placement{}, nil
		}
	}

	placement, change, err := commitPlacement(ctx, db, deps, &record, write)
	if err != nil {
		return nil, err
	}

	action := models.AuditActionUpdateProceeding
	if existing.Draft && !record.Draft {
		action = models.AuditActionFinalizeProceeding
	}
	afterCommit(deps, caller, action, &record, placement, change)
	return &record, nil
}

// GetProceeding returns a proceeding whose case the caller may act on
func GetProceeding(db *gorm.DB, caller Caller, id string) (*models.Proceeding, error) {
	p, _, err := FindAuthorizedProceeding(db, caller, id)
	return p, err
}

// ListProceedingsByCase returns the finalized proceedings of a case in
// sequence order, followed by its draft if there is one.
func ListProceedingsByCase(db *gorm.DB, caller Caller, caseID string) ([]models.Proceeding, error) {
	c, err := FindAuthorizedCase(db, caller, caseID)
	if err != nil {
		return nil, err
	}

	proceedings := []models.Proceeding{}
	if err := db.Where("case_id = ?", c.ID).Order("draft ASC, sequence ASC").Find(&proceedings).Error; err != nil {
		return nil, fmt.Errorf("failed to list proceedings: %w", err)
	}
	return proceedings, nil
}

// FindDraftByCase returns the draft of a case, or nil when it has none
func FindDraftByCase(db *gorm.DB, caller Caller, caseID string) (*models.Proceeding, error) {
	c, err := FindAuthorizedCase(db, caller, caseID)
	if err != nil {
		return nil, err
	}

	var draft models.Proceeding
	err = db.Where("case_id = ? AND email = ? AND draft = ?", c.ID, c.Email, true).First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return &draft, nil
}

// DeleteProceeding removes a proceeding. Later sequence numbers are not
// renumbered and attachment files are left in place.
func DeleteProceeding(db *gorm.DB, deps *Deps, caller Caller, id string) error {
	p, _, err := FindAuthorizedProceeding(db, caller, id)
	if err != nil {
		return err
	}

	result := db.Delete(&models.Proceeding{}, "id = ?", p.ID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete proceeding: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFoundOrDenied
	}

	entry := NewAuditEntry(caller.AuditContext(), models.AuditActionDeleteProceeding, models.ResourceTypeProceeding, p.ID,
		fmt.Sprintf("%s proceeding #%d on case %s deleted", p.Type, p.Sequence, p.CaseID))
	entry.OldValues = map[string]interface{}{"sequence": p.Sequence, "draft": p.Draft}
	deps.record(entry)
	return nil
}

// ProceedingFilters narrows a listing of the caller's proceedings
type ProceedingFilters struct {
	CaseID string
	Type   string
	Draft  *bool
	Page   int
	Limit  int
}

// ProceedingList is one page of proceedings
type ProceedingList struct {
	Proceedings []models.Proceeding `json:"proceedings"`
	Total       int64               `json:"total"`
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
}

// ListProceedings returns a page of proceedings across every case the caller
// may see, most recently created first.
func ListProceedings(db *gorm.DB, caller Caller, filters ProceedingFilters) (*ProceedingList, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = DefaultPageSize
	}
	if filters.Limit > MaxPageSize {
		filters.Limit = MaxPageSize
	}

	visible := ScopeCases(db.Model(&models.Case{}), caller).Select("id")
	query := db.Model(&models.Proceeding{}).Where("case_id IN (?)", visible)
	if filters.CaseID != "" {
		query = query.Where("case_id = ?", filters.CaseID)
	}
	if t := strings.ToUpper(strings.TrimSpace(filters.Type)); t != "" {
		query = query.Where("type = ?", t)
	}
	if filters.Draft != nil {
		query = query.Where("draft = ?", *filters.Draft)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count proceedings: %w", err)
	}

	proceedings := []models.Proceeding{}
	err := query.Order("created_at DESC, sequence DESC").
		Offset((filters.Page - 1) * filters.Limit).
		Limit(filters.Limit).
		Find(&proceedings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list proceedings: %w", err)
	}
	return &ProceedingList{Proceedings: proceedings, Total: total, Page: filters.Page, Limit: filters.Limit}, nil
}
