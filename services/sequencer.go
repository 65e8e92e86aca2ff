package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"writ_docket_go/models"
)

// maxPlacementAttempts bounds the retries of a placement that lost a race
// on the (case, sequence) index.
const maxPlacementAttempts = 5

// Placement reports what the sequencer did with a proceeding
type Placement struct {
	// Finalized is set when a finalized sequence number was assigned
	Finalized bool
	// ReplacedDraftID is the draft discarded by a finalization, if any
	ReplacedDraftID string
}

// PlaceProceeding decides where a proceeding goes and writes it inside tx.
// Drafts are upserted into the single draft slot of the case; finalized
// proceedings replace any draft and take the next sequence number.
func PlaceProceeding(tx *gorm.DB, p *models.Proceeding) (*Placement, error) {
	if p.Draft {
		return placeDraft(tx, p)
	}
	return placeFinal(tx, p)
}

func placeDraft(tx *gorm.DB, p *models.Proceeding) (*Placement, error) {
	p.Sequence = models.DraftSequence

	var existing models.Proceeding
	err := tx.Where("case_id = ? AND email = ? AND draft = ?", p.CaseID, p.Email, true).First(&existing).Error
	switch {
	case err == nil:
		// Overwrite in place; identity and creation time are kept
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		if err := tx.Save(p).Error; err != nil {
			return nil, wrapPlacementError(err, p)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		p.ID = ""
		if err := tx.Create(p).Error; err != nil {
			return nil, wrapPlacementError(err, p)
		}
	default:
		return nil, fmt.Errorf("failed to look up draft: %w", err)
	}
	return &Placement{}, nil
}

func placeFinal(tx *gorm.DB, p *models.Proceeding) (*Placement, error) {
	placement := &Placement{Finalized: true}

	var draft models.Proceeding
	err := tx.Where("case_id = ? AND email = ? AND draft = ?", p.CaseID, p.Email, true).First(&draft).Error
	switch {
	case err == nil:
		if err := tx.Delete(&models.Proceeding{}, "id = ?", draft.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to discard draft: %w", err)
		}
		placement.ReplacedDraftID = draft.ID
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("failed to look up draft: %w", err)
	}

	var last int
	row := tx.Model(&models.Proceeding{}).
		Where("case_id = ? AND draft = ?", p.CaseID, false).
		Select("COALESCE(MAX(sequence), 0)").
		Row()
	if err := row.Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to read last sequence: %w", err)
	}

	// Finalization is replace-and-renumber: always a new record
	p.ID = ""
	p.CreatedAt = time.Time{}
	p.Sequence = last + 1
	if err := tx.Create(p).Error; err != nil {
		return nil, wrapPlacementError(err, p)
	}
	return placement, nil
}

func wrapPlacementError(err error, p *models.Proceeding) error {
	if isUniqueViolation(err) {
		return &ConflictError{
			Resource: fmt.Sprintf("proceeding %d of case %s", p.Sequence, p.CaseID),
			Err:      err,
		}
	}
	return fmt.Errorf("failed to save proceeding: %w", err)
}
