package services

import (
	"fmt"

	"gorm.io/gorm"

	"writ_docket_go/models"
)

// StatusChange records a case status moved by a decision proceeding
type StatusChange struct {
	CaseID       string
	CaseNumber   string
	OwnerEmail   string
	ProceedingID string
	From         string
	To           string
}

// PropagateStatus copies the outcome of a finalized decision onto its case.
// It runs in the same transaction as the proceeding write and returns nil
// when the case status did not change.
func PropagateStatus(tx *gorm.DB, p *models.Proceeding) (*StatusChange, error) {
	if p.Draft || p.Type != models.ProceedingTypeDecision {
		return nil, nil
	}
	outcome := p.Outcome()
	if outcome == "" {
		return nil, nil
	}
	if !models.IsValidWritStatus(outcome) {
		return nil, NewValidationError("decisionDetails.writStatus", "must be one of "+fmt.Sprint(models.WritStatuses()))
	}

	var c models.Case
	if err := tx.Where("id = ?", p.CaseID).First(&c).Error; err != nil {
		return nil, notFoundOrDenied(err, "failed to load case for status update")
	}
	if c.Status == outcome {
		return nil, nil
	}
	from := c.Status

	if err := tx.Model(&c).Update("status", outcome).Error; err != nil {
		return nil, fmt.Errorf("failed to update case status: %w", err)
	}

	return &StatusChange{
		CaseID:       c.ID,
		CaseNumber:   c.CaseNumber,
		OwnerEmail:   c.Email,
		ProceedingID: p.ID,
		From:         from,
		To:           outcome,
	}, nil
}
