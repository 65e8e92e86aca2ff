package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Writ type constants
const (
	WritTypeBail                 = "BAIL"
	WritTypeQuashing             = "QUASHING"
	WritTypeDirection            = "DIRECTION"
	WritTypeSuspensionOfSentence = "SUSPENSION_OF_SENTENCE"
	WritTypeParole               = "PAROLE"
	WritTypeAnyOther             = "ANY_OTHER"
)

// Bail sub-type constants, only meaningful for BAIL writs
const (
	BailSubTypeAnticipatory = "ANTICIPATORY"
	BailSubTypeRegular      = "REGULAR"
)

// Writ status constants
const (
	WritStatusAllowed   = "ALLOWED"
	WritStatusPending   = "PENDING"
	WritStatusDismissed = "DISMISSED"
	WritStatusWithdrawn = "WITHDRAWN"
	WritStatusDirection = "DIRECTION"
)

// InvestigatingOfficer is an officer attached to the FIR behind a case
type InvestigatingOfficer struct {
	Name    string     `json:"name"`
	Rank    string     `json:"rank"`
	Posting string     `json:"posting"`
	Contact int64      `json:"contact"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
}

// Respondent is a party answering the writ
type Respondent struct {
	Name        string `json:"name"`
	Designation string `json:"designation,omitempty"`
}

// Case is a writ petition tracked against an FIR. Proceedings reference it by CaseID.
type Case struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_case_email_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Identity
	CaseNumber string    `gorm:"not null;uniqueIndex" json:"caseNumber"`
	CaseDate   time.Time `gorm:"not null;index:idx_case_branch_date,priority:2" json:"caseDate"`
	Email      string    `gorm:"not null;index:idx_case_email_created,priority:1" json:"email"` // Owner
	BranchName string    `gorm:"not null;index:idx_case_branch_date,priority:1" json:"branchName"`

	// Classification
	WritNumber    string  `gorm:"not null" json:"writNumber"`
	WritType      string  `gorm:"not null;index" json:"writType"`
	WritYear      int     `gorm:"not null" json:"writYear"`
	WritSubType   *string `gorm:"size:20" json:"writSubType,omitempty"`
	WritTypeOther *string `json:"writTypeOther,omitempty"`

	// FIR details
	UnderSection          string                                    `gorm:"not null" json:"underSection"`
	Act                   string                                    `gorm:"not null" json:"act"`
	Sections              datatypes.JSONSlice[string]               `json:"sections"`
	PoliceStation         string                                    `gorm:"not null" json:"policeStation"`
	InvestigatingOfficers datatypes.JSONSlice[InvestigatingOfficer] `gorm:"not null" json:"investigatingOfficers"`

	// Petitioner
	PetitionerName       string `gorm:"not null" json:"petitionerName"`
	PetitionerFatherName string `gorm:"not null" json:"petitionerFatherName"`
	PetitionerAddress    string `gorm:"type:text;not null" json:"petitionerAddress"`
	PetitionerPrayer     string `gorm:"type:text;not null" json:"petitionerPrayer"`

	Respondents datatypes.JSONSlice[Respondent] `json:"respondents"`

	// Only changed by a finalized decision proceeding
	Status string `gorm:"not null;default:PENDING;index" json:"status"`
}

// BeforeCreate hook to generate UUID
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = WritStatusPending
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// IsValidWritType checks if a writ type is valid
func IsValidWritType(writType string) bool {
	validTypes := []string{
		WritTypeBail,
		WritTypeQuashing,
		WritTypeDirection,
		WritTypeSuspensionOfSentence,
		WritTypeParole,
		WritTypeAnyOther,
	}
	for _, t := range validTypes {
		if t == writType {
			return true
		}
	}
	return false
}

// IsValidWritStatus checks if a status value is valid
func IsValidWritStatus(status string) bool {
	validStatuses := []string{
		WritStatusAllowed,
		WritStatusPending,
		WritStatusDismissed,
		WritStatusWithdrawn,
		WritStatusDirection,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// WritStatuses lists every status in display order
func WritStatuses() []string {
	return []string{
		WritStatusPending,
		WritStatusAllowed,
		WritStatusDismissed,
		WritStatusWithdrawn,
		WritStatusDirection,
	}
}
