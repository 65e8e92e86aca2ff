package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DraftSequence is the sequence every draft proceeding carries
const DraftSequence = 0

// Attachment references a file held by the attachment store
type Attachment struct {
	FileName string `json:"fileName" validate:"required"`
	FileURL  string `json:"fileUrl" validate:"required"`
}

// HearingDetails identifies the hearing a proceeding was recorded at
type HearingDetails struct {
	DateOfHearing *time.Time `gorm:"index" json:"dateOfHearing"`
	JudgeName     string     `json:"judgeName"`
	CourtNumber   string     `json:"courtNumber"`
}

// Proceeding is one court event of a case. Finalized proceedings are numbered
// 1..N per case; the single draft of a case uses DraftSequence.
type Proceeding struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_proceeding_email_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	CaseID   string         `gorm:"type:uuid;not null;index" json:"case"`
	Sequence int            `gorm:"not null" json:"sequence"`
	Type     ProceedingType `gorm:"not null;index" json:"type"`
	Draft    bool           `gorm:"not null;default:false;index" json:"draft"`

	// Owner email, always the case owner's
	Email string `gorm:"not null;index:idx_proceeding_email_created,priority:1" json:"email"`
	// Actor who created the record, differs from Email when an admin files on behalf of the owner
	CreatedBy string `json:"createdBy,omitempty"`

	Summary string         `gorm:"type:text" json:"summary"`
	Details string         `gorm:"type:text" json:"details"`
	Hearing HearingDetails `gorm:"embedded;embeddedPrefix:hearing_" json:"hearingDetails"`

	Payload         DetailPayload  `gorm:"-" json:"-"`
	PayloadJSON     datatypes.JSON `gorm:"column:payload" json:"-"`
	NextHearingDate *time.Time     `gorm:"index" json:"nextHearingDate,omitempty"`

	Attachments               datatypes.JSONSlice[Attachment] `json:"attachments"`
	OrderOfProceedingFilename string                          `json:"orderOfProceedingFilename,omitempty"`

	Case *Case `gorm:"foreignKey:CaseID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (p *Proceeding) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// BeforeSave encodes the detail payload into its column
func (p *Proceeding) BeforeSave(tx *gorm.DB) error {
	if p.Payload == nil {
		p.PayloadJSON = nil
		p.NextHearingDate = nil
		return nil
	}
	if p.Payload.ProceedingType() != p.Type {
		return fmt.Errorf("%s payload on a %s proceeding", p.Payload.ProceedingType(), p.Type)
	}

	raw, err := json.Marshal(p.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode proceeding payload: %w", err)
	}
	p.PayloadJSON = datatypes.JSON(raw)
	p.NextHearingDate = p.Payload.NextHearing()
	return nil
}

// AfterFind decodes the payload column back into its variant
func (p *Proceeding) AfterFind(tx *gorm.DB) error {
	payload, err := DecodeDetailPayload(p.Type, p.PayloadJSON)
	if err != nil {
		return err
	}
	p.Payload = payload
	return nil
}

// Outcome returns the writ status a decision proceeding carries, if any.
func (p *Proceeding) Outcome() string {
	if decision, ok := p.Payload.(DecisionDetails); ok {
		return decision.Outcome()
	}
	return ""
}

// TableName specifies the table name for Proceeding model
func (Proceeding) TableName() string {
	return "proceedings"
}

// MarshalJSON emits the detail payload under the key of its type
func (p Proceeding) MarshalJSON() ([]byte, error) {
	type plain Proceeding
	out := struct {
		plain
		NoticeOfMotion  NoticeOfMotionDetails `json:"noticeOfMotion,omitempty"`
		ReplyTracking   ReplyTrackingDetails  `json:"replyTracking,omitempty"`
		ArgumentDetails ArgumentDetails       `json:"argumentDetails,omitempty"`
		AnyOtherDetails AnyOtherDetails       `json:"anyOtherDetails,omitempty"`
		DecisionDetails DecisionDetails       `json:"decisionDetails,omitempty"`
	}{plain: plain(p)}

	if out.Attachments == nil {
		out.Attachments = datatypes.JSONSlice[Attachment]{}
	}

	switch payload := p.Payload.(type) {
	case NoticeOfMotionDetails:
		out.NoticeOfMotion = payload
	case ReplyTrackingDetails:
		out.ReplyTracking = payload
	case ArgumentDetails:
		out.ArgumentDetails = payload
	case AnyOtherDetails:
		out.AnyOtherDetails = payload
	case DecisionDetails:
		out.DecisionDetails = payload
	}

	return json.Marshal(out)
}
