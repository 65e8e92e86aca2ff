package services

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/go-playground/validator/v10"

	"writ_docket_go/models"
)

// HearingInput is the hearing block of a proceeding payload
type HearingInput struct {
	DateOfHearing models.FlexDate `json:"dateOfHearing"`
	JudgeName     string          `json:"judgeName"`
	CourtNumber   string          `json:"courtNumber"`
}

// ProceedingPayload is the wire shape of a proceeding create or update.
// Exactly one of the detail lists may be set, the one named by Type.
type ProceedingPayload struct {
	Case    string                `json:"case" validate:"required"`
	Type    models.ProceedingType `json:"type" validate:"required,oneof=NOTICE_OF_MOTION TO_FILE_REPLY ARGUMENT ANY_OTHER DECISION"`
	Draft   bool                  `json:"draft"`
	Summary string                `json:"summary"`
	Details string                `json:"details"`

	HearingDetails *HearingInput `json:"hearingDetails"`

	NoticeOfMotion  models.NoticeOfMotionDetails `json:"noticeOfMotion"`
	ReplyTracking   models.ReplyTrackingDetails  `json:"replyTracking"`
	ArgumentDetails models.ArgumentDetails       `json:"argumentDetails"`
	AnyOtherDetails models.AnyOtherDetails       `json:"anyOtherDetails"`
	DecisionDetails models.DecisionDetails       `json:"decisionDetails"`

	Attachments               []models.Attachment `json:"attachments" validate:"dive"`
	OrderOfProceedingFilename string              `json:"orderOfProceedingFilename"`
}

var proceedingPayloadType = reflect.TypeOf(ProceedingPayload{})

// DecodeProceedingPayload strictly decodes and validates a proceeding body.
// Every problem found is reported in one ValidationError.
func DecodeProceedingPayload(raw []byte) (*ProceedingPayload, error) {
	verr := &ValidationError{}
	verr.Fields = append(verr.Fields, unknownFields(raw, proceedingPayloadType, "")...)

	var payload ProceedingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		verr.Fields = append(verr.Fields, decodeError(err))
		return nil, verr
	}

	if err := ValidateProceedingPayload(&payload); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			verr.Fields = append(verr.Fields, ve.Fields...)
		} else {
			return nil, err
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ValidateProceedingPayload normalizes the payload in place and checks the
// rules of its type.
func ValidateProceedingPayload(p *ProceedingPayload) error {
	sanitizeStrings(reflect.ValueOf(p))

	verr := &ValidationError{}
	verr.Fields = append(verr.Fields, validateStruct(p, "")...)

	if models.IsValidProceedingType(p.Type) {
		verr.Fields = append(verr.Fields, validateVariant(p)...)
	}

	return verr.OrNil()
}

// presentPayloads returns the detail lists supplied, keyed by the type they belong to
func (p *ProceedingPayload) presentPayloads() map[models.ProceedingType]models.DetailPayload {
	present := make(map[models.ProceedingType]models.DetailPayload)
	if p.NoticeOfMotion != nil {
		present[models.ProceedingTypeNoticeOfMotion] = p.NoticeOfMotion
	}
	if p.ReplyTracking != nil {
		present[models.ProceedingTypeToFileReply] = p.ReplyTracking
	}
	if p.ArgumentDetails != nil {
		present[models.ProceedingTypeArgument] = p.ArgumentDetails
	}
	if p.AnyOtherDetails != nil {
		present[models.ProceedingTypeAnyOther] = p.AnyOtherDetails
	}
	if p.DecisionDetails != nil {
		present[models.ProceedingTypeDecision] = p.DecisionDetails
	}
	return present
}

// Variant returns the detail payload matching the declared type, nil when absent.
func (p *ProceedingPayload) Variant() models.DetailPayload {
	return p.presentPayloads()[p.Type]
}

func validateVariant(p *ProceedingPayload) []FieldError {
	var errs []FieldError

	for t := range p.presentPayloads() {
		if t != p.Type {
			errs = append(errs, FieldError{
				Field:   models.PayloadKey(t),
				Message: fmt.Sprintf("is not allowed for type %s", p.Type),
			})
		}
	}

	key := models.PayloadKey(p.Type)
	variant := p.Variant()
	if variant == nil {
		if !p.Draft && p.Type != models.ProceedingTypeToFileReply {
			errs = append(errs, FieldError{Field: key, Message: "is required"})
		}
		return sortFieldErrors(errs)
	}
	if variant.Len() == 0 {
		errs = append(errs, FieldError{Field: key, Message: "must contain at least 1 item(s)"})
		return sortFieldErrors(errs)
	}

	switch v := variant.(type) {
	case models.NoticeOfMotionDetails:
		for i := range v {
			errs = append(errs, validateStruct(v[i], fmt.Sprintf("%s[%d].", key, i))...)
		}
	case models.ReplyTrackingDetails:
		for i := range v {
			errs = append(errs, validateStruct(v[i], fmt.Sprintf("%s[%d].", key, i))...)
		}
	case models.ArgumentDetails:
		for i := range v {
			errs = append(errs, validateStruct(v[i], fmt.Sprintf("%s[%d].", key, i))...)
		}
	case models.AnyOtherDetails:
		for i := range v {
			errs = append(errs, validateStruct(v[i], fmt.Sprintf("%s[%d].", key, i))...)
		}
	case models.DecisionDetails:
		for i := range v {
			errs = append(errs, validateStruct(v[i], fmt.Sprintf("%s[%d].", key, i))...)
		}
	default:
		errs = append(errs, FieldError{Field: "type", Message: fmt.Sprintf("has no payload rules for %s", p.Type)})
	}
	return sortFieldErrors(errs)
}

// sortFieldErrors keeps responses stable across map iteration order
func sortFieldErrors(errs []FieldError) []FieldError {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

func proceedingPayloadRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(ProceedingPayload)

	if p.HearingDetails == nil {
		if !p.Draft {
			sl.ReportError(p.HearingDetails, "hearingDetails", "HearingDetails", "required", "")
		}
		return
	}

	if p.Draft {
		reportInvalidDate(sl, p.HearingDetails.DateOfHearing, "hearingDetails.dateOfHearing")
		return
	}
	requireDate(sl, p.HearingDetails.DateOfHearing, "hearingDetails.dateOfHearing")
}

// Apply copies the validated payload onto a proceeding record
func (p *ProceedingPayload) Apply(record *models.Proceeding) {
	record.Type = p.Type
	record.Draft = p.Draft
	record.Summary = p.Summary
	record.Details = p.Details
	record.Payload = p.Variant()
	record.OrderOfProceedingFilename = p.OrderOfProceedingFilename

	record.Attachments = append([]models.Attachment{}, p.Attachments...)

	record.Hearing = models.HearingDetails{}
	if p.HearingDetails != nil {
		record.Hearing = models.HearingDetails{
			DateOfHearing: p.HearingDetails.DateOfHearing.Ptr(),
			JudgeName:     p.HearingDetails.JudgeName,
			CourtNumber:   p.HearingDetails.CourtNumber,
		}
	}
}
