package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ProceedingType discriminates the detail payload a proceeding carries
type ProceedingType string

const (
	ProceedingTypeNoticeOfMotion ProceedingType = "NOTICE_OF_MOTION"
	ProceedingTypeToFileReply    ProceedingType = "TO_FILE_REPLY"
	ProceedingTypeArgument       ProceedingType = "ARGUMENT"
	ProceedingTypeAnyOther       ProceedingType = "ANY_OTHER"
	ProceedingTypeDecision       ProceedingType = "DECISION"
)

// Attendance modes for a notice of motion
const (
	AttendanceByFormat = "BY_FORMAT"
	AttendanceByPerson = "BY_PERSON"
)

// ProceedingTypes lists the closed set of proceeding types
func ProceedingTypes() []ProceedingType {
	return []ProceedingType{
		ProceedingTypeNoticeOfMotion,
		ProceedingTypeToFileReply,
		ProceedingTypeArgument,
		ProceedingTypeAnyOther,
		ProceedingTypeDecision,
	}
}

// IsValidProceedingType checks if a proceeding type is part of the closed set
func IsValidProceedingType(t ProceedingType) bool {
	for _, valid := range ProceedingTypes() {
		if valid == t {
			return true
		}
	}
	return false
}

// PayloadKey is the JSON key under which each type's detail payload travels.
func PayloadKey(t ProceedingType) string {
	switch t {
	case ProceedingTypeNoticeOfMotion:
		return "noticeOfMotion"
	case ProceedingTypeToFileReply:
		return "replyTracking"
	case ProceedingTypeArgument:
		return "argumentDetails"
	case ProceedingTypeAnyOther:
		return "anyOtherDetails"
	case ProceedingTypeDecision:
		return "decisionDetails"
	}
	return ""
}

// DetailPayload is the type-specific part of a proceeding. Each variant is a
// list of entries of one shape; a single entry is a list of length one.
type DetailPayload interface {
	ProceedingType() ProceedingType
	Len() int
	// NextHearing returns the latest next-hearing date recorded in the payload.
	NextHearing() *time.Time
}

// Person identifies an officer or counsel inside a detail entry
type Person struct {
	Name   string `json:"name"`
	Rank   string `json:"rank,omitempty"`
	Mobile string `json:"mobile,omitempty"`
}

// NoticeOfMotionEntry records how the state attends a notice of motion
type NoticeOfMotionEntry struct {
	AttendanceMode          string  `json:"attendanceMode" validate:"required,oneof=BY_FORMAT BY_PERSON"`
	FormatSubmitted         *bool   `json:"formatSubmitted,omitempty"`
	FormatFilledBy          *Person `json:"formatFilledBy,omitempty"`
	AagDgWhoWillAppear      string  `json:"aagDgWhoWillAppear,omitempty"`
	AppearingAGDetails      string  `json:"appearingAGDetails,omitempty"`
	AttendingOfficerDetails string  `json:"attendingOfficerDetails,omitempty"`
	InvestigatingOfficer    *Person `json:"investigatingOfficer,omitempty"`
	Details                 string  `json:"details" validate:"required"`
	Attachment              string  `json:"attachment,omitempty"`
}

// ReplyTrackingEntry tracks the filing of the state's reply
type ReplyTrackingEntry struct {
	OfficerDeputedForReply   string   `json:"officerDeputedForReply,omitempty"`
	VettingOfficerDetails    string   `json:"vettingOfficerDetails,omitempty"`
	ReplyFiled               *bool    `json:"replyFiled,omitempty"`
	ReplyFilingDate          FlexDate `json:"replyFilingDate,omitzero"`
	AdvocateGeneralName      string   `json:"advocateGeneralName,omitempty"`
	ReplyScrutinizedByHC     *bool    `json:"replyScrutinizedByHC,omitempty"`
	InvestigatingOfficerName string   `json:"investigatingOfficerName,omitempty"`
	ProceedingInCourt        string   `json:"proceedingInCourt,omitempty"`
	OrderInShort             string   `json:"orderInShort,omitempty"`
	NextActionablePoint      string   `json:"nextActionablePoint,omitempty"`
	NextDateOfHearingReply   FlexDate `json:"nextDateOfHearingReply,omitzero"`
	Attachment               string   `json:"attachment,omitempty"`
}

// ArgumentEntry records an argument heard in court
type ArgumentEntry struct {
	ArgumentBy        string   `json:"argumentBy" validate:"required"`
	ArgumentWith      string   `json:"argumentWith" validate:"required"`
	NextDateOfHearing FlexDate `json:"nextDateOfHearing,omitzero"`
	Attachment        string   `json:"attachment,omitempty"`
}

// AnyOtherEntry is the free-form narrative for proceedings outside the other types
type AnyOtherEntry struct {
	AttendingOfficerDetails string  `json:"attendingOfficerDetails" validate:"required"`
	OfficerDetails          *Person `json:"officerDetails,omitempty"`
	AppearingAGDetails      string  `json:"appearingAGDetails" validate:"required"`
	Details                 string  `json:"details" validate:"required"`
	Attachment              string  `json:"attachment,omitempty"`
}

// DecisionEntry carries the court's outcome for the writ
type DecisionEntry struct {
	WritStatus      string   `json:"writStatus" validate:"required,oneof=ALLOWED PENDING DISMISSED WITHDRAWN DIRECTION"`
	DateOfDecision  FlexDate `json:"dateOfDecision,omitzero"`
	DecisionByCourt string   `json:"decisionByCourt,omitempty"`
	Remarks         string   `json:"remarks,omitempty"`
	Attachment      string   `json:"attachment,omitempty"`
}

type (
	NoticeOfMotionDetails []NoticeOfMotionEntry
	ReplyTrackingDetails  []ReplyTrackingEntry
	ArgumentDetails       []ArgumentEntry
	AnyOtherDetails       []AnyOtherEntry
	DecisionDetails       []DecisionEntry
)

func (NoticeOfMotionDetails) ProceedingType() ProceedingType { return ProceedingTypeNoticeOfMotion }
func (ReplyTrackingDetails) ProceedingType() ProceedingType  { return ProceedingTypeToFileReply }
func (ArgumentDetails) ProceedingType() ProceedingType       { return ProceedingTypeArgument }
func (AnyOtherDetails) ProceedingType() ProceedingType       { return ProceedingTypeAnyOther }
func (DecisionDetails) ProceedingType() ProceedingType       { return ProceedingTypeDecision }

func (d NoticeOfMotionDetails) Len() int { return len(d) }
func (d ReplyTrackingDetails) Len() int  { return len(d) }
func (d ArgumentDetails) Len() int       { return len(d) }
func (d AnyOtherDetails) Len() int       { return len(d) }
func (d DecisionDetails) Len() int       { return len(d) }

func (NoticeOfMotionDetails) NextHearing() *time.Time { return nil }
func (AnyOtherDetails) NextHearing() *time.Time       { return nil }
func (DecisionDetails) NextHearing() *time.Time       { return nil }

func (d ReplyTrackingDetails) NextHearing() *time.Time {
	var dates []FlexDate
	for _, e := range d {
		dates = append(dates, e.NextDateOfHearingReply)
	}
	return latest(dates)
}

func (d ArgumentDetails) NextHearing() *time.Time {
	var dates []FlexDate
	for _, e := range d {
		dates = append(dates, e.NextDateOfHearing)
	}
	return latest(dates)
}

// Outcome returns the writ status of the most recent entry that has one.
func (d DecisionDetails) Outcome() string {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i].WritStatus != "" {
			return d[i].WritStatus
		}
	}
	return ""
}

func latest(dates []FlexDate) *time.Time {
	var out *time.Time
	for _, d := range dates {
		if d.Valid && (out == nil || d.Time.After(*out)) {
			out = d.Ptr()
		}
	}
	return out
}

func (d *NoticeOfMotionDetails) UnmarshalJSON(b []byte) error {
	return unmarshalEntries(b, (*[]NoticeOfMotionEntry)(d))
}

func (d *ReplyTrackingDetails) UnmarshalJSON(b []byte) error {
	return unmarshalEntries(b, (*[]ReplyTrackingEntry)(d))
}

func (d *ArgumentDetails) UnmarshalJSON(b []byte) error {
	return unmarshalEntries(b, (*[]ArgumentEntry)(d))
}

func (d *AnyOtherDetails) UnmarshalJSON(b []byte) error {
	return unmarshalEntries(b, (*[]AnyOtherEntry)(d))
}

func (d *DecisionDetails) UnmarshalJSON(b []byte) error {
	return unmarshalEntries(b, (*[]DecisionEntry)(d))
}

// unmarshalEntries accepts either one object or a list of objects.
func unmarshalEntries[T any](b []byte, dst *[]T) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}

	if trimmed[0] == '[' {
		entries := []T{}
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		*dst = entries
		return nil
	}

	var entry T
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return err
	}
	*dst = []T{entry}
	return nil
}

// DecodeDetailPayload rebuilds the variant for t from its stored JSON.
func DecodeDetailPayload(t ProceedingType, raw []byte) (DetailPayload, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}

	var (
		payload DetailPayload
		err     error
	)
	switch t {
	case ProceedingTypeNoticeOfMotion:
		var d NoticeOfMotionDetails
		err = json.Unmarshal(raw, &d)
		payload = d
	case ProceedingTypeToFileReply:
		var d ReplyTrackingDetails
		err = json.Unmarshal(raw, &d)
		payload = d
	case ProceedingTypeArgument:
		var d ArgumentDetails
		err = json.Unmarshal(raw, &d)
		payload = d
	case ProceedingTypeAnyOther:
		var d AnyOtherDetails
		err = json.Unmarshal(raw, &d)
		payload = d
	case ProceedingTypeDecision:
		var d DecisionDetails
		err = json.Unmarshal(raw, &d)
		payload = d
	default:
		return nil, fmt.Errorf("unknown proceeding type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
	}
	return payload, nil
}
