package services

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"writ_docket_go/models"
)

// OfficerInput is one investigating officer of a case payload
type OfficerInput struct {
	Name    string          `json:"name" validate:"required"`
	Rank    string          `json:"rank" validate:"required"`
	Posting string          `json:"posting" validate:"required"`
	Contact int64           `json:"contact" validate:"required,gt=0"`
	From    models.FlexDate `json:"from"`
	To      models.FlexDate `json:"to"`
}

// RespondentInput is one respondent of a case payload
type RespondentInput struct {
	Name        string `json:"name" validate:"required"`
	Designation string `json:"designation"`
}

// CaseInput is the editable part of a case. Status is deliberately absent:
// only a finalized decision proceeding moves it.
type CaseInput struct {
	CaseNumber string          `json:"caseNumber" validate:"required"`
	CaseDate   models.FlexDate `json:"caseDate"`
	BranchName string          `json:"branchName" validate:"required"`

	WritNumber    string `json:"writNumber" validate:"required"`
	WritType      string `json:"writType" validate:"required,oneof=BAIL QUASHING DIRECTION SUSPENSION_OF_SENTENCE PAROLE ANY_OTHER"`
	WritYear      int    `json:"writYear" validate:"required,gte=1900,lte=3000"`
	WritSubType   string `json:"writSubType"`
	WritTypeOther string `json:"writTypeOther"`

	UnderSection  string   `json:"underSection" validate:"required"`
	Act           string   `json:"act" validate:"required"`
	Sections      []string `json:"sections"`
	PoliceStation string   `json:"policeStation" validate:"required"`

	InvestigatingOfficers []OfficerInput `json:"investigatingOfficers" validate:"required,min=1,dive"`

	PetitionerName       string `json:"petitionerName" validate:"required"`
	PetitionerFatherName string `json:"petitionerFatherName" validate:"required"`
	PetitionerAddress    string `json:"petitionerAddress" validate:"required"`
	PetitionerPrayer     string `json:"petitionerPrayer" validate:"required"`

	Respondents []RespondentInput `json:"respondents" validate:"required,min=1,dive"`

	// Owner on whose behalf an admin files; ignored for regular users
	Email string `json:"email" validate:"omitempty,email"`
}

// DecodeCaseInput decodes and validates a case body. Unknown keys are
// ignored so clients may send back a case they fetched.
func DecodeCaseInput(raw []byte) (*CaseInput, error) {
	var input CaseInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, &ValidationError{Fields: []FieldError{decodeError(err)}}
	}
	if err := ValidateCaseInput(&input); err != nil {
		return nil, err
	}
	return &input, nil
}

// ValidateCaseInput normalizes the input in place and checks every case rule
func ValidateCaseInput(input *CaseInput) error {
	sanitizeStrings(reflect.ValueOf(input))
	input.WritType = strings.ToUpper(input.WritType)
	input.WritSubType = strings.ToUpper(input.WritSubType)
	input.Email = strings.ToLower(input.Email)

	verr := &ValidationError{Fields: validateStruct(input, "")}
	return verr.OrNil()
}

func caseInputRules(sl validator.StructLevel) {
	in := sl.Current().Interface().(CaseInput)

	requireDate(sl, in.CaseDate, "caseDate")

	if in.WritType == models.WritTypeBail {
		switch in.WritSubType {
		case "":
			sl.ReportError(in.WritSubType, "writSubType", "WritSubType", "required", "")
		case models.BailSubTypeAnticipatory, models.BailSubTypeRegular:
		default:
			sl.ReportError(in.WritSubType, "writSubType", "WritSubType", "oneof", "ANTICIPATORY REGULAR")
		}
	} else if in.WritSubType != "" {
		sl.ReportError(in.WritSubType, "writSubType", "WritSubType", "excluded", "")
	}
}

func officerInputRules(sl validator.StructLevel) {
	o := sl.Current().Interface().(OfficerInput)

	reportInvalidDate(sl, o.From, "from")
	reportInvalidDate(sl, o.To, "to")
	if o.From.Valid && o.To.Valid && o.To.Time.Before(o.From.Time) {
		sl.ReportError(o.To, "to", "To", "after_from", "")
	}
}

// ApplyTo copies the input onto a case record. Writ fields that do not apply
// to the writ type are cleared.
func (in *CaseInput) ApplyTo(c *models.Case) {
	c.CaseNumber = in.CaseNumber
	c.CaseDate = in.CaseDate.Time
	c.BranchName = in.BranchName
	c.WritNumber = in.WritNumber
	c.WritType = in.WritType
	c.WritYear = in.WritYear

	c.WritSubType = nil
	if in.WritType == models.WritTypeBail && in.WritSubType != "" {
		subType := in.WritSubType
		c.WritSubType = &subType
	}
	c.WritTypeOther = nil
	if in.WritType == models.WritTypeAnyOther && in.WritTypeOther != "" {
		other := in.WritTypeOther
		c.WritTypeOther = &other
	}

	c.UnderSection = in.UnderSection
	c.Act = in.Act
	c.PoliceStation = in.PoliceStation

	sections := make([]string, 0, len(in.Sections))
	for _, s := range in.Sections {
		if s != "" {
			sections = append(sections, s)
		}
	}
	if len(sections) == 0 {
		sections = append(sections, in.UnderSection)
	}
	c.Sections = sections

	officers := make([]models.InvestigatingOfficer, 0, len(in.InvestigatingOfficers))
	for _, o := range in.InvestigatingOfficers {
		officers = append(officers, models.InvestigatingOfficer{
			Name:    o.Name,
			Rank:    o.Rank,
			Posting: o.Posting,
			Contact: o.Contact,
			From:    o.From.Ptr(),
			To:      o.To.Ptr(),
		})
	}
	c.InvestigatingOfficers = officers

	respondents := make([]models.Respondent, 0, len(in.Respondents))
	for _, r := range in.Respondents {
		respondents = append(respondents, models.Respondent{Name: r.Name, Designation: r.Designation})
	}
	c.Respondents = respondents

	c.PetitionerName = in.PetitionerName
	c.PetitionerFatherName = in.PetitionerFatherName
	c.PetitionerAddress = in.PetitionerAddress
	c.PetitionerPrayer = in.PetitionerPrayer
}
