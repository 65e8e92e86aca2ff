package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"writ_docket_go/models"
)

// One validator for the process. It caches struct metadata and the rule
// functions registered below, so nothing is rebuilt per request.
var validate = newValidator()

var textPolicy = bluemonday.StrictPolicy()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterStructValidation(noticeOfMotionRules, models.NoticeOfMotionEntry{})
	v.RegisterStructValidation(replyTrackingRules, models.ReplyTrackingEntry{})
	v.RegisterStructValidation(argumentRules, models.ArgumentEntry{})
	v.RegisterStructValidation(anyOtherRules, models.AnyOtherEntry{})
	v.RegisterStructValidation(decisionRules, models.DecisionEntry{})
	v.RegisterStructValidation(proceedingPayloadRules, ProceedingPayload{})
	v.RegisterStructValidation(caseInputRules, CaseInput{})
	v.RegisterStructValidation(officerInputRules, OfficerInput{})
	return v
}

// validateStruct runs the struct rules of s and returns the problems found,
// with field paths relative to prefix.
func validateStruct(s interface{}, prefix string) []FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: strings.TrimSuffix(prefix, "."), Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: prefix + fieldPath(fe.Namespace()), Message: fieldMessage(fe)})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "excluded":
		return "must be empty"
	case "date":
		return "must be a valid date"
	case "after_from":
		return "must not be before the start date"
	case "disallowed":
		return "is not allowed for " + fe.Param()
	default:
		return "failed the " + fe.Tag() + " rule"
	}
}

func noticeOfMotionRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(models.NoticeOfMotionEntry)

	switch e.AttendanceMode {
	case models.AttendanceByFormat:
		if e.FormatSubmitted == nil {
			sl.ReportError(e.FormatSubmitted, "formatSubmitted", "FormatSubmitted", "required", "")
		}
		if e.FormatFilledBy == nil || e.FormatFilledBy.Name == "" {
			sl.ReportError(e.FormatFilledBy, "formatFilledBy.name", "Name", "required", "")
		}
		if e.AagDgWhoWillAppear == "" {
			sl.ReportError(e.AagDgWhoWillAppear, "aagDgWhoWillAppear", "AagDgWhoWillAppear", "required", "")
		}
	case models.AttendanceByPerson:
		if e.AppearingAGDetails == "" {
			sl.ReportError(e.AppearingAGDetails, "appearingAGDetails", "AppearingAGDetails", "required", "")
		}
		if e.AttendingOfficerDetails == "" {
			sl.ReportError(e.AttendingOfficerDetails, "attendingOfficerDetails", "AttendingOfficerDetails", "required", "")
		}
		if e.InvestigatingOfficer == nil || e.InvestigatingOfficer.Name == "" {
			sl.ReportError(e.InvestigatingOfficer, "investigatingOfficer.name", "Name", "required", "")
		}
	}
}

func replyTrackingRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(models.ReplyTrackingEntry)

	reportInvalidDate(sl, e.ReplyFilingDate, "replyFilingDate")
	reportInvalidDate(sl, e.NextDateOfHearingReply, "nextDateOfHearingReply")
	if e.ReplyFiled != nil && *e.ReplyFiled && !e.ReplyFilingDate.Valid && !e.ReplyFilingDate.Invalid() {
		sl.ReportError(e.ReplyFilingDate, "replyFilingDate", "ReplyFilingDate", "required", "")
	}
}

func argumentRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(models.ArgumentEntry)
	requireDate(sl, e.NextDateOfHearing, "nextDateOfHearing")
}

func anyOtherRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(models.AnyOtherEntry)
	if e.OfficerDetails == nil || e.OfficerDetails.Name == "" {
		sl.ReportError(e.OfficerDetails, "officerDetails.name", "Name", "required", "")
	}
}

func decisionRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(models.DecisionEntry)
	reportInvalidDate(sl, e.DateOfDecision, "dateOfDecision")
}

func reportInvalidDate(sl validator.StructLevel, d models.FlexDate, field string) {
	if d.Invalid() {
		sl.ReportError(d.Raw(), field, field, "date", "")
	}
}

func requireDate(sl validator.StructLevel, d models.FlexDate, field string) {
	switch {
	case d.Invalid():
		sl.ReportError(d.Raw(), field, field, "date", "")
	case !d.Valid:
		sl.ReportError(d, field, field, "required", "")
	}
}

var (
	fieldSetCache   sync.Map // reflect.Type -> map[string]reflect.Type
	flexDateType    = reflect.TypeOf(models.FlexDate{})
	unmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
)

// jsonFields maps the JSON names of a struct's exported fields to their types
func jsonFields(t reflect.Type) map[string]reflect.Type {
	if cached, ok := fieldSetCache.Load(t); ok {
		return cached.(map[string]reflect.Type)
	}

	fields := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = f.Type
	}

	fieldSetCache.Store(t, fields)
	return fields
}

// unknownFields reports object keys in raw that t does not declare, at any
// depth. Shape mismatches are left to the JSON decoder.
func unknownFields(raw json.RawMessage, t reflect.Type, path string) []FieldError {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	switch t.Kind() {
	case reflect.Slice:
		if raw[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil
			}
			var errs []FieldError
			for i, item := range items {
				errs = append(errs, unknownFields(item, t.Elem(), fmt.Sprintf("%s[%d]", path, i))...)
			}
			return errs
		}
		// Entry lists also accept a lone object
		if reflect.PointerTo(t).Implements(unmarshalerType) {
			return unknownFields(raw, t.Elem(), path)
		}
		return nil

	case reflect.Struct:
		if t == flexDateType || raw[0] != '{' {
			return nil
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}

		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := jsonFields(t)
		var errs []FieldError
		for _, k := range keys {
			ft, ok := fields[k]
			if !ok {
				errs = append(errs, FieldError{Field: joinPath(path, k), Message: "is not allowed"})
				continue
			}
			errs = append(errs, unknownFields(obj[k], ft, joinPath(path, k))...)
		}
		return errs
	}
	return nil
}

func joinPath(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

// decodeError turns a JSON decoding failure into a field problem
func decodeError(err error) FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return FieldError{Field: field, Message: "must be of type " + jsonKind(typeErr.Type)}
	}
	return FieldError{Field: "body", Message: "is not valid JSON"}
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

// maxSanitizePasses bounds the strip and unescape loop in SanitizeText
const maxSanitizePasses = 4

// SanitizeText trims s and strips any markup from it. Entities are decoded
// only once the decoded text no longer changes under the policy, so escaped
// markup cannot come back as live tags.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.ContainsAny(s, "<>&") {
		return s
	}
	for i := 0; i < maxSanitizePasses; i++ {
		stripped := textPolicy.Sanitize(s)
		decoded := html.UnescapeString(stripped)
		if decoded == s {
			return strings.TrimSpace(decoded)
		}
		s = decoded
	}
	// Still unstable: keep the escaped form
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// sanitizeStrings applies SanitizeText to every settable string reachable from v
func sanitizeStrings(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			sanitizeStrings(v.Elem())
		}
	case reflect.Struct:
		if v.Type() == flexDateType {
			return
		}
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				sanitizeStrings(v.Field(i))
			}
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			sanitizeStrings(v.Index(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(SanitizeText(v.String()))
		}
	}
}
