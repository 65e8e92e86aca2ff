package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"writ_docket_go/models"
)

const (
	exportCaseSheet     = "Case"
	exportTimelineSheet = "Proceedings"
)

//go:embed templates/export/timeline.html
var exportTemplates embed.FS

var timelineTemplate = template.Must(template.ParseFS(exportTemplates, "templates/export/timeline.html"))

// TimelineHeaders are the columns of a proceeding timeline
var TimelineHeaders = []string{"#", "Type", "Date of Hearing", "Judge", "Court", "Summary", "Outcome", "Next Hearing", "Attachments"}

// TimelineRow is one finalized proceeding of a case timeline
type TimelineRow struct {
	Sequence    int
	Type        string
	HearingDate string
	Judge       string
	Court       string
	Summary     string
	Outcome     string
	NextHearing string
	Attachments int
}

// Values returns the row in TimelineHeaders order
func (r TimelineRow) Values() []interface{} {
	return []interface{}{r.Sequence, r.Type, r.HearingDate, r.Judge, r.Court, r.Summary, r.Outcome, r.NextHearing, r.Attachments}
}

// ProceedingTypeLabel turns NOTICE_OF_MOTION into "Notice Of Motion"
func ProceedingTypeLabel(t models.ProceedingType) string {
	words := strings.Split(strings.ToLower(string(t)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// BuildTimeline lists the finalized proceedings in sequence order. The draft
// is left out.
func BuildTimeline(proceedings []models.Proceeding) []TimelineRow {
	rows := make([]TimelineRow, 0, len(proceedings))
	for _, p := range proceedings {
		if p.Draft {
			continue
		}
		summary := p.Summary
		if summary == "" {
			summary = p.Details
		}
		rows = append(rows, TimelineRow{
			Sequence:    p.Sequence,
			Type:        ProceedingTypeLabel(p.Type),
			HearingDate: formatDate(p.Hearing.DateOfHearing),
			Judge:       p.Hearing.JudgeName,
			Court:       p.Hearing.CourtNumber,
			Summary:     summary,
			Outcome:     p.Outcome(),
			NextHearing: formatDate(p.NextHearingDate),
			Attachments: len(p.Attachments),
		})
	}
	return rows
}

// CaseTimeline loads a case the caller may see together with its timeline
func CaseTimeline(db *gorm.DB, caller Caller, caseID string) (*models.Case, []TimelineRow, error) {
	c, err := FindAuthorizedCase(db, caller, caseID)
	if err != nil {
		return nil, nil, err
	}
	proceedings, err := ListProceedingsByCase(db, caller, c.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, BuildTimeline(proceedings), nil
}

// caseDetails lists the labelled case fields shown above a timeline
func caseDetails(c *models.Case) [][2]string {
	writType := c.WritType
	if c.WritSubType != nil && *c.WritSubType != "" {
		writType += " (" + *c.WritSubType + ")"
	}
	return [][2]string{
		{"Case Date", c.CaseDate.UTC().Format(models.DateLayout)},
		{"Branch", c.BranchName},
		{"Writ", fmt.Sprintf("%s/%d", c.WritNumber, c.WritYear)},
		{"Writ Type", writType},
		{"Status", c.Status},
		{"Act / Section", c.Act + " " + c.UnderSection},
		{"Police Station", c.PoliceStation},
		{"Petitioner", c.PetitionerName},
		{"Owner", c.Email},
	}
}

// ExportFileName is the download name of a case export
func ExportFileName(c *models.Case) string {
	return unsafeNameChars.ReplaceAllString(c.CaseNumber, "_") + "-timeline.xlsx"
}

// ExportPDFFileName is the download name of a PDF case export
func ExportPDFFileName(c *models.Case) string {
	return strings.TrimSuffix(ExportFileName(c), ".xlsx") + ".pdf"
}

// RenderTimelineHTML renders a case and its timeline as a printable HTML page
func RenderTimelineHTML(c *models.Case, rows []TimelineRow) (string, error) {
	var buf bytes.Buffer
	err := timelineTemplate.Execute(&buf, map[string]interface{}{
		"Case":    c,
		"Details": caseDetails(c),
		"Headers": TimelineHeaders,
		"Rows":    rows,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render timeline: %w", err)
	}
	return buf.String(), nil
}

// ExportCaseTimelinePDF renders a case and its finalized proceedings as a PDF
func ExportCaseTimelinePDF(ctx context.Context, db *gorm.DB, deps *Deps, caller Caller, caseID string) (*models.Case, []byte, error) {
	c, rows, err := CaseTimeline(db, caller, caseID)
	if err != nil {
		return nil, nil, err
	}
	renderer := deps.pdf()
	if renderer == nil {
		return nil, nil, &DependencyError{Dependency: "pdf renderer", Err: ErrPDFUnavailable}
	}

	htmlContent, err := RenderTimelineHTML(c, rows)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := renderer.RenderPDF(ctx, htmlContent, TimelinePDFOptions())
	if err != nil {
		return nil, nil, &DependencyError{Dependency: "pdf renderer", Err: err}
	}
	return c, pdf, nil
}

// ExportCaseTimeline renders a case and its finalized proceedings as an xlsx workbook
func ExportCaseTimeline(db *gorm.DB, caller Caller, caseID string) (*models.Case, *bytes.Buffer, error) {
	c, rows, err := CaseTimeline(db, caller, caseID)
	if err != nil {
		return nil, nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportCaseSheet)
	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	// --- Case Sheet ---
	f.SetCellValue(exportCaseSheet, "A1", "Case "+c.CaseNumber)
	f.SetCellStyle(exportCaseSheet, "A1", "A1", titleStyle)

	details := caseDetails(c)
	for i, d := range details {
		row := i + 3
		f.SetCellValue(exportCaseSheet, fmt.Sprintf("A%d", row), d[0])
		f.SetCellValue(exportCaseSheet, fmt.Sprintf("B%d", row), d[1])
	}
	f.SetCellStyle(exportCaseSheet, "A3", fmt.Sprintf("A%d", len(details)+2), headerStyle)
	f.SetColWidth(exportCaseSheet, "A", "A", 18)
	f.SetColWidth(exportCaseSheet, "B", "B", 50)

	// --- Proceedings Sheet ---
	f.NewSheet(exportTimelineSheet)
	for i, header := range TimelineHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportTimelineSheet, cell, header)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(TimelineHeaders), 1)
	f.SetCellStyle(exportTimelineSheet, "A1", lastHeader, headerStyle)

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := r.Values()
		if err := f.SetSheetRow(exportTimelineSheet, cell, &values); err != nil {
			return nil, nil, fmt.Errorf("failed to write timeline row: %w", err)
		}
	}
	f.SetColWidth(exportTimelineSheet, "B", "E", 16)
	f.SetColWidth(exportTimelineSheet, "F", "F", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return c, buf, nil
}
