package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"writ_docket_go/models"
)

func TestProceedingTypeLabel(t *testing.T) {
	assert.Equal(t, "Notice Of Motion", ProceedingTypeLabel(models.ProceedingTypeNoticeOfMotion))
	assert.Equal(t, "Decision", ProceedingTypeLabel(models.ProceedingTypeDecision))
}

func TestExportCaseTimeline(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	owner := Caller{Email: "clerk@example.com", Role: "USER"}
	c := createTestCase(t, db, owner.Email)

	_, err := CreateProceeding(ctx, db, nil, owner, argumentPayload(c.ID, false))
	require.NoError(t, err)
	_, err = CreateProceeding(ctx, db, nil, owner, decisionPayload(c.ID, models.WritStatusAllowed, false))
	require.NoError(t, err)
	_, err = CreateProceeding(ctx, db, nil, owner, argumentPayload(c.ID, true))
	require.NoError(t, err)

	t.Run("workbook holds case and finalized proceedings", func(t *testing.T) {
		exported, buf, err := ExportCaseTimeline(db, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, exported.ID)

		f, err := excelize.OpenReader(buf)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{exportCaseSheet, exportTimelineSheet}, f.GetSheetList())

		status, err := f.GetCellValue(exportCaseSheet, "B7")
		require.NoError(t, err)
		assert.Equal(t, models.WritStatusAllowed, status)

		rows, err := f.GetRows(exportTimelineSheet)
		require.NoError(t, err)
		require.Len(t, rows, 3, "header plus two finalized proceedings")
		assert.Equal(t, TimelineHeaders, rows[0])
		assert.Equal(t, []string{"1", "Argument", "2024-05-02", "J. Sharma", "12"}, rows[1][:5])
		assert.Equal(t, "2024-06-01", rows[1][7])
		assert.Equal(t, "2", rows[2][0])
		assert.Equal(t, models.WritStatusAllowed, rows[2][6])
	})

	t.Run("other users cannot export", func(t *testing.T) {
		_, _, err := ExportCaseTimeline(db, Caller{Email: "other@example.com"}, c.ID)
		assert.ErrorIs(t, err, ErrNotFoundOrDenied)
	})

	t.Run("file name is safe", func(t *testing.T) {
		assert.Equal(t, "CRM_M_1234_2024-timeline.xlsx", ExportFileName(&models.Case{CaseNumber: "CRM-M/1234/2024"}))
	})
}

// recordingPDFRenderer keeps the last document it was asked to print
type recordingPDFRenderer struct {
	html    string
	options PDFOptions
	err     error
}

func (r *recordingPDFRenderer) RenderPDF(ctx context.Context, htmlContent string, options PDFOptions) ([]byte, error) {
	r.html = htmlContent
	r.options = options
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 timeline"), nil
}

func TestRenderTimelineHTML(t *testing.T) {
	c := &models.Case{CaseNumber: "CRM-M/77/2024", PetitionerName: "Singh & Sons <Pvt>", Status: models.WritStatusPending}

	t.Run("rows and escaped details", func(t *testing.T) {
		rows := []TimelineRow{
			{Sequence: 1, Type: "Argument", HearingDate: "2024-05-02", Summary: "<script>alert(1)</script>"},
			{Sequence: 2, Type: "Decision", Outcome: models.WritStatusAllowed},
		}
		out, err := RenderTimelineHTML(c, rows)
		require.NoError(t, err)

		assert.Contains(t, out, "Case CRM-M/77/2024")
		assert.Contains(t, out, "Singh &amp; Sons &lt;Pvt&gt;")
		assert.NotContains(t, out, "<script>")
		assert.Contains(t, out, "<th>Date of Hearing</th>")
		assert.Contains(t, out, "<td>2024-05-02</td>")
		assert.Contains(t, out, "<td>"+models.WritStatusAllowed+"</td>")
		assert.NotContains(t, out, "No finalized proceedings.")
	})

	t.Run("empty timeline", func(t *testing.T) {
		out, err := RenderTimelineHTML(c, nil)
		require.NoError(t, err)
		assert.Contains(t, out, "No finalized proceedings.")
		assert.NotContains(t, out, "<th>")
	})
}

func TestExportCaseTimelinePDF(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	owner := Caller{Email: "clerk@example.com", Role: "USER"}
	c := createTestCase(t, db, owner.Email)

	_, err := CreateProceeding(ctx, db, nil, owner, argumentPayload(c.ID, false))
	require.NoError(t, err)
	_, err = CreateProceeding(ctx, db, nil, owner, argumentPayload(c.ID, true))
	require.NoError(t, err)

	t.Run("renders the timeline document", func(t *testing.T) {
		renderer := &recordingPDFRenderer{}
		exported, pdf, err := ExportCaseTimelinePDF(ctx, db, &Deps{PDF: renderer}, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, exported.ID)
		assert.Equal(t, []byte("%PDF-1.4 timeline"), pdf)

		assert.Contains(t, renderer.html, "Case "+c.CaseNumber)
		assert.Contains(t, renderer.html, "Harjit Singh")
		assert.Equal(t, 1, strings.Count(renderer.html, "<td>Argument</td>"), "draft is left out")
		assert.Equal(t, TimelinePDFOptions(), renderer.options)
	})

	t.Run("other users cannot export", func(t *testing.T) {
		renderer := &recordingPDFRenderer{}
		_, _, err := ExportCaseTimelinePDF(ctx, db, &Deps{PDF: renderer}, Caller{Email: "other@example.com"}, c.ID)
		assert.ErrorIs(t, err, ErrNotFoundOrDenied)
		assert.Empty(t, renderer.html)
	})

	t.Run("missing renderer", func(t *testing.T) {
		_, _, err := ExportCaseTimelinePDF(ctx, db, nil, owner, c.ID)
		var depErr *DependencyError
		require.ErrorAs(t, err, &depErr)
		assert.ErrorIs(t, err, ErrPDFUnavailable)
	})

	t.Run("renderer failure", func(t *testing.T) {
		renderer := &recordingPDFRenderer{err: errors.New("chrome exited")}
		_, _, err := ExportCaseTimelinePDF(ctx, db, &Deps{PDF: renderer}, owner, c.ID)
		var depErr *DependencyError
		require.ErrorAs(t, err, &depErr)
		assert.Equal(t, "pdf renderer", depErr.Dependency)
	})

	t.Run("file name", func(t *testing.T) {
		assert.Equal(t, "CRM_M_1234_2024-timeline.pdf", ExportPDFFileName(&models.Case{CaseNumber: "CRM-M/1234/2024"}))
	})
}
