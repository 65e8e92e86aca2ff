package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"writ_docket_go/middleware"
	"writ_docket_go/services"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

// ListCasesHandler returns one page of the cases visible to the caller
func (a *API) ListCasesHandler(c echo.Context) error {
	filters := services.CaseFilters{
		Branch:   c.QueryParam("branch"),
		Status:   c.QueryParam("status"),
		WritType: c.QueryParam("writType"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}

	list, err := services.ListCases(a.DB, middleware.GetCaller(c), filters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// SearchCasesHandler matches cases by number, petitioner, branch, police
// station, writ number or officer
func (a *API) SearchCasesHandler(c echo.Context) error {
	cases, err := services.SearchCases(a.DB, middleware.GetCaller(c), c.QueryParam("q"), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cases)
}

// CreateCaseHandler registers a new case
func (a *API) CreateCaseHandler(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	input, err := services.DecodeCaseInput(body)
	if err != nil {
		return err
	}

	created, err := services.CreateCase(a.DB, a.Deps, middleware.GetCaller(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// GetCaseHandler returns a single case
func (a *API) GetCaseHandler(c echo.Context) error {
	found, err := services.GetCase(a.DB, middleware.GetCaller(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, found)
}

// UpdateCaseHandler replaces the editable fields of a case
func (a *API) UpdateCaseHandler(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	input, err := services.DecodeCaseInput(body)
	if err != nil {
		return err
	}

	updated, err := services.UpdateCase(a.DB, a.Deps, middleware.GetCaller(c), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteCaseHandler removes a case and its proceedings
func (a *API) DeleteCaseHandler(c echo.Context) error {
	if err := services.DeleteCase(a.DB, a.Deps, middleware.GetCaller(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportCaseHandler downloads the proceeding timeline of a case as xlsx,
// or as PDF with ?format=pdf
func (a *API) ExportCaseHandler(c echo.Context) error {
	caller := middleware.GetCaller(c)

	switch strings.ToLower(c.QueryParam("format")) {
	case "", "xlsx":
		exported, buf, err := services.ExportCaseTimeline(a.DB, caller, c.Param("id"))
		if err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", services.ExportFileName(exported)))
		return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
	case "pdf":
		exported, pdf, err := services.ExportCaseTimelinePDF(c.Request().Context(), a.DB, a.Deps, caller, c.Param("id"))
		if err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", services.ExportPDFFileName(exported)))
		return c.Blob(http.StatusOK, pdfContentType, pdf)
	default:
		return services.NewValidationError("format", "format must be xlsx or pdf")
	}
}
