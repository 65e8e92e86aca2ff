package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"writ_docket_go/middleware"
	"writ_docket_go/models"
	"writ_docket_go/services"
)

// proceedingRequest decodes a JSON body, or a multipart form whose "payload"
// field holds the JSON and whose "attachments" files are validated alongside.
func proceedingRequest(c echo.Context) (*services.ProceedingPayload, []*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		body, err := readBody(c)
		if err != nil {
			return nil, nil, err
		}
		payload, err := services.DecodeProceedingPayload(body)
		return payload, nil, err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid multipart form")
	}
	raw := form.Value["payload"]
	if len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
		return nil, nil, services.NewValidationError("payload", "is required")
	}

	payload, err := services.DecodeProceedingPayload([]byte(raw[0]))
	if err != nil {
		return nil, nil, err
	}

	files := form.File["attachments"]
	verr := &services.ValidationError{}
	for _, fh := range files {
		if err := services.ValidateAttachment(fh); err != nil {
			if ve, ok := err.(*services.ValidationError); ok {
				verr.Fields = append(verr.Fields, ve.Fields...)
				continue
			}
			return nil, nil, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}
	return payload, files, nil
}

// saveUploads stores validated files and appends their references to the payload
func saveUploads(c echo.Context, payload *services.ProceedingPayload, files []*multipart.FileHeader) ([]models.Attachment, error) {
	ctx := c.Request().Context()
	saved := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		a, err := services.SaveAttachment(ctx, fh)
		if err != nil {
			services.DiscardAttachments(ctx, saved)
			return nil, err
		}
		saved = append(saved, *a)
	}
	payload.Attachments = append(payload.Attachments, saved...)
	return saved, nil
}

// CreateProceedingHandler records a proceeding, or the case's draft
func (a *API) CreateProceedingHandler(c echo.Context) error {
	payload, files, err := proceedingRequest(c)
	if err != nil {
		return err
	}
	saved, err := saveUploads(c, payload, files)
	if err != nil {
		return err
	}

	created, err := services.CreateProceeding(c.Request().Context(), a.DB, a.Deps, middleware.GetCaller(c), payload)
	if err != nil {
		// Files of a failed mutation would be orphaned
		services.DiscardAttachments(c.Request().Context(), saved)
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateProceedingHandler rewrites a proceeding, finalizing a draft when draft=false
func (a *API) UpdateProceedingHandler(c echo.Context) error {
	payload, files, err := proceedingRequest(c)
	if err != nil {
		return err
	}
	saved, err := saveUploads(c, payload, files)
	if err != nil {
		return err
	}

	updated, err := services.UpdateProceeding(c.Request().Context(), a.DB, a.Deps, middleware.GetCaller(c), c.Param("id"), payload)
	if err != nil {
		services.DiscardAttachments(c.Request().Context(), saved)
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// GetProceedingHandler returns a single proceeding
func (a *API) GetProceedingHandler(c echo.Context) error {
	p, err := services.GetProceeding(a.DB, middleware.GetCaller(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// ListProceedingsHandler returns a page of the caller's proceedings across
// cases, optionally narrowed by caseId, type and draft
func (a *API) ListProceedingsHandler(c echo.Context) error {
	filters := services.ProceedingFilters{
		CaseID: c.QueryParam("caseId"),
		Type:   c.QueryParam("type"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	}
	if raw := c.QueryParam("draft"); raw != "" {
		draft, err := strconv.ParseBool(raw)
		if err != nil {
			return services.NewValidationError("draft", "draft must be true or false")
		}
		filters.Draft = &draft
	}

	list, err := services.ListProceedings(a.DB, middleware.GetCaller(c), filters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// ListProceedingsByCaseHandler returns a case's proceedings, the draft last
func (a *API) ListProceedingsByCaseHandler(c echo.Context) error {
	proceedings, err := services.ListProceedingsByCase(a.DB, middleware.GetCaller(c), c.Param("caseId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, proceedings)
}

// FindDraftByCaseHandler returns the case's draft, or null
func (a *API) FindDraftByCaseHandler(c echo.Context) error {
	draft, err := services.FindDraftByCase(a.DB, middleware.GetCaller(c), c.Param("caseId"))
	if err != nil {
		return err
	}
	if draft == nil {
		return c.JSON(http.StatusOK, nil)
	}
	return c.JSON(http.StatusOK, draft)
}

// DeleteProceedingHandler removes a proceeding without renumbering
func (a *API) DeleteProceedingHandler(c echo.Context) error {
	if err := services.DeleteProceeding(a.DB, a.Deps, middleware.GetCaller(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
