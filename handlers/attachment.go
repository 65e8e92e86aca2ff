package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"writ_docket_go/middleware"
	"writ_docket_go/services"
)

// UploadAttachmentHandler stores one file sent as form field "file"
func (a *API) UploadAttachmentHandler(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return services.NewValidationError("file", "is required")
	}
	if err := services.ValidateAttachment(fh); err != nil {
		return err
	}

	saved, err := services.SaveAttachment(c.Request().Context(), fh)
	if err != nil {
		return err
	}
	services.RecordUpload(a.Deps, middleware.GetCaller(c), saved)
	return c.JSON(http.StatusCreated, saved)
}

// DownloadAttachmentHandler streams a stored attachment
func (a *API) DownloadAttachmentHandler(c echo.Context) error {
	filename := c.Param("filename")
	reader, contentType, err := services.OpenAttachment(c.Request().Context(), filename)
	if err != nil {
		return err
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, "inline; filename=\""+filename+"\"")
	c.Response().Header().Set("X-Content-Type-Options", "nosniff")
	return c.Stream(http.StatusOK, contentType, reader)
}
