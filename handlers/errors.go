package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"writ_docket_go/services"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string                `json:"error"`
	Fields []services.FieldError `json:"fields,omitempty"`
}

// statusFor maps a domain error to its HTTP status and client message
func statusFor(err error) (int, ErrorResponse) {
	var (
		httpErr  *echo.HTTPError
		verr     *services.ValidationError
		conflict *services.ConflictError
		depErr   *services.DependencyError
	)

	switch {
	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, ErrorResponse{Error: msg}
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields}
	case errors.Is(err, services.ErrNotFoundOrDenied):
		return http.StatusNotFound, ErrorResponse{Error: "not found"}
	case errors.Is(err, services.ErrInvalidAttachmentName), errors.Is(err, services.ErrObjectNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "attachment not found"}
	case errors.As(err, &conflict):
		return http.StatusConflict, ErrorResponse{Error: conflict.Error()}
	case errors.As(err, &depErr):
		return http.StatusBadGateway, ErrorResponse{Error: depErr.Dependency + " unavailable"}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

// HTTPErrorHandler renders errors returned by handlers as JSON
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, body := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Int("status", code).
			Msg("Request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to write error response")
	}
}
