package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"writ_docket_go/config"
	"writ_docket_go/services"
)

// maxJSONBody bounds request bodies read into memory
const maxJSONBody = 1 << 20

// API carries the collaborators every handler needs
type API struct {
	DB     *gorm.DB
	Deps   *services.Deps
	Config *config.Config
}

// NewAPI creates the handler set
func NewAPI(db *gorm.DB, deps *services.Deps, cfg *config.Config) *API {
	return &API{DB: db, Deps: deps, Config: cfg}
}

// readBody returns the raw request body
func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxJSONBody+1))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}
	if len(body) > maxJSONBody {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
	}
	return body, nil
}

// queryInt parses a positive integer query parameter, 0 when absent or invalid
func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
