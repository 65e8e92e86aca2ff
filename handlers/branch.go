package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"writ_docket_go/services"
)

// ListBranchesHandler returns the branch directory, empty when none is loaded
func (a *API) ListBranchesHandler(c echo.Context) error {
	var branches []services.Branch
	if a.Deps != nil {
		branches = a.Deps.Branches.List()
	}
	if branches == nil {
		branches = []services.Branch{}
	}
	return c.JSON(http.StatusOK, branches)
}
