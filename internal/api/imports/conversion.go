package imports

import (
	"errors"
	"net/http"

	"github.com/ladlehq/ladle/internal/importer"
	"github.com/labstack/echo/v4"
)

// ImportFailureDto is the body returned for unclassified pipeline
// failures. When the failure originated as a non-success response from
// the recipe store, the upstream status and body are flattened in.
type ImportFailureDto struct {
	Error    string                   `json:"error"`
	Upstream *importer.UpstreamDetail `json:"upstream,omitempty"`
}

// troubleToHTTPError maps a classified pipeline trouble to the wire
// response. An unknown user and a duplicate recipe are expected outcomes
// with dedicated statuses; every other trouble is an internal failure.
func troubleToHTTPError(err error) *echo.HTTPError {
	var trouble *importer.Trouble
	if !errors.As(err, &trouble) {
		return echo.NewHTTPError(http.StatusInternalServerError, ImportFailureDto{Error: err.Error()})
	}

	switch trouble.Type() {
	case importer.USER_NOT_FOUND:
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case importer.DUPLICATE_RECIPE:
		return echo.NewHTTPError(http.StatusConflict, "Already exists")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, ImportFailureDto{
			Error:    trouble.Error(),
			Upstream: trouble.Upstream(),
		})
	}
}
