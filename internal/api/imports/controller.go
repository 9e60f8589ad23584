package imports

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ladlehq/ladle/internal/importer"
	"github.com/ladlehq/ladle/internal/user"
	"github.com/labstack/echo/v4"
)

type (
	ImportRequest struct {
		URL  string `json:"url" validate:"required"`
		User int    `json:"user" validate:"omitempty,min=1"`
	}

	ImportResponse struct {
		Message string `json:"message"`
		URL     string `json:"url"`
	}

	ImportService interface {
		Import(ctx context.Context, request importer.Request) (*importer.Result, error)
	}

	// Controller accepts the inbound import requests, validates them and
	// hands them to the import pipeline, translating the outcome back in
	// to the wire response.
	Controller struct {
		service  ImportService
		validate *validator.Validate
	}
)

func New(validate *validator.Validate, service ImportService) *Controller {
	return &Controller{service: service, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/", controller.create)
}

func (controller *Controller) create(ec echo.Context) error {
	var importRequest ImportRequest
	if err := ec.Bind(&importRequest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid body: %s", err.Error()))
	}

	if err := controller.validate.Struct(importRequest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid body: %s", err.Error()))
	}

	// A request naming no user is attributed to the default user.
	if importRequest.User == 0 {
		importRequest.User = user.DefaultUserID
	}

	result, err := controller.service.Import(ec.Request().Context(), importer.Request{
		URL:  importRequest.URL,
		User: importRequest.User,
	})
	if err != nil {
		return troubleToHTTPError(err)
	}

	return ec.JSON(http.StatusOK, ImportResponse{Message: "Recipe imported", URL: result.PublicURL})
}
