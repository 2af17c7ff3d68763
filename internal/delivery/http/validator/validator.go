// Package validator adapts go-playground/validator to Echo's Validator interface.
package validator

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator wraps a validator instance for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// New creates the request validator used by the HTTP server.
func New() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates the bound request struct against its validate tags.
func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}
