package dashboard

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mwiater/geoassist/internal/logging"
)

// Error is the JSON body of every failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{Code: code, Message: msg}
}

func ErrBadRequest() Error {
	return Error{Code: fiber.StatusBadRequest, Message: "invalid JSON request"}
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{Code: fiber.StatusNotFound, Message: fmt.Sprintf("%s with %v not found", resource, arg)}
}

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errs map[string]string) ValidationError {
	return ValidationError{Status: fiber.StatusUnprocessableEntity, Errors: errs}
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
}

var validate = validator.New()

// Validate returns failing fields mapped to the tag they failed on.
func (r *QueryRequest) Validate() map[string]string {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return map[string]string{"query": err.Error()}
		}
		out := make(map[string]string, len(verrs))
		for _, e := range verrs {
			out[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return out
	}
	return nil
}

// ErrorHandler renders Error and ValidationError values as JSON and maps any
// other error to its fiber status, or 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	apiErr = NewError(code, err.Error())
	logging.LogEvent("[SERVE] %s %s failed with code %d: %s", c.Method(), c.Path(), apiErr.Code, apiErr.Message)
	return c.Status(apiErr.Code).JSON(apiErr)
}
