package response

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"finance_api/internal/lib/apperr"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Code      string       `json:"code"`
	Path      string       `json:"path"`
	Timestamp time.Time    `json:"timestamp"`
	Errors    []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func OK(message string, data any) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func Error(r *http.Request, code, message string) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		Message:   message,
		Code:      code,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	}
}

func ValidationError(r *http.Request, errs validator.ValidationErrors) ErrorResponse {
	fields := make([]FieldError, 0, len(errs))

	for _, err := range errs {
		field := strings.ToLower(err.Field()[:1]) + err.Field()[1:]

		var msg string
		switch err.ActualTag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email"
		case "min":
			msg = fmt.Sprintf("must be at least %s characters", err.Param())
		case "max":
			msg = fmt.Sprintf("must be at most %s characters", err.Param())
		default:
			msg = "is not valid"
		}

		fields = append(fields, FieldError{Field: field, Error: msg})
	}

	resp := Error(r, apperr.CodeValidation, "Validation failed")
	resp.Errors = fields

	return resp
}

// RenderError writes the error envelope for err with the status of its kind.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)

	render.Status(r, appErr.Status())
	render.JSON(w, r, Error(r, appErr.Code(), appErr.Message))
}

func RenderBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Error(r, apperr.CodeBadRequest, message))
}

func RenderValidationError(w http.ResponseWriter, r *http.Request, errs validator.ValidationErrors) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ValidationError(r, errs))
}

func RenderUnauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, Error(r, apperr.CodeUnauthorized, "Authentication required"))
}
