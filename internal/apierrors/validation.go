package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ValidationError sends a 400 for request binding failures, with per-field
// messages when the failure came from struct validation.
func ValidationError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	ctx := c.Request.Context()

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// Malformed JSON or a type mismatch, not a tag failure.
		logger.Error(ctx, "request binding failed", err)
		respond(c, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		messages = append(messages, fieldMessage(fieldErr))
	}
	logger.Error(ctx, "validation failed", err)
	respond(c, http.StatusBadRequest, "INVALID_INPUT", strings.Join(messages, "; "))
}

// fieldMessage covers the binding tags the request structs use.
func fieldMessage(fieldErr validator.FieldError) string {
	field := fieldErr.Field()
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fieldErr.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fieldErr.Tag())
	}
}
