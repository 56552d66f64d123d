package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const requestTimeout = 5 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// respondError maps service errors onto the error envelope. Unknown errors
// become a 500 and are attached to the gin context for the access log.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "validation_error", Message: "invalid input", Fields: verr.Fields})
	case errors.Is(err, service.ErrCodeResent):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "code_resent", Message: err.Error()})
	case errors.Is(err, service.ErrAlreadyTaken):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "already_taken", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_code", Message: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized", Message: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "forbidden", Message: err.Error()})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal_error", Message: "internal server error"})
	}
}

// bindJSON decodes and validates the body, writing a 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, service.NewValidationError("query", err.Error()))
		return false
	}
	return true
}

func bindError(err error) *service.ValidationError {
	fields := map[string]string{}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
	case errors.Is(err, models.ErrInvalidRole):
		fields["role"] = fmt.Sprintf("must be one of: %s, %s, %s", models.RoleUser, models.RoleModerator, models.RoleAdmin)
	case errors.As(err, &typeErr):
		fields[typeErr.Field] = fmt.Sprintf("expected %s", typeErr.Type.String())
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		fields["non_field_errors"] = "malformed JSON body"
	default:
		fields["non_field_errors"] = err.Error()
	}
	return &service.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
		}
		return fmt.Sprintf("ensure this value is at most %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
		}
		return fmt.Sprintf("ensure this value is at least %s", fe.Param())
	case "email":
		return "enter a valid email address"
	case "slug":
		return "only letters, digits, hyphens and underscores are allowed"
	case "role":
		return "unknown role"
	}
	return "invalid value"
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not_found", Message: "invalid " + name})
		return 0, false
	}
	return id, true
}

func bindPage(c *gin.Context, defaultSize int) (dto.Pagination, bool) {
	var p dto.Pagination
	if !bindQuery(c, &p) {
		return p, false
	}
	return p.Normalize(defaultSize), true
}
