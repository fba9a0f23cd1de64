package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/dimitrije/teamsync-api/internal/middleware"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var kindStatus = map[services.Kind]int{
	services.KindUnauthorized:  http.StatusForbidden,
	services.KindNotFound:      http.StatusNotFound,
	services.KindConflict:      http.StatusConflict,
	services.KindInvalidTarget: http.StatusUnprocessableEntity,
	services.KindExpired:       http.StatusGone,
	services.KindExhausted:     http.StatusGone,
	services.KindTransient:     http.StatusServiceUnavailable,
	services.KindInvalidInput:  http.StatusBadRequest,
}

// respondError writes a typed service error with its reason code. Untyped
// failures are logged and reported as 500 without detail.
func respondError(c *drift.Context, log *zap.Logger, err error) {
	var typed *services.Error
	if !errors.As(err, &typed) {
		if log != nil {
			log.Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
		c.InternalServerError("internal server error")
		return
	}

	status, ok := kindStatus[typed.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := typed.Message
	if msg == "" {
		msg = strings.ReplaceAll(string(typed.Kind), "_", " ")
	}
	if typed.Compensation != nil && log != nil {
		log.Error("compensation failed", zap.String("op", typed.Op), zap.Error(err))
	}
	_ = c.JSON(status, dto.ErrorResponse{Error: msg, Reason: string(typed.Reason)})
}

// bind decodes the JSON body into req and validates it, writing a 400 on
// failure.
func bind(c *drift.Context, req any) bool {
	if err := c.BindJSON(req); err != nil {
		c.BadRequest("invalid request body")
		return false
	}
	if err := validate.Struct(req); err != nil {
		c.BadRequest(validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// actor returns the authenticated user or writes a 401.
func actor(c *drift.Context) (uuid.UUID, bool) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return uuid.Nil, false
	}
	return userID, true
}

func paramID(c *drift.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.BadRequest("invalid " + label + " id")
		return uuid.Nil, false
	}
	return id, true
}
