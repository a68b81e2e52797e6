// Package httpapi is the gin transport for the user and session endpoints.
package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{StatusCode: status, Data: data, Message: message, Success: status < 400})
}

// statusFor maps an error to a status code and a message that is safe to
// show. Only validation errors carry their detail.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "request body too large"
	}

	switch common.KindOf(err) {
	case common.ErrorValidation:
		msg := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
		return http.StatusBadRequest, msg
	case common.ErrorConflict:
		return http.StatusConflict, "user with email or username already exists"
	case common.ErrorUnauthorized:
		return http.StatusUnauthorized, "unauthorized request"
	case common.ErrorNotFound:
		return http.StatusNotFound, "user does not exist"
	case common.ErrorDependency:
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

// fail writes the error response and logs the failure. Nothing below the
// transport logs failures, so this is the only place they are recorded.
func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)

	ctx := c.Request.Context()
	args := []any{"method", c.Request.Method, "route", c.FullPath(), "status", status, "error", err}
	if status >= http.StatusInternalServerError {
		h.log.Error(ctx, "request failed", args...)
	} else {
		h.log.Warn(ctx, "request rejected", args...)
	}

	c.AbortWithStatusJSON(status, Response{StatusCode: status, Message: msg})
}
