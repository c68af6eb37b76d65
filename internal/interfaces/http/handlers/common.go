// Package handlers contains the gin HTTP handlers for the REST API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/interfaces/http/middleware"
	"github.com/medimatch/medimatch/pkg/errors"
)

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError maps an application error onto its HTTP status. Server-side
// details are masked; the code still identifies the failure class.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	message := err.Error()
	if appErr, ok := err.(*errors.AppError); ok {
		message = appErr.Message
	}
	if errors.IsServerError(code) {
		message = errors.DefaultMessageForCode(code)
	}

	c.AbortWithStatusJSON(status, errorResponse{
		Code:      string(code),
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// respondValidation rejects a malformed request with 400.
func respondValidation(c *gin.Context, message string) {
	respondError(c, errors.New(errors.ErrCodeValidation, message))
}

// queryInt parses an integer query parameter, returning def when the
// parameter is absent or unparsable.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// bindJSON decodes the request body, responding 400 on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// ok writes a 200 JSON response.
func ok(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

// created writes a 201 JSON response.
func created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}
