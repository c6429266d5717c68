// Package httpkit holds the gin helpers every module shares: JSON replies,
// error mapping, bearer auth, request logging and rate limiting.
package httpkit

import (
	"errors"
	"net/http"

	"fieldsurvey/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) { c.JSON(status, payload) }

func OK(c *gin.Context, payload any) { c.JSON(http.StatusOK, payload) }

func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError writes err and reports whether there was one. An *apperr.Error
// in the chain picks the status and message; anything else becomes an opaque
// 500 and is attached to the context for the request logger.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		Error(c, domainErr.HTTPStatus(), domainErr.Message, domainErr.Details)
		return true
	}
	_ = c.Error(err)
	Error(c, http.StatusInternalServerError, "internal error", nil)
	return true
}

// BindJSON decodes the body into dst, answering 400 when it cannot.
func BindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err.Error())
	}
	return err == nil
}
