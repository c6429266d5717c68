package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserID returns the volunteer AuthRequired stored on the request.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	uid, ok := c.Value(ContextUserIDKey).(uuid.UUID)
	return uid, ok && uid != uuid.Nil
}

// RequireUserID is UserID for protected handlers: it answers 401 and
// returns false when no volunteer is attached.
func RequireUserID(c *gin.Context) (uuid.UUID, bool) {
	uid, ok := UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	return uid, ok
}
