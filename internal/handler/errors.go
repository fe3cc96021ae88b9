package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolattendance/internal/attendance"
	"schoolattendance/internal/auth"
	"schoolattendance/internal/directory"
)

// respondError translates service failures into status codes. Anything
// unrecognised is a 500 carrying the error text.
func respondError(c *gin.Context, err error) {
	switch {
	case isInvalidCredentials(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, directory.ErrRollNumberExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Roll number already exists"})
	case errors.Is(err, directory.ErrUsernameExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
	case errors.Is(err, directory.ErrInvalidRole),
		errors.Is(err, directory.ErrMissingField),
		errors.Is(err, attendance.ErrInvalidDate),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrUnknownStudent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		slog.Error("request error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func isInvalidCredentials(err error) bool {
	return errors.Is(err, auth.ErrInvalidCredentials)
}
