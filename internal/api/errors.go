package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	customerrors "github.com/axellelanca/magiccode/internal/errors"
)

// statusFor maps service errors onto HTTP status codes and client messages.
func statusFor(err error) (int, string) {
	var verr *customerrors.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "Uploaded file is too large"
	case errors.Is(err, customerrors.ErrDecryption):
		return http.StatusBadRequest, "Invalid identifier"
	case errors.Is(err, customerrors.ErrAccountInactive):
		return http.StatusForbidden, "Account inactive. Please contact the administrator."
	case errors.Is(err, customerrors.ErrAccountNotFound):
		return http.StatusUnauthorized, "Account not found"
	case errors.Is(err, customerrors.ErrNotFound):
		return http.StatusNotFound, "Magic Code not found"
	case errors.Is(err, customerrors.ErrConcurrentUpdate):
		return http.StatusConflict, "Magic Code was changed by another request, please retry"
	case errors.Is(err, customerrors.ErrExhaustedKeyspace):
		return http.StatusServiceUnavailable, "Unable to generate unique short code. Please try again later."
	}
	return http.StatusInternalServerError, "Internal server error"
}

func writeError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.JSON(status, gin.H{"message": message, "type": "error"})
}

// writeAdminError reports unknown accounts as 404: on admin routes the account
// is the addressed resource, not the caller.
func writeAdminError(c *gin.Context, err error) {
	if errors.Is(err, customerrors.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Account not found", "type": "error"})
		return
	}
	writeError(c, err)
}
