package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/response"
	"github.com/stemsi/exstem-review/internal/service"
)

// serviceErrors maps service sentinels to their HTTP status and error code.
var serviceErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrSubscriptionRequired, http.StatusForbidden, response.ErrSubscriptionRequired},
	{service.ErrNoQuestions, http.StatusUnprocessableEntity, response.ErrNoQuestions},
	{service.ErrAttemptCompleted, http.StatusConflict, response.ErrAttemptCompleted},
	{service.ErrAttemptNotCompleted, http.StatusConflict, response.ErrAttemptNotCompleted},
	{service.ErrSubmitInProgress, http.StatusConflict, response.ErrSubmitInProgress},
	{service.ErrInvalidQuestionIndex, http.StatusBadRequest, response.ErrInvalidQuestionIndex},
	{service.ErrInvalidChoice, http.StatusBadRequest, response.ErrInvalidChoice},
	{service.ErrTimeExpired, http.StatusGone, response.ErrTimeExpired},
}

// classify returns the status and code for err, defaulting to 500.
func classify(err error) (int, response.ErrCode) {
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			return se.status, se.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failFromService writes the error envelope for a service error. Unknown
// errors are logged and reported as INTERNAL_ERROR.
func failFromService(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", response.RequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}
