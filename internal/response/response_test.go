package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"n": 1}) })
	r.GET("/fail", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrNotFound) })

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"Generated", "", false},
		{"Reused", "req-42_a.b", true},
		{"TooLong", strings.Repeat("x", 65), false},
		{"Injection", "abc\nlevel=error", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			require.NotEmpty(t, got)
			if tt.keep {
				assert.Equal(t, tt.header, got)
			} else {
				assert.NotEqual(t, tt.header, got)
			}

			var env Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, got, env.Metadata.RequestID)
			assert.Nil(t, env.Error)
		})
	}

	t.Run("ErrorEnvelope", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)

		var env Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.NotNil(t, env.Error)
		assert.Equal(t, ErrNotFound, env.Error.Code)
		assert.Equal(t, GetMessage(ErrNotFound), env.Error.Message)
		assert.Nil(t, env.Data)
	})
}

func TestGetMessage_CoversEveryCode(t *testing.T) {
	codes := []ErrCode{
		ErrInvalidCredentials, ErrTokenRequired, ErrTokenInvalid, ErrSubscriptionRequired,
		ErrValidation, ErrInvalidID, ErrInvalidPayload, ErrNotFound, ErrNoQuestions,
		ErrAttemptCompleted, ErrAttemptNotCompleted, ErrInvalidQuestionIndex, ErrInvalidChoice,
		ErrTimeExpired, ErrSubmitInProgress, ErrRateLimitExceeded, ErrInternal,
	}
	fallback := GetMessage("SOMETHING_ELSE")
	for _, code := range codes {
		assert.NotEqual(t, fallback, GetMessage(code), code)
	}
}
