package validator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-review/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
	Setup()
}

func bind(t *testing.T, body string, dst interface{}) map[string]string {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBind_Choice(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"Upper", `{"index":0,"choice":"B"}`, "", ""},
		{"Lower", `{"index":3,"choice":"d"}`, "", ""},
		{"OutOfRange", `{"index":0,"choice":"E"}`, "choice", "choice must be one of A, B, C or D"},
		{"Missing", `{"index":0}`, "choice", "choice is a required field"},
		{"NegativeIndex", `{"index":-1,"choice":"A"}`, "index", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req model.SaveAnswerRequest
			fields := bind(t, tt.body, &req)
			if tt.field == "" {
				assert.Nil(t, fields)
				return
			}
			require.Contains(t, fields, tt.field)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, fields[tt.field])
			}
		})
	}
}

func TestBind_MalformedJSON(t *testing.T) {
	var req model.SaveAnswerRequest
	fields := bind(t, `{"index":`, &req)
	require.Contains(t, fields, "detail")
}

func TestTranslateErrors_PlainError(t *testing.T) {
	fields := TranslateErrors(errors.New("boom"))
	assert.Equal(t, map[string]string{"detail": "boom"}, fields)
}

func TestSetup_Idempotent(t *testing.T) {
	assert.NotPanics(t, Setup)
}
