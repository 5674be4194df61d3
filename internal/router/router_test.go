package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/handler"
	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/service"
)

type tokens struct{}

func (tokens) ValidateToken(tok string) (*service.Claims, error) {
	if tok != "valid" {
		return nil, errors.New("invalid")
	}
	return &service.Claims{UserID: 1, Plan: model.PlanFree}, nil
}

type noAuth struct{}

func (noAuth) Login(context.Context, string, string) (*model.LoginResponse, error) {
	return nil, service.ErrInvalidCredentials
}
func (noAuth) Me(context.Context, int) (*model.User, error) { return &model.User{ID: 1}, nil }

type catalog struct{}

func (catalog) List(context.Context) ([]model.Reviewer, error) { return []model.Reviewer{}, nil }
func (catalog) Get(context.Context, uuid.UUID) (*model.Reviewer, error) {
	return nil, service.ErrNotFound
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := zerolog.Nop()
	cfg := &config.Config{GinMode: gin.TestMode, AuthRateLimit: 2}
	return SetupRouter(tokens{}, &Handlers{
		Auth:     handler.NewAuthHandler(noAuth{}, log),
		Reviewer: handler.NewReviewerHandler(catalog{}, log),
		System:   handler.NewSystemHandler(okPinger{}, rdb, log),
	}, cfg)
}

func serve(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	var body *strings.Reader
	if method == http.MethodPost {
		body = strings.NewReader(`{"email":"a@example.com","password":"secret123"}`)
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRouter(t *testing.T) {
	r := newTestRouter(t)

	t.Run("Health", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
	})

	t.Run("RequiresToken", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/reviewers", "").Code)
		assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/reviewers", "forged").Code)
	})

	t.Run("ReviewersCacheable", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/v1/reviewers", "valid")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "private, max-age=60", w.Header().Get("Cache-Control"))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("MeUsesBearer", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/auth/me", "valid").Code)
	})

	t.Run("LoginRateLimited", func(t *testing.T) {
		codes := []int{
			serve(r, http.MethodPost, "/api/v1/auth/login", "").Code,
			serve(r, http.MethodPost, "/api/v1/auth/login", "").Code,
			serve(r, http.MethodPost, "/api/v1/auth/login", "").Code,
		}
		assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
	})

	t.Run("StreamRequiresQueryToken", func(t *testing.T) {
		path := "/ws/v1/attempts/" + uuid.NewString() + "/stream"
		assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, path, "valid").Code)
	})
}
