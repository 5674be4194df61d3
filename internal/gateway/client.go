// Package gateway is the HTTP client for the exam API. Client satisfies
// session.Gateway and also covers the catalog, library, results and support
// endpoints used by the terminal client.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-review/internal/model"
)

// ErrNotFound is matched by errors.Is for any 404 APIError.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is matched by errors.Is for any 401 APIError.
var ErrUnauthorized = errors.New("unauthorized")

// TokenSource yields the bearer token for each request. An empty token sends
// no Authorization header.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

// APIError is a non-2xx response decoded from the API's error envelope.
type APIError struct {
	Status    int               `json:"-"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("api: HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

type envelope struct {
	Data     json.RawMessage `json:"data"`
	Error    *APIError       `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

// Client talks to one API base URL, e.g. http://localhost:8080/api/v1.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	log       zerolog.Logger
	useStream bool

	mu      sync.Mutex
	streams map[string]*Stream
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "gateway").Logger() }
}

// WithStream routes answer saves over the attempt websocket, falling back to
// HTTP when the stream fails.
func WithStream(enabled bool) Option {
	return func(c *Client) { c.useStream = enabled }
}

// New creates a Client. tokens may be nil for unauthenticated use (login).
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		log:     zerolog.Nop(),
		streams: make(map[string]*Stream),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close closes any open attempt streams.
func (c *Client) Close() error {
	c.mu.Lock()
	streams := c.streams
	c.streams = make(map[string]*Stream)
	c.mu.Unlock()

	var errs []error
	for _, s := range streams {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// ─── Auth ─────────────────────────────────────────────────────────────

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	var out model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", model.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Catalog & library ────────────────────────────────────────────────

// ListReviewers returns every reviewer in the catalog.
func (c *Client) ListReviewers(ctx context.Context) ([]model.Reviewer, error) {
	var out []model.Reviewer
	if err := c.do(ctx, http.MethodGet, "/reviewers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReviewer returns one reviewer.
func (c *Client) GetReviewer(ctx context.Context, reviewerID string) (*model.Reviewer, error) {
	var out model.Reviewer
	if err := c.do(ctx, http.MethodGet, "/reviewers/"+url.PathEscape(reviewerID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Library returns the caller's saved reviewers.
func (c *Client) Library(ctx context.Context) ([]model.LibraryEntry, error) {
	var out []model.LibraryEntry
	if err := c.do(ctx, http.MethodGet, "/library", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddToLibrary saves a reviewer to the caller's library.
func (c *Client) AddToLibrary(ctx context.Context, reviewerID string) error {
	return c.do(ctx, http.MethodPost, "/library/"+url.PathEscape(reviewerID), nil, nil)
}

// RemoveFromLibrary removes a reviewer from the caller's library.
func (c *Client) RemoveFromLibrary(ctx context.Context, reviewerID string) error {
	return c.do(ctx, http.MethodDelete, "/library/"+url.PathEscape(reviewerID), nil, nil)
}

// ─── Attempts ─────────────────────────────────────────────────────────

// Start creates or resumes the caller's attempt on a reviewer.
func (c *Client) Start(ctx context.Context, reviewerID string) (model.AttemptState, error) {
	var out model.StartAttemptResponse
	if err := c.do(ctx, http.MethodPost, "/exam/"+url.PathEscape(reviewerID)+"/start", nil, &out); err != nil {
		return nil, err
	}
	return out.State()
}

// SaveAnswer stores one answer. With streaming enabled the websocket is tried
// first.
func (c *Client) SaveAnswer(ctx context.Context, attemptID string, index int, choice model.Choice) error {
	if c.useStream {
		err := c.saveOverStream(ctx, attemptID, index, choice)
		if err == nil {
			return nil
		}
		c.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("Stream autosave failed, falling back to HTTP")
	}
	body := model.SaveAnswerRequest{Index: index, Choice: string(choice)}
	return c.do(ctx, http.MethodPut, attemptPath(attemptID, "answers"), body, nil)
}

func (c *Client) saveOverStream(ctx context.Context, attemptID string, index int, choice model.Choice) error {
	s, err := c.stream(ctx, attemptID)
	if err != nil {
		return err
	}
	if err := s.Autosave(ctx, index, choice); err != nil {
		c.dropStream(attemptID, s)
		return err
	}
	return nil
}

func (c *Client) stream(ctx context.Context, attemptID string) (*Stream, error) {
	c.mu.Lock()
	s, ok := c.streams[attemptID]
	c.mu.Unlock()
	if ok {
		return s, nil
	}

	s, err := c.Dial(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.streams[attemptID]; ok {
		s.Close()
		return existing, nil
	}
	c.streams[attemptID] = s
	return s, nil
}

func (c *Client) dropStream(attemptID string, s *Stream) {
	c.mu.Lock()
	if c.streams[attemptID] == s {
		delete(c.streams, attemptID)
	}
	c.mu.Unlock()
	s.Close()
}

// Pause stores the remaining time and position of an attempt.
func (c *Client) Pause(ctx context.Context, attemptID string, remainingSeconds *int, currentIndex int) error {
	body := model.PauseAttemptRequest{RemainingSeconds: remainingSeconds, CurrentIndex: currentIndex}
	err := c.do(ctx, http.MethodPost, attemptPath(attemptID, "pause"), body, nil)

	c.mu.Lock()
	s, ok := c.streams[attemptID]
	c.mu.Unlock()
	if ok {
		c.dropStream(attemptID, s)
	}
	return err
}

// Submit grades the attempt. Repeated calls return the stored result.
func (c *Client) Submit(ctx context.Context, attemptID string) (*model.Result, error) {
	var out model.Result
	if err := c.do(ctx, http.MethodPost, attemptPath(attemptID, "submit"), nil, &out); err != nil {
		return nil, err
	}

	c.mu.Lock()
	s, ok := c.streams[attemptID]
	c.mu.Unlock()
	if ok {
		c.dropStream(attemptID, s)
	}
	return &out, nil
}

// Result fetches the graded result of a completed attempt.
func (c *Client) Result(ctx context.Context, attemptID string) (*model.Result, error) {
	var out model.Result
	if err := c.do(ctx, http.MethodGet, attemptPath(attemptID, "result"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Review fetches the per-question review of a completed attempt.
func (c *Client) Review(ctx context.Context, attemptID string) (*model.Review, error) {
	var out model.Review
	if err := c.do(ctx, http.MethodGet, attemptPath(attemptID, "review"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Support ──────────────────────────────────────────────────────────

// SubmitTicket files a support request.
func (c *Client) SubmitTicket(ctx context.Context, subject, message string) (*model.SupportTicket, error) {
	var out model.SupportTicket
	body := model.CreateTicketRequest{Subject: subject, Message: message}
	if err := c.do(ctx, http.MethodPost, "/support/tickets", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Transport ────────────────────────────────────────────────────────

func attemptPath(attemptID, action string) string {
	return "/attempts/" + url.PathEscape(attemptID) + "/" + action
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("API request")

	var src io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "br") {
		src = brotli.NewReader(resp.Body)
	}
	raw, err := io.ReadAll(io.LimitReader(src, 8<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr = env.Error
			apiErr.Status = resp.StatusCode
		}
		apiErr.RequestID = env.Metadata.RequestID
		return apiErr
	}

	if out == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("decode %s %s: empty data", method, path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
