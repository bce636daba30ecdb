package ticktick

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/teemow/ticktick-mcp/internal/config"
	"github.com/teemow/ticktick-mcp/internal/logging"
)

const (
	// DefaultBaseURL is the TickTick Open API root.
	DefaultBaseURL = "https://api.ticktick.com/open/v1"

	// DefaultTokenURL is the TickTick OAuth token endpoint.
	DefaultTokenURL = "https://ticktick.com/oauth/token"

	// TokenScope is the scope requested when refreshing tokens.
	TokenScope = "tasks:write tasks:read"

	defaultTimeout = 30 * time.Second
)

// ErrNoRefreshToken is returned when a token refresh is needed but no
// refresh token is configured.
var ErrNoRefreshToken = errors.New("no refresh token available")

// APIError represents a failed API call. StatusCode is 0 when the request
// never produced an HTTP response (transport failure).
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// API is the resource surface of the TickTick client. Tool handlers depend
// on this interface so tests can substitute a stub.
type API interface {
	GetProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, projectID string) (*Project, error)
	GetProjectWithData(ctx context.Context, projectID string) (*ProjectData, error)
	CreateProject(ctx context.Context, name, color, viewMode string) (*Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	GetTask(ctx context.Context, projectID, taskID string) (*Task, error)
	CreateTask(ctx context.Context, params CreateTaskParams) (*Task, error)
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*Task, error)
	CompleteTask(ctx context.Context, projectID, taskID string) error
	DeleteTask(ctx context.Context, projectID, taskID string) error
}

// Client talks to the TickTick Open API with OAuth2 bearer authentication.
// It is safe for concurrent use; the token pair is shared across goroutines
// and rotated under a mutex.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	tokenURL        string
	envFile         string
	logger          *slog.Logger
	refreshObserver func(error)

	clientID     string
	clientSecret string

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(c *Client) {
		c.tokenURL = u
	}
}

// WithEnvFile sets the env file where rotated tokens are persisted after a
// refresh. An empty path disables persistence.
func WithEnvFile(path string) Option {
	return func(c *Client) {
		c.envFile = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRefreshObserver registers a hook invoked after every token refresh
// attempt with the refresh outcome.
func WithRefreshObserver(fn func(error)) Option {
	return func(c *Client) {
		c.refreshObserver = fn
	}
}

// NewClient creates a TickTick client from the given credentials. The access
// token is required; a missing token is a configuration error, not a lazy
// failure on first use.
func NewClient(creds *config.Credentials, opts ...Option) (*Client, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials are required")
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		baseURL:      DefaultBaseURL,
		tokenURL:     DefaultTokenURL,
		logger:       slog.Default(),
		clientID:     creds.ClientID,
		clientSecret: creds.ClientSecret,
		accessToken:  creds.AccessToken,
		refreshToken: creds.RefreshToken,
	}
	if creds.BaseURL != "" {
		c.baseURL = strings.TrimSuffix(creds.BaseURL, "/")
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// bearerToken returns the current access token.
func (c *Client) bearerToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// execute performs an API request. method must be GET, POST or DELETE; any
// other method panics because it indicates internal misuse, never tool
// input. A 401 triggers one token refresh and one retry; remote and
// transport failures come back as *APIError, while a malformed success body
// is a plain error.
func (c *Client) execute(ctx context.Context, method, path string, body, out any) error {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		panic(fmt.Sprintf("unsupported HTTP method: %s", method))
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	token := c.bearerToken()
	resp, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return &APIError{Message: err.Error()}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		stale, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if refreshErr := c.refreshAccessToken(ctx, token); refreshErr != nil {
			c.logger.Warn("token refresh failed",
				logging.Operation(method+" "+path),
				logging.Err(refreshErr))
			return &APIError{
				StatusCode: http.StatusUnauthorized,
				Message:    fmt.Sprintf("request failed with status %d: %s", http.StatusUnauthorized, strings.TrimSpace(string(stale))),
			}
		}

		resp, err = c.send(ctx, method, path, payload, c.bearerToken())
		if err != nil {
			return &APIError{Message: err.Error()}
		}
	}

	return decodeResponse(resp, out)
}

// send issues a single HTTP request with the given bearer token.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// decodeResponse consumes and closes the response body. Empty success
// bodies (DELETE returns 204, some endpoints return nothing) leave out
// untouched.
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// refreshAccessToken exchanges the refresh token for a new token pair. The
// staleToken argument is the access token the caller saw the 401 with; if
// another goroutine already rotated past it, no network call is made.
func (c *Client) refreshAccessToken(ctx context.Context, staleToken string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != staleToken {
		// Another request already refreshed; retry with the fresh token.
		return nil
	}

	err := c.refreshLocked(ctx)
	if c.refreshObserver != nil {
		c.refreshObserver(err)
	}
	return err
}

func (c *Client) refreshLocked(ctx context.Context) error {
	if c.refreshToken == "" {
		return ErrNoRefreshToken
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {c.refreshToken},
		"grant_type":    {"refresh_token"},
		"scope":         {TokenScope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach token endpoint: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("token refresh failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var tr TokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("token response contained no access token")
	}

	c.accessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		// Some deployments omit the refresh token on rotation; keep the
		// old one so later refreshes still work.
		c.refreshToken = tr.RefreshToken
	}

	c.logger.Info("access token refreshed",
		slog.String("access_token", logging.SanitizeToken(c.accessToken)))

	if c.envFile != "" {
		if err := config.SaveTokens(c.envFile, c.accessToken, c.refreshToken); err != nil {
			c.logger.Warn("failed to persist refreshed tokens", logging.Err(err))
		}
	}

	return nil
}

// GetProjects lists all projects.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.execute(ctx, http.MethodGet, "/project", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject retrieves a single project by ID.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	if err := c.execute(ctx, http.MethodGet, "/project/"+projectID, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjectWithData retrieves a project together with its undone tasks and
// columns.
func (c *Client) GetProjectWithData(ctx context.Context, projectID string) (*ProjectData, error) {
	var data ProjectData
	if err := c.execute(ctx, http.MethodGet, "/project/"+projectID+"/data", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreateProject creates a project. Color defaults to #F18181 and viewMode to
// "list" when empty; the kind is always TASK.
func (c *Client) CreateProject(ctx context.Context, name, color, viewMode string) (*Project, error) {
	if color == "" {
		color = "#F18181"
	}
	if viewMode == "" {
		viewMode = "list"
	}

	body := map[string]any{
		"name":     name,
		"color":    color,
		"viewMode": viewMode,
		"kind":     "TASK",
	}

	var project Project
	if err := c.execute(ctx, http.MethodPost, "/project", body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject deletes a project.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.execute(ctx, http.MethodDelete, "/project/"+projectID, nil, nil)
}

// GetTask retrieves a task by project and task ID.
func (c *Client) GetTask(ctx context.Context, projectID, taskID string) (*Task, error) {
	var task Task
	if err := c.execute(ctx, http.MethodGet, "/project/"+projectID+"/task/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

type createTaskRequest struct {
	Title     string `json:"title"`
	ProjectID string `json:"projectId"`
	Content   string `json:"content,omitempty"`
	Priority  int    `json:"priority"`
	StartDate string `json:"startDate,omitempty"`
	DueDate   string `json:"dueDate,omitempty"`
	IsAllDay  bool   `json:"isAllDay"`
}

// CreateTask creates a task. Priority and isAllDay are always sent so the
// server never falls back to its own defaults.
func (c *Client) CreateTask(ctx context.Context, params CreateTaskParams) (*Task, error) {
	body := createTaskRequest{
		Title:     params.Title,
		ProjectID: params.ProjectID,
		Content:   params.Content,
		Priority:  params.Priority,
		StartDate: params.StartDate,
		DueDate:   params.DueDate,
		IsAllDay:  false,
	}

	var task Task
	if err := c.execute(ctx, http.MethodPost, "/task", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

type updateTaskRequest struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"projectId"`
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	Priority  *int    `json:"priority,omitempty"`
	StartDate *string `json:"startDate,omitempty"`
	DueDate   *string `json:"dueDate,omitempty"`
}

// UpdateTask updates a task. Only the non-nil fields of params are sent;
// everything else stays untouched server-side.
func (c *Client) UpdateTask(ctx context.Context, params UpdateTaskParams) (*Task, error) {
	body := updateTaskRequest{
		ID:        params.TaskID,
		ProjectID: params.ProjectID,
		Title:     params.Title,
		Content:   params.Content,
		Priority:  params.Priority,
		StartDate: params.StartDate,
		DueDate:   params.DueDate,
	}

	var task Task
	if err := c.execute(ctx, http.MethodPost, "/task/"+params.TaskID, body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteTask marks a task as complete.
func (c *Client) CompleteTask(ctx context.Context, projectID, taskID string) error {
	return c.execute(ctx, http.MethodPost, "/project/"+projectID+"/task/"+taskID+"/complete", nil, nil)
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	return c.execute(ctx, http.MethodDelete, "/project/"+projectID+"/task/"+taskID, nil, nil)
}

var _ API = (*Client)(nil)
