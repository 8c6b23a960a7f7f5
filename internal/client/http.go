package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/groblegark/tangle/internal/model"
)

// HTTPClient implements TangleClient using the tangle HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// SetToken swaps the bearer token used for subsequent requests. Login and
// register use it to adopt the freshly issued session.
func (c *HTTPClient) SetToken(token string) { c.token = token }

// --- Auth ---

func (c *HTTPClient) Register(ctx context.Context, username, email, password string) (*Session, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var sess Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/register", body, &sess); err != nil {
		return nil, err
	}
	c.token = sess.Token
	return &sess, nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*Session, error) {
	body := map[string]string{"username": username, "password": password}
	var sess Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", body, &sess); err != nil {
		return nil, err
	}
	c.token = sess.Token
	return &sess, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, "/v1/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- Task CRUD ---

func (c *HTTPClient) CreateTask(ctx context.Context, req *CreateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) ListTasks(ctx context.Context, req *ListTasksRequest) (*ListTasksResponse, error) {
	q := url.Values{}
	if len(req.Status) > 0 {
		q.Set("status", strings.Join(req.Status, ","))
	}
	if len(req.Priority) > 0 {
		q.Set("priority", strings.Join(req.Priority, ","))
	}
	if req.Tag != "" {
		q.Set("tag", req.Tag)
	}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Overdue {
		q.Set("overdue", "true")
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", req.Offset))
	}

	path := "/v1/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListTasksResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) UpdateTask(ctx context.Context, id string, req *UpdateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/tasks/"+url.PathEscape(id), req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) ToggleTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/toggle", nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) DeleteTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) RelatedTasks(ctx context.Context, id string) ([]*model.Task, error) {
	var resp struct {
		Tasks []*model.Task `json:"tasks"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(id)+"/related", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// --- Task-tag associations ---

func (c *HTTPClient) SetTaskTags(ctx context.Context, taskID string, tagIDs []string) (*model.Task, error) {
	body := map[string][]string{"tag_ids": tagIDs}
	var task model.Task
	if err := c.doJSON(ctx, http.MethodPut, "/v1/tasks/"+url.PathEscape(taskID)+"/tags", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) AddTaskTag(ctx context.Context, taskID, tagID string) (*model.Task, error) {
	path := "/v1/tasks/" + url.PathEscape(taskID) + "/tags/" + url.PathEscape(tagID)
	var task model.Task
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) RemoveTaskTag(ctx context.Context, taskID, tagID string) (*model.Task, error) {
	path := "/v1/tasks/" + url.PathEscape(taskID) + "/tags/" + url.PathEscape(tagID)
	var task model.Task
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// --- Tags ---

func (c *HTTPClient) CreateTag(ctx context.Context, name, color string) (*model.Tag, error) {
	body := map[string]string{"name": name}
	if color != "" {
		body["color"] = color
	}
	var tag model.Tag
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tags", body, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (c *HTTPClient) GetTag(ctx context.Context, id string) (*model.Tag, error) {
	var tag model.Tag
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tags/"+url.PathEscape(id), nil, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (c *HTTPClient) ListTags(ctx context.Context) ([]*model.Tag, error) {
	var resp struct {
		Tags []*model.Tag `json:"tags"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tags", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

func (c *HTTPClient) UpdateTag(ctx context.Context, id string, req *UpdateTagRequest) (*model.Tag, error) {
	var tag model.Tag
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/tags/"+url.PathEscape(id), req, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (c *HTTPClient) DeleteTag(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/tags/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) MergeTags(ctx context.Context, fromID, intoID string) (*model.Tag, error) {
	body := map[string]string{"into_id": intoID}
	var tag model.Tag
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tags/"+url.PathEscape(fromID)+"/merge", body, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (c *HTTPClient) RelatedTags(ctx context.Context, id string, limit int) ([]*model.Tag, error) {
	path := "/v1/tags/" + url.PathEscape(id) + "/related"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var resp struct {
		Tags []*model.Tag `json:"tags"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

func (c *HTTPClient) AutocompleteTags(ctx context.Context, prefix string, limit int) ([]*model.Tag, error) {
	q := url.Values{}
	q.Set("q", prefix)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var resp struct {
		Tags []*model.Tag `json:"tags"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tags/autocomplete?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

// --- Graph and stats ---

func (c *HTTPClient) GraphData(ctx context.Context, filterTag, filterStatus string) (*model.GraphPayload, error) {
	q := url.Values{}
	if filterTag != "" {
		q.Set("filter_tag", filterTag)
	}
	if filterStatus != "" {
		q.Set("filter_status", filterStatus)
	}
	path := "/api/graph/data/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var payload model.GraphPayload
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *HTTPClient) Stats(ctx context.Context) (*model.UserStats, error) {
	var stats model.UserStats
	if err := c.doJSON(ctx, http.MethodGet, "/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
