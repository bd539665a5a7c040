// Package client - Go-клієнт REST API звернень.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"civic-reports/internal/models"
)

// AuthState зберігає токен сесії. Після відповіді 401 токен скидається.
type AuthState struct {
	mu    sync.RWMutex
	token string
}

func NewAuthState(token string) *AuthState {
	return &AuthState{token: token}
}

func (a *AuthState) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *AuthState) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

func (a *AuthState) Clear() {
	a.SetToken("")
}

func (a *AuthState) Authenticated() bool {
	return a.Token() != ""
}

// APIError - відповідь з success=false.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Meta    *Meta           `json:"meta"`
}

type Client struct {
	http *resty.Client
	auth *AuthState
}

func New(baseURL string, auth *AuthState) *Client {
	if auth == nil {
		auth = NewAuthState("")
	}

	c := &Client{auth: auth}
	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json").
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			if token := auth.Token(); token != "" {
				req.SetAuthToken(token)
			}
			return nil
		}).
		OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() == http.StatusUnauthorized {
				auth.Clear()
			}
			return nil
		})
	return c
}

func (c *Client) Auth() *AuthState {
	return c.auth
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, query map[string]string) (*envelope, error) {
	var ok, failed envelope

	req := c.http.R().
		SetContext(ctx).
		SetResult(&ok).
		SetError(&failed)
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		message := failed.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: message, Details: failed.Error}
	}
	return &ok, nil
}

// field розбирає data.<key> у out.
func (e *envelope) field(key string, out interface{}) error {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	raw, ok := data[key]
	if !ok {
		return fmt.Errorf("response has no data.%s", key)
	}
	return json.Unmarshal(raw, out)
}

type CreateReportRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Priority    string          `json:"priority,omitempty"`
	Location    models.Location `json:"location"`
	Address     string          `json:"address,omitempty"`
	Images      []string        `json:"images,omitempty"`
}

type UpdateReportRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Priority    *string          `json:"priority,omitempty"`
	Status      *string          `json:"status,omitempty"`
	Location    *models.Location `json:"location,omitempty"`
	Address     *string          `json:"address,omitempty"`
	Version     *int64           `json:"version,omitempty"`
}

type ListOptions struct {
	Status   string
	Category string
	Priority string
	Page     int
	Limit    int
}

func (o ListOptions) query() map[string]string {
	q := map[string]string{}
	if o.Status != "" {
		q["status"] = o.Status
	}
	if o.Category != "" {
		q["category"] = o.Category
	}
	if o.Priority != "" {
		q["priority"] = o.Priority
	}
	if o.Page > 0 {
		q["page"] = strconv.Itoa(o.Page)
	}
	if o.Limit > 0 {
		q["limit"] = strconv.Itoa(o.Limit)
	}
	return q
}

func (c *Client) reportCall(ctx context.Context, method, path string, body interface{}) (*models.Report, error) {
	env, err := c.do(ctx, method, path, body, nil)
	if err != nil {
		return nil, err
	}
	var report models.Report
	if err := env.field("report", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func reportPath(id string) string {
	return "/api/v1/reports/" + id
}

func (c *Client) CreateReport(ctx context.Context, req CreateReportRequest) (*models.Report, error) {
	return c.reportCall(ctx, http.MethodPost, "/api/v1/reports", req)
}

func (c *Client) GetReport(ctx context.Context, id string) (*models.Report, error) {
	return c.reportCall(ctx, http.MethodGet, reportPath(id), nil)
}

func (c *Client) ListReports(ctx context.Context, opts ListOptions) ([]models.Report, *Meta, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v1/reports", nil, opts.query())
	if err != nil {
		return nil, nil, err
	}
	var reports []models.Report
	if err := env.field("reports", &reports); err != nil {
		return nil, nil, err
	}
	return reports, env.Meta, nil
}

func (c *Client) UpdateReport(ctx context.Context, id string, req UpdateReportRequest) (*models.Report, error) {
	return c.reportCall(ctx, http.MethodPatch, reportPath(id), req)
}

// DeleteReport - м'яке видалення; reason може бути порожнім.
func (c *Client) DeleteReport(ctx context.Context, id, reason string) error {
	var body interface{}
	if reason != "" {
		body = map[string]string{"reason": reason}
	}
	_, err := c.do(ctx, http.MethodDelete, reportPath(id), body, nil)
	return err
}

func (c *Client) AddComment(ctx context.Context, id, text string) (*models.TimelineEntry, error) {
	env, err := c.do(ctx, http.MethodPost, reportPath(id)+"/comments", map[string]string{"text": text}, nil)
	if err != nil {
		return nil, err
	}
	var entry models.TimelineEntry
	if err := env.field("comment", &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) GetComments(ctx context.Context, id string) ([]models.TimelineEntry, error) {
	env, err := c.do(ctx, http.MethodGet, reportPath(id)+"/comments", nil, nil)
	if err != nil {
		return nil, err
	}
	var entries []models.TimelineEntry
	if err := env.field("comments", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) AssignReport(ctx context.Context, id, assigneeID, note string) (*models.Report, error) {
	return c.reportCall(ctx, http.MethodPatch, reportPath(id)+"/assign",
		map[string]string{"assignee_id": assigneeID, "note": note})
}

func (c *Client) UpdateStatus(ctx context.Context, id, status, comment string) (*models.Report, error) {
	return c.reportCall(ctx, http.MethodPatch, reportPath(id)+"/status",
		map[string]string{"status": status, "comment": comment})
}

func (c *Client) SubmitFeedback(ctx context.Context, id string, rating int, comment string) (*models.Report, error) {
	return c.reportCall(ctx, http.MethodPost, reportPath(id)+"/feedback",
		map[string]interface{}{"rating": rating, "comment": comment})
}

func (c *Client) Notifications(ctx context.Context, unreadOnly bool, page, limit int) ([]models.Notification, *Meta, error) {
	q := map[string]string{}
	if unreadOnly {
		q["unread_only"] = "true"
	}
	if page > 0 {
		q["page"] = strconv.Itoa(page)
	}
	if limit > 0 {
		q["limit"] = strconv.Itoa(limit)
	}

	env, err := c.do(ctx, http.MethodGet, "/api/v1/notifications", nil, q)
	if err != nil {
		return nil, nil, err
	}
	var items []models.Notification
	if err := env.field("notifications", &items); err != nil {
		return nil, nil, err
	}
	return items, env.Meta, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v1/notifications/unread-count", nil, nil)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := env.field("count", &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *Client) MarkRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/v1/notifications/"+id+"/read", nil, nil)
	return err
}

func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	env, err := c.do(ctx, http.MethodPatch, "/api/v1/notifications/read-all", nil, nil)
	if err != nil {
		return 0, err
	}
	var updated int64
	if err := env.field("updated", &updated); err != nil {
		return 0, err
	}
	return updated, nil
}
