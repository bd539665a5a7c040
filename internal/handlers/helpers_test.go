package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/config"
	"civic-reports/internal/models"
	"civic-reports/internal/realtime"
	"civic-reports/internal/repository"
	"civic-reports/internal/services"
	"civic-reports/pkg/auth"
	"civic-reports/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type caller struct {
	id    primitive.ObjectID
	token string
}

type apiFixture struct {
	router *gin.Engine
	store  *repository.MemoryStore
	hub    *realtime.Hub
	jwt    *auth.JWTManager

	admin    caller
	citizen  caller
	employee caller
	other    caller
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newAPI(t *testing.T, checks map[string]Pinger) *apiFixture {
	t.Helper()

	store := repository.NewMemoryStore()
	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	notifications := services.NewNotificationService(store.Notifications(), store.Users(), hub)
	reports := services.NewReportService(store.Reports(), store.Users(), notifications)
	jwtManager := auth.NewJWTManager("handler-secret", time.Hour)

	api := &apiFixture{store: store, hub: hub, jwt: jwtManager}
	api.router = NewRouter(RouterDeps{
		Config:        &config.Config{AllowedOrigins: []string{"http://localhost:3000"}},
		JWTManager:    jwtManager,
		Reports:       reports,
		Notifications: notifications,
		Hub:           hub,
		Health:        checks,
		Version:       "test",
	})

	api.admin = api.user(t, "Admin", models.RoleAdmin)
	api.citizen = api.user(t, "Olena", models.RoleCitizen)
	api.employee = api.user(t, "Inspector", models.RoleEmployee)
	api.other = api.user(t, "Petro", models.RoleCitizen)
	return api
}

func (a *apiFixture) user(t *testing.T, name string, role models.UserRole) caller {
	t.Helper()
	email := name + "@city.test"
	id := a.store.PutUser(models.User{Name: name, Email: email, Role: role, IsActive: true})
	token, err := a.jwt.GenerateToken(id, email, role)
	require.NoError(t, err)
	return caller{id: id, token: token}
}

func (a *apiFixture) do(t *testing.T, who caller, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who.token != "" {
		req.Header.Set("Authorization", "Bearer "+who.token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// envelope - відповідь API з розібраним полем data.
type envelope struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Error   string                     `json:"error"`
	Data    map[string]json.RawMessage `json:"data"`
	Meta    *response.Meta             `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func field(t *testing.T, body envelope, key string, out interface{}) {
	t.Helper()
	raw, ok := body.Data[key]
	require.True(t, ok, "missing data.%s", key)
	require.NoError(t, json.Unmarshal(raw, out))
}

func validReportBody() gin.H {
	return gin.H{
		"title":       "Broken streetlight",
		"description": "Light at the bus stop is off since Monday",
		"category":    models.ReportCategoryLighting,
		"location":    gin.H{"type": "Point", "coordinates": []float64{33.36, 46.75}},
		"address":     "Central avenue 12",
	}
}

func (a *apiFixture) createReport(t *testing.T, who caller) models.Report {
	t.Helper()
	w := a.do(t, who, http.MethodPost, "/api/v1/reports", validReportBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var report models.Report
	field(t, decode(t, w), "report", &report)
	return report
}

func (a *apiFixture) unread(t *testing.T, who caller) int64 {
	t.Helper()
	w := a.do(t, who, http.MethodGet, "/api/v1/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	field(t, decode(t, w), "count", &count)
	return count
}

var errPingFailed = errors.New("connection refused")
