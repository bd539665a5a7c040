package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "civic-reports/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	return ctx, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSuccessWithMessage(t *testing.T) {
	ctx, rec := newContext()
	SuccessWithMessage(ctx, http.StatusOK, "Report updated", gin.H{"report": "x"})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.True(t, resp.Success)
	require.Equal(t, "Report updated", resp.Message)
	require.Empty(t, resp.Error)
}

func TestSuccessWithMeta(t *testing.T) {
	ctx, rec := newContext()
	SuccessWithMeta(ctx, http.StatusOK, []string{"a"}, NewMeta(2, 10, 21))

	resp := decode(t, rec)
	require.NotNil(t, resp.Meta)
	require.Equal(t, int64(3), resp.Meta.TotalPages)
	require.Equal(t, 2, resp.Meta.Page)
}

func TestErrorRendersAppError(t *testing.T) {
	ctx, rec := newContext()
	Error(ctx, appErrors.NewBadRequest("Invalid request data").WithDetails("text is required"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "Invalid request data", resp.Message)
	require.Equal(t, "text is required", resp.Error)
}

func TestErrorHidesInternalCause(t *testing.T) {
	ctx, rec := newContext()
	Error(ctx, errors.New("connection reset by peer"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	require.Equal(t, "Internal server error", resp.Message)
	require.NotContains(t, rec.Body.String(), "connection reset")
}

func TestErrorNil(t *testing.T) {
	ctx, rec := newContext()
	Error(ctx, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
