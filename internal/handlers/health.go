// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger - залежність, доступність якої перевіряє /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks  map[string]Pinger
	version string
	started time.Time
}

func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, version: version, started: time.Now()}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	code := http.StatusOK
	components := gin.H{}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"version":    h.version,
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"components": components,
		"time":       time.Now().UTC(),
	})
}
