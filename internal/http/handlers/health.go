package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a readiness dependency such as the event store or Redis.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks         map[string]Pinger
	isShuttingDown func() bool
	timeout        time.Duration
}

// NewHealthHandler reports not ready while isShuttingDown returns true so
// load balancers drain the instance. isShuttingDown may be nil.
func NewHealthHandler(checks map[string]Pinger, isShuttingDown func() bool) *HealthHandler {
	if isShuttingDown == nil {
		isShuttingDown = func() bool { return false }
	}
	return &HealthHandler{checks: checks, isShuttingDown: isShuttingDown, timeout: time.Second}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings every dependency and reports 503 when any is down.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.isShuttingDown() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(gin.H, len(names))

	for _, name := range names {
		c, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
		err := h.checks[name](c)
		cancel()

		if err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	ctx.JSON(status, gin.H{"status": state, "checks": results})
}
