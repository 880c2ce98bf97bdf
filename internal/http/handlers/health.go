package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is implemented by every store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnCounter reports open event sockets.
type ConnCounter interface {
	TotalConnections() int
}

// HealthHandler serves the probes. Readiness depends only on the store;
// the socket count is informational.
type HealthHandler struct {
	store   Pinger
	driver  string
	conns   ConnCounter
	version string
	started time.Time
}

func NewHealthHandler(store Pinger, driver, version string, conns ConnCounter) *HealthHandler {
	return &HealthHandler{
		store:   store,
		driver:  driver,
		conns:   conns,
		version: version,
		started: time.Now(),
	}
}

type StoreStatus struct {
	Driver    string `json:"driver"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

type ReadinessResponse struct {
	Status      string      `json:"status"`
	Version     string      `json:"version,omitempty"`
	Uptime      string      `json:"uptime"`
	Store       StoreStatus `json:"store"`
	Connections int         `json:"wsConnections"`
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness pings the store and answers 503 while it is unreachable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	st := h.pingStore(c.Request.Context(), 5*time.Second)

	res := ReadinessResponse{
		Status:  "ready",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Store:   st,
	}
	if h.conns != nil {
		res.Connections = h.conns.TotalConnections()
	}

	code := http.StatusOK
	if st.Status != "up" {
		res.Status = "not ready"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, res)
}

// Health is the short form used by load balancers.
func (h *HealthHandler) Health(c *gin.Context) {
	st := h.pingStore(c.Request.Context(), 3*time.Second)
	if st.Status != "up" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "store": h.driver})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": h.driver, "version": h.version})
}

func (h *HealthHandler) pingStore(ctx context.Context, timeout time.Duration) StoreStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	st := StoreStatus{Driver: h.driver, Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		st.Status = "down"
		st.Error = err.Error()
	}
	return st
}
