package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

const statsCacheTTL = 30 * time.Second

// studentCountCache holds the cached roster size with expiry
type studentCountCache struct {
	mu        sync.RWMutex
	count     int
	expiresAt time.Time
}

func (c *studentCountCache) get() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.expiresAt.IsZero() || time.Now().After(c.expiresAt) {
		return 0, false
	}
	return c.count, true
}

func (c *studentCountCache) set(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = count
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

// StatsHandler serves runtime statistics.
type StatsHandler struct {
	service *attendance.Service
	logger  *slog.Logger
	cache   studentCountCache
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(svc *attendance.Service, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{service: svc, logger: logger}
}

// StatsResponse is the response of GET /stats.
type StatsResponse struct {
	TotalStudents     int                                   `json:"total_students"`
	IndexedStudents   int                                   `json:"indexed_students"`
	IndexedSignatures int                                   `json:"indexed_signatures"`
	UptimeSeconds     float64                               `json:"uptime_seconds"`
	Operations        map[string]*metrics.OperationSnapshot `json:"operations"`
	Counters          map[string]int64                      `json:"counters"`
}

// Get handles GET /stats. The roster size is cached briefly; metrics are live.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	total, ok := h.cache.get()
	if !ok {
		n, err := h.service.CountStudents(r.Context())
		if err != nil {
			respondServiceError(w, h.logger, r, "Failed to fetch stats", err)
			return
		}
		h.cache.set(n)
		total = n
	}

	stats := h.service.Stats()
	respondJSON(w, http.StatusOK, StatsResponse{
		TotalStudents:     total,
		IndexedStudents:   stats.IndexedStudents,
		IndexedSignatures: stats.IndexedSignatures,
		UptimeSeconds:     stats.Metrics.UptimeSeconds,
		Operations:        stats.Metrics.Operations,
		Counters:          stats.Metrics.Counters,
	})
}
