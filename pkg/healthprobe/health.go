package healthprobe

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker provides liveness and readiness checks. The service becomes
// ready after its first successful sync cycle and stays ready afterwards;
// later failures are reported but do not flip readiness.
type HealthChecker struct {
	startTime time.Time

	mu        sync.RWMutex
	ready     bool
	lastSync  time.Time
	lastError string
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
	}
}

// SetReady overrides readiness.
func (h *HealthChecker) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady reports current readiness.
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// RecordSync records the outcome of a sync cycle.
func (h *HealthChecker) RecordSync(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.lastError = err.Error()
		return
	}
	h.ready = true
	h.lastSync = time.Now()
	h.lastError = ""
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string     `json:"status"`
	Uptime    string     `json:"uptime"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		h.mu.RLock()
		ready, lastSync, lastError := h.ready, h.lastSync, h.lastError
		h.mu.RUnlock()

		if !ready {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:    "not_ready",
				Message:   "waiting for first successful sync",
				LastError: lastError,
			})
			return
		}

		resp := HealthResponse{
			Status:    "ready",
			Uptime:    time.Since(h.startTime).String(),
			LastError: lastError,
		}
		if !lastSync.IsZero() {
			resp.LastSync = &lastSync
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
