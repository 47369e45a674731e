package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Pinger is any dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ready runs every named check in parallel and reports 503 if any is
// down. The credential store is always one of them.
func Ready(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		results := make(map[string]HealthCheckResult, len(checks))
		var mu sync.Mutex
		var wg sync.WaitGroup
		for name, p := range checks {
			wg.Add(1)
			go func(name string, p Pinger) {
				defer wg.Done()
				res := check(ctx, p)
				mu.Lock()
				results[name] = res
				mu.Unlock()
			}(name, p)
		}
		wg.Wait()

		status := http.StatusOK
		response := map[string]any{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    results,
			"status":    "ready",
		}
		for _, res := range results {
			if res.Status != "up" {
				status = http.StatusServiceUnavailable
				response["status"] = "not_ready"
				break
			}
		}

		writeJSON(w, status, response)
	}
}

func check(ctx context.Context, p Pinger) HealthCheckResult {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:    "down",
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		}
	}
	return HealthCheckResult{
		Status:    "up",
		LatencyMs: latency.Milliseconds(),
	}
}
