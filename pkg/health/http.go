package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// HealthResponse is the JSON body of the HTTP health endpoints.
type HealthResponse struct {
	Status  string                 `json:"status"` // "healthy" | "unhealthy"
	Checks  map[string]CheckStatus `json:"checks,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// CheckStatus represents the status of an individual check in the HTTP response.
type CheckStatus struct {
	Status  string `json:"status"` // "ok" | "error"
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// LivenessHandler answers 200 while the process is alive, 503 when it should be restarted.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return h.handler(h.CheckLiveness)
}

// ReadinessHandler answers 200 when the service can take deliveries, 503 otherwise.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return h.handler(h.CheckReadiness)
}

// HealthHandler answers with liveness and readiness checks combined.
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return h.handler(h.CheckAll)
}

func (h *HealthChecker) handler(run func(context.Context) (*HealthStatus, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := run(r.Context())
		h.writeHealthResponse(w, status, err)
	}
}

func (h *HealthChecker) writeHealthResponse(w http.ResponseWriter, status *HealthStatus, err error) {
	response := HealthResponse{
		Status: "healthy",
		Checks: make(map[string]CheckStatus, len(status.Checks)),
	}
	code := http.StatusOK
	if !status.Healthy {
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
		if err != nil {
			response.Message = err.Error()
		}
	}

	for _, result := range status.Checks {
		cs := CheckStatus{Status: "ok", Latency: result.Latency.String()}
		if !result.Healthy {
			cs.Status = "error"
			cs.Error = result.Error
		}
		response.Checks[result.Name] = cs
	}

	body, marshalErr := json.Marshal(response)
	if marshalErr != nil {
		h.logger.Error("Failed to encode health response", logger.ErrorField(marshalErr))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
