package orchestrator

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handlers provides HTTP handlers for the job orchestration engine.
type Handlers struct {
	manager *Manager
}

// NewHandlers creates new HTTP handlers for the orchestrator.
func NewHandlers(manager *Manager) *Handlers {
	return &Handlers{manager: manager}
}

// RegisterRoutes registers HTTP routes for job management
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/jobs", func(r chi.Router) {
		r.Post("/", h.SubmitJob)
		r.Get("/", h.ListJobs)
		r.Get("/types", h.ListJobTypes)
		r.Get("/{jobID}", h.GetJobStatus)
		r.Delete("/{jobID}", h.CancelJob)
	})
	r.Get("/api/queue/status", h.GetQueueStatus)
}

// submitRequest is the JSON body for job submission. Priority and
// max_retries are optional pointers so absent fields get API defaults.
type submitRequest struct {
	Type        string                 `json:"type"`
	Payload     map[string]interface{} `json:"payload"`
	Priority    *int                   `json:"priority"`
	ScheduledAt *time.Time             `json:"scheduled_at"`
	MaxRetries  *int                   `json:"max_retries"`
}

// SubmitJob handles POST /api/jobs
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.Type == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}

	req := SubmitRequest{
		Type:        JobType(body.Type),
		Payload:     body.Payload,
		Priority:    PriorityDefault,
		ScheduledAt: body.ScheduledAt,
		MaxRetries:  DefaultMaxRetries,
	}
	if body.Priority != nil {
		req.Priority = *body.Priority
	}
	if body.MaxRetries != nil {
		req.MaxRetries = *body.MaxRetries
	}

	jobID, err := h.manager.SubmitJob(req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"job_id": jobID,
	})
}

// GetJobStatus handles GET /api/jobs/{jobID}
func (h *Handlers) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	view, err := h.manager.GetJobStatus(jobID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// ListJobs handles GET /api/jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.manager.ListJobs())
}

// ListJobTypes handles GET /api/jobs/types
func (h *Handlers) ListJobTypes(w http.ResponseWriter, r *http.Request) {
	types := h.manager.Registry().Types()

	response := make([]map[string]string, 0, len(types))
	for _, t := range types {
		response = append(response, map[string]string{
			"type":        string(t),
			"description": GetJobDescription(t),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// CancelJob handles DELETE /api/jobs/{jobID}
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	err := h.manager.CancelJob(jobID)
	switch {
	case errors.Is(err, ErrJobNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrJobFinished):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"job_id": jobID,
		"status": string(StatusCancelled),
	})
}

// GetQueueStatus handles GET /api/queue/status
func (h *Handlers) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.manager.GetQueueStatus())
}
