package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"cyber-sensei-progress/internal/app"
	"cyber-sensei-progress/internal/domain"
)

// RESTHandler serves read-only JSON views of a learner's progression.
type RESTHandler struct {
	service *app.ProgressService
	logger  *zap.Logger
}

func NewRESTHandler(service *app.ProgressService, logger *zap.Logger) *RESTHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RESTHandler{service: service, logger: logger}
}

// Register mounts the handler's routes on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /learners/{id}/progress", h.progress)
	mux.HandleFunc("GET /learners/{id}/achievements", h.achievements)
	mux.HandleFunc("GET /learners/{id}/challenges", h.challenges)
}

func (h *RESTHandler) progress(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	summary, err := h.service.Progress(r.Context(), learnerID)
	h.respond(w, summary, err)
}

func (h *RESTHandler) achievements(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	statuses, err := h.service.Achievements(r.Context(), learnerID)
	h.respond(w, statuses, err)
}

func (h *RESTHandler) challenges(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	statuses, err := h.service.Challenges(r.Context(), learnerID)
	h.respond(w, statuses, err)
}

func (h *RESTHandler) respond(w http.ResponseWriter, body any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrLearnerRequired) {
			status = http.StatusBadRequest
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(errorPayload{Message: err.Error()})
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("encode response failed", zap.Error(err))
	}
}
