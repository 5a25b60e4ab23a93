package ingest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/lakehouse-shop/internal/infrastructure/kafka"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handlers struct {
	service *Service
	logger  *zap.Logger
}

func NewHandlers(service *Service, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{service: service, logger: logger}
}

// Routes mounts the ingestion endpoints on r
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/settings", h.GetSettings)
	r.Post("/update_settings", h.UpdateSettings)
	r.Post("/send_event", h.SendEvent)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Settings())
}

func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	result, err := h.service.ApplySettings(r.Context(), update)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidSettings) {
			status = http.StatusBadRequest
		}
		respondJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":                 true,
		"message":                 "Settings updated successfully",
		"kafka_status":            result.KafkaStatus,
		"kafka_bootstrap_servers": result.Settings.BootstrapServers,
		"kafka_topic":             result.Settings.Topic,
	})
}

func (h *Handlers) SendEvent(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	receipt, err := h.service.Send(r.Context(), env)
	if err != nil {
		h.respondSendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

func (h *Handlers) respondSendError(w http.ResponseWriter, err error) {
	h.logger.Error("error sending event to Kafka", zap.Error(err))

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":      cmdErr.Error(),
			"returncode": cmdErr.ExitCode,
			"stdout":     cmdErr.Stdout,
			"stderr":     cmdErr.Stderr,
		})
		return
	}

	if errors.Is(err, ErrInvalidEvent) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	body := map[string]any{
		"error":             err.Error(),
		"bootstrap_servers": h.service.Settings().BootstrapServers,
	}
	var probeErr *kafka.ProbeError
	if errors.As(err, &probeErr) {
		body["details"] = "Bootstrap servers: " + h.service.Settings().BootstrapServers
	}
	respondJSON(w, http.StatusInternalServerError, body)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
