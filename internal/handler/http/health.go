package http

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger проверка готовности зависимости
type Pinger func() error

// HealthHandler обработчик проверок состояния сервиса
type HealthHandler struct {
	storagePing Pinger
	log         *zap.Logger
	started     time.Time
}

// NewHealthHandler создает новый обработчик health-check
func NewHealthHandler(storagePing Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		storagePing: storagePing,
		log:         log,
		started:     time.Now(),
	}
}

// HealthResponse структура ответа health-check
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Health проверка живости процесса
//
//	@Summary		Liveness probe
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready проверка готовности: сервис готов, когда хранилище отвечает
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.storagePing != nil {
		if err := h.storagePing(); err != nil {
			h.log.Warn("readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": "storage is not reachable"})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
