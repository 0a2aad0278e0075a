// handler.go — основной обработчик API файлового релея.
// Объединяет файловые и health endpoints.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIHandler — основной обработчик API.
// Делегирует файловые запросы в FilesHandler, health — в HealthHandler.
type APIHandler struct {
	files  *FilesHandler
	health *HealthHandler
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	files *FilesHandler,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		files:  files,
		health: health,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// --- Файловые endpoints ---

// UploadFile — POST /upload.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	h.files.UploadFile(w, r)
}

// GetFileMetadata — GET /file/{code}.
func (h *APIHandler) GetFileMetadata(w http.ResponseWriter, r *http.Request) {
	h.files.GetFileMetadata(w, r)
}

// DownloadFile — GET /download/{code}.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.files.DownloadFile(w, r)
}

// --- Health endpoints ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
