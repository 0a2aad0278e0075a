// Пакет errors — конструкторы стандартных ошибок API.
// JSON-ответы используют плоский формат {"error": "..."}, ошибки
// скачивания отдаются plain text (браузер показывает их напрямую).
package errors //nolint:revive // имя пакета повторяет контракт API, конфликт со stdlib осознанный

import (
	"encoding/json"
	"net/http"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error string `json:"error"`
}

// WriteError записывает JSON-ответ ошибки в формате {"error": "..."}.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}

// WriteErrorText записывает plain text ответ ошибки.
// Используется для ошибок скачивания.
func WriteErrorText(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(message))
}

// --- Конструкторы для типичных ошибок ---

// BadRequest — 400 некорректная загрузка или заблокированное расширение.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// PayloadTooLarge — 413 файл превышает лимит.
func PayloadTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, message)
}

// NotFound — 404 код никогда не выдавался или уже вытеснен.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// Gone — 410 запись существовала, но срок истёк.
func Gone(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusGone, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
