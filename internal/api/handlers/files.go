// files.go — HTTP handlers файловых операций релея.
// Upload, метаданные по коду, скачивание по коду.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/gofiledrop/internal/api/errors"
	"github.com/bigkaa/gofiledrop/internal/service"
)

// multipartMemoryLimit — объём части multipart-формы, удерживаемой
// в памяти; остальное net/http спулит во временные файлы.
const multipartMemoryLimit = 32 << 20 // 32 MiB

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	uploadSvc   *service.UploadService
	downloadSvc *service.DownloadService
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(
	uploadSvc *service.UploadService,
	downloadSvc *service.DownloadService,
) *FilesHandler {
	return &FilesHandler{
		uploadSvc:   uploadSvc,
		downloadSvc: downloadSvc,
	}
}

// uploadResponse — тело ответа на успешную загрузку.
type uploadResponse struct {
	Code      string `json:"code"`
	ExpiresIn int64  `json:"expiresIn"`
}

// UploadFile обрабатывает POST /upload.
// Multipart form с единственным полем file.
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		apierrors.BadRequest(w, "Некорректная multipart-форма")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.BadRequest(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	result, uploadErr := h.uploadSvc.Upload(service.UploadParams{
		Reader:           file,
		OriginalFilename: header.Filename,
		ContentType:      header.Header.Get("Content-Type"),
		DeclaredSize:     header.Size,
	})
	if uploadErr != nil {
		apierrors.WriteError(w, uploadErr.StatusCode, uploadErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Code:      result.Code,
		ExpiresIn: result.ExpiresIn,
	})
}

// GetFileMetadata обрабатывает GET /file/{code}.
// Возвращает метаданные живой записи, не расходуя код.
// 404 — код не выдавался или уже вытеснен, 410 — срок истёк
// (с ленивым вытеснением как побочным эффектом).
func (h *FilesHandler) GetFileMetadata(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	info, descErr := h.downloadSvc.Describe(code)
	if descErr != nil {
		apierrors.WriteError(w, descErr.StatusCode, descErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// DownloadFile обрабатывает GET /download/{code}.
// Отдаёт байты файла; ошибки — plain text, как их показывает браузер.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if serveErr := h.downloadSvc.Serve(w, code); serveErr != nil {
		apierrors.WriteErrorText(w, serveErr.StatusCode, serveErr.Message)
	}
}
