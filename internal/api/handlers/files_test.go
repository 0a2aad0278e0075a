package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gofiledrop/internal/domain/model"
	"github.com/bigkaa/gofiledrop/internal/service"
	"github.com/bigkaa/gofiledrop/internal/storage/filestore"
	"github.com/bigkaa/gofiledrop/internal/storage/registry"
)

var testBlockedExtensions = []string{".exe", ".bat", ".js", ".sh", ".cmd", ".msi", ".com", ".scr", ".pif"}

type testEnv struct {
	router *chi.Mux
	store  *filestore.FileStore
	reg    *registry.Registry
}

// newTestEnv собирает полный стек до HTTP-роутера поверх временной
// директории. Все файлы живут по окну 5 минут.
func newTestEnv(t *testing.T, maxSize int64) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("неожиданная ошибка filestore.New: %v", err)
	}
	reg := registry.New(logger)

	validator := service.NewPolicyValidator(testBlockedExtensions, maxSize)
	retention := service.NewRetentionPolicy(5*time.Minute, 2*time.Minute, maxSize+1)
	codes := service.NewRandomCodeGenerator(3)

	uploadSvc := service.NewUploadService(validator, retention, codes, store, reg, logger)
	downloadSvc := service.NewDownloadService(store, reg, "elhoyo", logger)

	api := NewAPIHandler(
		NewFilesHandler(uploadSvc, downloadSvc),
		NewHealthHandler(store.DataDir(), reg),
		logger,
	)

	router := chi.NewRouter()
	router.Post("/upload", api.UploadFile)
	router.Get("/file/{code}", api.GetFileMetadata)
	router.Get("/download/{code}", api.DownloadFile)
	router.Get("/health/live", api.HealthLive)
	router.Get("/health/ready", api.HealthReady)

	return &testEnv{router: router, store: store, reg: reg}
}

// multipartBody собирает multipart-форму с одним файловым полем.
func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("ошибка создания поля формы: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("ошибка записи содержимого: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("ошибка закрытия формы: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

type uploadResp struct {
	Code      string `json:"code"`
	ExpiresIn int64  `json:"expiresIn"`
}

// doUpload выполняет загрузку и декодирует ответ.
func (env *testEnv) doUpload(t *testing.T, filename string, content []byte) (*httptest.ResponseRecorder, *uploadResp) {
	t.Helper()

	body, contentType := multipartBody(t, "file", filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		return rr, nil
	}
	var resp uploadResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("ошибка декодирования ответа загрузки: %v (%s)", err, rr.Body.String())
	}
	return rr, &resp
}

func (env *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// errorField достаёт поле error из JSON-ответа.
func errorField(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("ошибка декодирования тела ошибки: %v (%s)", err, rr.Body.String())
	}
	return body["error"]
}

func TestUploadDownloadFlow(t *testing.T) {
	env := newTestEnv(t, 1024)
	content := []byte("hello, relay")

	// Загрузка
	rr, resp := env.doUpload(t, "hello.txt", content)
	if rr.Code != http.StatusOK {
		t.Fatalf("статус загрузки: хотели 200, получили %d (%s)", rr.Code, rr.Body.String())
	}
	if len(resp.Code) != 6 {
		t.Errorf("длина кода: хотели 6, получили %d (%q)", len(resp.Code), resp.Code)
	}
	if resp.ExpiresIn != 300 {
		t.Errorf("expiresIn: хотели 300, получили %d", resp.ExpiresIn)
	}

	// Метаданные
	rr = env.get("/file/" + resp.Code)
	if rr.Code != http.StatusOK {
		t.Fatalf("статус метаданных: хотели 200, получили %d (%s)", rr.Code, rr.Body.String())
	}
	var meta struct {
		Filename  string `json:"filename"`
		Size      int64  `json:"size"`
		MimeType  string `json:"mimetype"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &meta); err != nil {
		t.Fatalf("ошибка декодирования метаданных: %v", err)
	}
	if meta.Filename != "hello.txt" {
		t.Errorf("filename: хотели hello.txt, получили %s", meta.Filename)
	}
	if meta.Size != int64(len(content)) {
		t.Errorf("size: хотели %d, получили %d", len(content), meta.Size)
	}
	// CreateFormFile проставляет части Content-Type application/octet-stream
	if meta.MimeType != "application/octet-stream" {
		t.Errorf("mimetype: хотели application/octet-stream, получили %s", meta.MimeType)
	}
	if meta.ExpiresIn <= 0 || meta.ExpiresIn > 300 {
		t.Errorf("expiresIn вне диапазона (0, 300]: %d", meta.ExpiresIn)
	}

	// Скачивание
	rr = env.get("/download/" + resp.Code)
	if rr.Code != http.StatusOK {
		t.Fatalf("статус скачивания: хотели 200, получили %d (%s)", rr.Code, rr.Body.String())
	}
	if !bytes.Equal(rr.Body.Bytes(), content) {
		t.Errorf("тело скачивания: хотели %q, получили %q", content, rr.Body.Bytes())
	}
	if got := rr.Header().Get("Content-Length"); got != strconv.Itoa(len(content)) {
		t.Errorf("Content-Length: хотели %d, получили %s", len(content), got)
	}
	wantDisp := `attachment; filename="hello_elhoyo.txt"`
	if got := rr.Header().Get("Content-Disposition"); got != wantDisp {
		t.Errorf("Content-Disposition: хотели %q, получили %q", wantDisp, got)
	}

	// Повторное скачивание отдаёт те же байты, код не расходуется
	rr = env.get("/download/" + resp.Code)
	if rr.Code != http.StatusOK || !bytes.Equal(rr.Body.Bytes(), content) {
		t.Error("повторное скачивание вернуло другой ответ")
	}
}

func TestUpload_MimeTypeFromExtension(t *testing.T) {
	env := newTestEnv(t, 1024)

	// Часть без Content-Type: тип определяется по расширению имени
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="notes.txt"`)
	fw, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("ошибка создания части: %v", err)
	}
	if _, err := fw.Write([]byte("plain text")); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("статус загрузки: хотели 200, получили %d (%s)", rr.Code, rr.Body.String())
	}
	var resp uploadResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}

	rec := env.reg.Get(resp.Code)
	if rec == nil {
		t.Fatal("запись не попала в реестр")
	}
	if rec.MimeType != "text/plain; charset=utf-8" {
		t.Errorf("MimeType: хотели text/plain; charset=utf-8, получили %s", rec.MimeType)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	env := newTestEnv(t, 1024)

	// Форма есть, но поле называется не file
	body, contentType := multipartBody(t, "document", "a.txt", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("статус: хотели 400, получили %d", rr.Code)
	}
	if msg := errorField(t, rr); msg == "" {
		t.Error("тело ошибки не содержит поле error")
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	env := newTestEnv(t, 1024)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("raw bytes"))
	req.Header.Set("Content-Type", "application/octet-stream")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("статус: хотели 400, получили %d", rr.Code)
	}
}

func TestUpload_BlockedExtension(t *testing.T) {
	env := newTestEnv(t, 1024)

	rr, _ := env.doUpload(t, "virus.exe", []byte("MZ"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("статус: хотели 400, получили %d (%s)", rr.Code, rr.Body.String())
	}
	if msg := errorField(t, rr); msg == "" {
		t.Error("тело ошибки не содержит поле error")
	}
	if env.reg.Len() != 0 {
		t.Error("отклонённая загрузка попала в реестр")
	}
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t, 10)

	rr, _ := env.doUpload(t, "big.bin", bytes.Repeat([]byte("x"), 11))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("статус: хотели 413, получили %d (%s)", rr.Code, rr.Body.String())
	}
}

func TestUpload_ExactLimit(t *testing.T) {
	env := newTestEnv(t, 10)

	rr, resp := env.doUpload(t, "full.bin", bytes.Repeat([]byte("x"), 10))
	if rr.Code != http.StatusOK {
		t.Fatalf("статус загрузки ровно в лимит: хотели 200, получили %d (%s)", rr.Code, rr.Body.String())
	}
	if env.reg.Get(resp.Code) == nil {
		t.Error("запись файла ровно в лимит не зарегистрирована")
	}
}

func TestMetadata_UnknownCode(t *testing.T) {
	env := newTestEnv(t, 1024)

	rr := env.get("/file/ffffff")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("статус: хотели 404, получили %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type: хотели application/json, получили %s", got)
	}
	if msg := errorField(t, rr); msg == "" {
		t.Error("тело ошибки не содержит поле error")
	}
}

func TestDownload_UnknownCode(t *testing.T) {
	env := newTestEnv(t, 1024)

	// Ошибки скачивания — plain text, не JSON
	rr := env.get("/download/ffffff")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("статус: хотели 404, получили %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type: хотели text/plain; charset=utf-8, получили %s", got)
	}
	if rr.Body.Len() == 0 {
		t.Error("тело ошибки пусто")
	}
}

// seedExpired кладёт истёкшую запись напрямую в реестр и файл на диск.
func (env *testEnv) seedExpired(t *testing.T, code string) {
	t.Helper()

	saved, err := env.store.Save(bytes.NewReader([]byte("stale")), 1024)
	if err != nil {
		t.Fatalf("неожиданная ошибка Save: %v", err)
	}
	now := time.Now().UTC()
	rec := &model.FileRecord{
		Code:         code,
		OriginalName: "stale.txt",
		StoragePath:  saved.StoragePath,
		SizeBytes:    saved.Size,
		MimeType:     "text/plain",
		CreatedAt:    now.Add(-10 * time.Minute),
		ExpiresAt:    now.Add(-5 * time.Minute),
	}
	if err := env.reg.Put(rec); err != nil {
		t.Fatalf("неожиданная ошибка Put: %v", err)
	}
}

func TestMetadata_Expired(t *testing.T) {
	env := newTestEnv(t, 1024)
	env.seedExpired(t, "abc123")

	// Первое обращение: 410 и ленивое вытеснение
	rr := env.get("/file/abc123")
	if rr.Code != http.StatusGone {
		t.Fatalf("статус истёкшего кода: хотели 410, получили %d", rr.Code)
	}
	if msg := errorField(t, rr); msg == "" {
		t.Error("тело ошибки не содержит поле error")
	}

	// Повторное обращение: запись уже вытеснена
	rr = env.get("/file/abc123")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("повторный статус: хотели 404, получили %d", rr.Code)
	}
}

func TestDownload_Expired(t *testing.T) {
	env := newTestEnv(t, 1024)
	env.seedExpired(t, "abc123")

	rr := env.get("/download/abc123")
	if rr.Code != http.StatusGone {
		t.Fatalf("статус истёкшего кода: хотели 410, получили %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type: хотели text/plain; charset=utf-8, получили %s", got)
	}

	rr = env.get("/download/abc123")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("повторный статус: хотели 404, получили %d", rr.Code)
	}
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t, 1024)

	rr := env.get("/health/live")
	if rr.Code != http.StatusOK {
		t.Fatalf("статус: хотели 200, получили %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("ошибка декодирования тела: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status: хотели ok, получили %v", body["status"])
	}
	if body["service"] != "filedrop" {
		t.Errorf("service: хотели filedrop, получили %v", body["service"])
	}
}

func TestHealthReady(t *testing.T) {
	env := newTestEnv(t, 1024)

	rr := env.get("/health/ready")
	if rr.Code != http.StatusOK {
		t.Fatalf("статус: хотели 200, получили %d (%s)", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("ошибка декодирования тела: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status: хотели ok, получили %v", body["status"])
	}
}
