// download.go — сервис выдачи файлов: метаданные и скачивание.
//
// Оба пути (Describe и Serve) проходят одну проверку существования
// и срока. Обнаруженная на чтении истёкшая запись лениво вытесняется:
// атомарный Remove из реестра + удаление файла, после чего клиент
// получает Gone. Повторный запрос того же кода вернёт NotFound.
package service

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/gofiledrop/internal/api/middleware"
	"github.com/bigkaa/gofiledrop/internal/domain/model"
	"github.com/bigkaa/gofiledrop/internal/storage/filestore"
	"github.com/bigkaa/gofiledrop/internal/storage/registry"
)

// FileInfo — метаданные файла для ответа клиенту.
type FileInfo struct {
	// Filename — оригинальное имя файла
	Filename string `json:"filename"`
	// Size — размер файла в байтах
	Size int64 `json:"size"`
	// MimeType — MIME-тип файла
	MimeType string `json:"mimetype"`
	// ExpiresIn — целых секунд до истечения
	ExpiresIn int64 `json:"expiresIn"`
}

// DownloadService — сервис выдачи файлов по коду.
type DownloadService struct {
	store *filestore.FileStore
	reg   *registry.Registry
	// brandSuffix — суффикс к имени файла при скачивании
	brandSuffix string
	logger      *slog.Logger
}

// NewDownloadService создаёт сервис выдачи файлов.
func NewDownloadService(
	store *filestore.FileStore,
	reg *registry.Registry,
	brandSuffix string,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		store:       store,
		reg:         reg,
		brandSuffix: brandSuffix,
		logger:      logger.With(slog.String("component", "download_service")),
	}
}

// Describe возвращает метаданные живой записи по коду.
// Не расходует код: запись остаётся в реестре.
func (s *DownloadService) Describe(code string) (*FileInfo, *RelayError) {
	now := time.Now().UTC()

	rec, rerr := s.resolve(code, now)
	if rerr != nil {
		return nil, rerr
	}

	middleware.OperationsTotal.WithLabelValues("describe", "success").Inc()

	return &FileInfo{
		Filename:  rec.OriginalName,
		Size:      rec.SizeBytes,
		MimeType:  rec.MimeType,
		ExpiresIn: rec.SecondsRemaining(now),
	}, nil
}

// Serve отдаёт содержимое файла клиенту.
// Content-Length берётся из SizeBytes записи, имя в Content-Disposition
// получает брендовый суффикс перед расширением. Скачивание код
// не расходует: живой код отдаёт одни и те же байты сколько угодно раз.
func (s *DownloadService) Serve(w http.ResponseWriter, code string) *RelayError {
	now := time.Now().UTC()

	rec, rerr := s.resolve(code, now)
	if rerr != nil {
		return rerr
	}

	file, err := s.store.Open(rec.StoragePath)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("download", "error").Inc()
		s.logger.Error("Файл записи недоступен на диске",
			slog.String("code", code),
			slog.String("storage_path", rec.StoragePath),
			slog.String("error", err.Error()),
		)
		return &RelayError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Ошибка чтения файла",
		}
	}
	defer file.Close()

	w.Header().Set("Content-Type", rec.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"%s\"", brandedFilename(rec.OriginalName, s.brandSuffix)))

	if _, err := io.Copy(w, file); err != nil {
		// Заголовки уже отправлены, статус менять поздно — только лог
		s.logger.Warn("Обрыв отдачи файла",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("download", "error").Inc()
		return nil
	}

	middleware.OperationsTotal.WithLabelValues("download", "success").Inc()

	s.logger.Debug("Файл скачан",
		slog.String("code", code),
		slog.String("filename", rec.OriginalName),
		slog.Int64("size", rec.SizeBytes),
	)

	return nil
}

// resolve ищет живую запись по коду.
// Незнакомый код → 404. Истёкшая запись → ленивое вытеснение и 410:
// клиенту различимы "никогда не существовал" и "существовал, но истёк".
func (s *DownloadService) resolve(code string, now time.Time) (*model.FileRecord, *RelayError) {
	rec := s.reg.Get(code)
	if rec == nil {
		return nil, &RelayError{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("Код %s не найден", code),
		}
	}

	if rec.IsExpired(now) {
		s.evict(code)
		return nil, &RelayError{
			StatusCode: http.StatusGone,
			Message:    fmt.Sprintf("Срок хранения файла по коду %s истёк", code),
		}
	}

	return rec, nil
}

// evict лениво вытесняет истёкшую запись. Remove атомарен: файл
// удаляет только тот вызывающий, который реально извлёк запись,
// конкурирующий sweeper или второй запрос получит nil и ничего не тронет.
func (s *DownloadService) evict(code string) {
	removed := s.reg.Remove(code)
	if removed == nil {
		return
	}

	if err := s.store.Delete(removed.StoragePath); err != nil {
		s.logger.Error("Ошибка удаления файла при ленивом вытеснении",
			slog.String("code", code),
			slog.String("storage_path", removed.StoragePath),
			slog.String("error", err.Error()),
		)
	}

	middleware.EvictionsTotal.WithLabelValues("lazy").Inc()
	middleware.FilesLive.Dec()

	s.logger.Info("Истёкшая запись вытеснена по обращению",
		slog.String("code", code),
		slog.String("filename", removed.OriginalName),
	)
}

// brandedFilename вставляет брендовый суффикс перед расширением.
// report.pdf → report_elhoyo.pdf. Косметика для Content-Disposition,
// хранимые байты не меняются.
func brandedFilename(name, suffix string) string {
	if suffix == "" {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return base + "_" + suffix + ext
}
