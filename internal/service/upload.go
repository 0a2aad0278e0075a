// Пакет service — бизнес-логика файлового релея.
// upload.go — сервис приёма загрузок.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bigkaa/gofiledrop/internal/api/middleware"
	"github.com/bigkaa/gofiledrop/internal/domain/model"
	"github.com/bigkaa/gofiledrop/internal/storage/filestore"
	"github.com/bigkaa/gofiledrop/internal/storage/registry"
)

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// OriginalFilename — оригинальное имя файла
	OriginalFilename string
	// ContentType — MIME-тип из multipart-заголовка (может быть пуст)
	ContentType string
	// DeclaredSize — размер из multipart part; только для ранней
	// отбраковки, фактический размер считается при записи
	DeclaredSize int64
}

// UploadResult — результат загрузки файла.
type UploadResult struct {
	// Code — выданный код получения
	Code string
	// ExpiresIn — целых секунд до истечения
	ExpiresIn int64
}

// UploadService — сервис приёма загрузок.
type UploadService struct {
	validator *PolicyValidator
	retention *RetentionPolicy
	codes     CodeGenerator
	store     *filestore.FileStore
	reg       *registry.Registry
	logger    *slog.Logger
}

// NewUploadService создаёт сервис приёма загрузок.
func NewUploadService(
	validator *PolicyValidator,
	retention *RetentionPolicy,
	codes CodeGenerator,
	store *filestore.FileStore,
	reg *registry.Registry,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		validator: validator,
		retention: retention,
		codes:     codes,
		store:     store,
		reg:       reg,
		logger:    logger.With(slog.String("component", "upload_service")),
	}
}

// Upload принимает поток файла и регистрирует его в реестре.
//
// Поток:
//  1. Ранняя валидация: расширение + заявленный размер
//  2. Запись на диск с жёстким лимитом байт
//  3. Валидация фактического размера
//  4. Вычисление expiresAt по таблице окон хранения
//  5. Генерация кода, Put в реестр, повтор при конфликте
//
// Запись в реестр происходит строго после успешной записи на диск.
// Любая ошибка после записи удаляет файл — отклонённые байты
// на диске не остаются.
func (s *UploadService) Upload(params UploadParams) (*UploadResult, *RelayError) {
	// 1. Ранняя отбраковка, до единого байта на диске
	if err := s.validator.Validate(params.OriginalFilename, params.DeclaredSize); err != nil {
		middleware.OperationsTotal.WithLabelValues("upload", "rejected").Inc()
		return nil, err
	}

	// 2. Запись на диск. Лимит в filestore страхует от расхождения
	// заявленного и фактического размеров.
	saved, err := s.store.Save(params.Reader, s.validator.MaxFileSize())
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		if errors.Is(err, filestore.ErrTooLarge) {
			return nil, &RelayError{
				StatusCode: http.StatusRequestEntityTooLarge,
				Message:    fmt.Sprintf("Размер файла превышает максимум %d байт", s.validator.MaxFileSize()),
			}
		}
		s.logger.Error("Ошибка сохранения файла",
			slog.String("filename", params.OriginalFilename),
			slog.String("error", err.Error()),
		)
		return nil, &RelayError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Ошибка сохранения файла на диск",
		}
	}

	// 3. Контрольная проверка фактического размера
	if verr := s.validator.ValidateSize(saved.Size); verr != nil {
		_ = s.store.Delete(saved.StoragePath)
		middleware.OperationsTotal.WithLabelValues("upload", "rejected").Inc()
		return nil, verr
	}

	// 4. Окно хранения зависит от фактического размера
	now := time.Now().UTC()
	window := s.retention.WindowFor(saved.Size)

	rec := &model.FileRecord{
		OriginalName: params.OriginalFilename,
		StoragePath:  saved.StoragePath,
		SizeBytes:    saved.Size,
		MimeType:     detectContentType(params.ContentType, params.OriginalFilename),
		CreatedAt:    now,
		ExpiresAt:    now.Add(window),
	}

	// 5. Генерация кода с повтором при конфликте. Пространство кодов
	// велико относительно числа живых записей, поэтому повтор
	// не ограничен счётчиком.
	for {
		code, genErr := s.codes.Generate()
		if genErr != nil {
			_ = s.store.Delete(saved.StoragePath)
			middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
			s.logger.Error("Ошибка генерации кода", slog.String("error", genErr.Error()))
			return nil, &RelayError{
				StatusCode: http.StatusInternalServerError,
				Message:    "Ошибка генерации кода",
			}
		}

		rec.Code = code
		if putErr := s.reg.Put(rec); putErr != nil {
			if errors.Is(putErr, registry.ErrConflict) {
				middleware.CodeConflictsTotal.Inc()
				s.logger.Warn("Конфликт кода, повторная генерация",
					slog.String("code", code),
				)
				continue
			}
			_ = s.store.Delete(saved.StoragePath)
			middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
			return nil, &RelayError{
				StatusCode: http.StatusInternalServerError,
				Message:    "Ошибка регистрации файла",
			}
		}
		break
	}

	middleware.OperationsTotal.WithLabelValues("upload", "success").Inc()
	middleware.FilesLive.Inc()

	s.logger.Info("Файл загружен",
		slog.String("code", rec.Code),
		slog.String("filename", rec.OriginalName),
		slog.Int64("size", rec.SizeBytes),
		slog.String("mime_type", rec.MimeType),
		slog.Time("expires_at", rec.ExpiresAt),
	)

	return &UploadResult{
		Code:      rec.Code,
		ExpiresIn: rec.SecondsRemaining(now),
	}, nil
}

// detectContentType возвращает MIME-тип загрузки: значение из
// multipart-заголовка (без параметров), иначе тип по расширению,
// иначе application/octet-stream.
func detectContentType(contentType, filename string) string {
	if contentType != "" {
		if idx := strings.Index(contentType, ";"); idx != -1 {
			contentType = strings.TrimSpace(contentType[:idx])
		}
		return contentType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
