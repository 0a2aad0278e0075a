// policy.go — политика приёма загрузок и таблица окон хранения.
//
// Валидатор отклоняет файлы по расширению из чёрного списка и по
// превышению лимита размера. Фильтр по расширению обходится
// переименованием файла — это принятое ограничение, а не граница
// безопасности; содержимое файлов не анализируется.
package service

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// RelayError — ошибка сервисного слоя с HTTP-кодом.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// PolicyValidator — проверка загрузки на соответствие политике.
type PolicyValidator struct {
	// blocked — запрещённые расширения (с точкой, нижний регистр)
	blocked map[string]bool
	// maxFileSize — лимит размера файла в байтах
	maxFileSize int64
}

// NewPolicyValidator создаёт валидатор с указанным чёрным списком
// расширений и лимитом размера.
func NewPolicyValidator(blockedExtensions []string, maxFileSize int64) *PolicyValidator {
	blocked := make(map[string]bool, len(blockedExtensions))
	for _, ext := range blockedExtensions {
		blocked[strings.ToLower(ext)] = true
	}
	return &PolicyValidator{
		blocked:     blocked,
		maxFileSize: maxFileSize,
	}
}

// Validate проверяет имя файла и размер. Размер может быть заявленным
// (до записи) или фактическим (после записи) — проверка одна и та же.
// Возвращает nil, если загрузка допустима.
func (v *PolicyValidator) Validate(filename string, size int64) *RelayError {
	if err := v.ValidateExtension(filename); err != nil {
		return err
	}
	return v.ValidateSize(size)
}

// ValidateExtension проверяет расширение файла по чёрному списку.
// Расширение — текст после последней точки, без учёта регистра.
func (v *PolicyValidator) ValidateExtension(filename string) *RelayError {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && v.blocked[ext] {
		return &RelayError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("Файлы с расширением %s запрещены", ext),
		}
	}
	return nil
}

// ValidateSize проверяет размер файла по лимиту.
// Файл ровно в лимит допустим, на байт больше — нет.
func (v *PolicyValidator) ValidateSize(size int64) *RelayError {
	if size > v.maxFileSize {
		return &RelayError{
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", size, v.maxFileSize),
		}
	}
	return nil
}

// MaxFileSize возвращает действующий лимит размера файла.
func (v *PolicyValidator) MaxFileSize() int64 {
	return v.maxFileSize
}

// RetentionPolicy — таблица окон хранения по размеру файла.
// Файлы от threshold байт и выше получают окно large, остальные — окно
// default. Границы и длительности — конфигурация, не логика.
type RetentionPolicy struct {
	// defaultWindow — окно для файлов меньше порога
	defaultWindow time.Duration
	// largeWindow — окно для файлов от порога и выше
	largeWindow time.Duration
	// largeThreshold — порог размера в байтах
	largeThreshold int64
}

// NewRetentionPolicy создаёт таблицу окон хранения.
func NewRetentionPolicy(defaultWindow, largeWindow time.Duration, largeThreshold int64) *RetentionPolicy {
	return &RetentionPolicy{
		defaultWindow:  defaultWindow,
		largeWindow:    largeWindow,
		largeThreshold: largeThreshold,
	}
}

// WindowFor возвращает окно хранения для файла указанного размера.
func (p *RetentionPolicy) WindowFor(sizeBytes int64) time.Duration {
	if sizeBytes >= p.largeThreshold {
		return p.largeWindow
	}
	return p.defaultWindow
}
