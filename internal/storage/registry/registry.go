// Пакет registry — потокобезопасный in-memory реестр кодов выдачи.
//
// Единственный источник истины о том, какие файлы существуют
// и когда истекают. Не персистентный: при рестарте процесса
// содержимое теряется (сервис эфемерный по дизайну).
//
// Все мутации сериализуются глобальным RWMutex. Блокировка
// держится только на операциях с map, никогда — через дисковый I/O.
package registry

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/gofiledrop/internal/domain/model"
)

// ErrConflict — код уже занят другой записью.
// Put никогда молча не перезаписывает существующую запись.
var ErrConflict = errors.New("код уже занят")

// Registry — реестр code → FileRecord.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*model.FileRecord
	logger  *slog.Logger
}

// New создаёт пустой реестр.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		records: make(map[string]*model.FileRecord),
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// Put регистрирует запись под её кодом.
// Возвращает ErrConflict, если код уже занят.
func (reg *Registry) Put(rec *model.FileRecord) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.records[rec.Code]; ok {
		return ErrConflict
	}

	// Храним копию, чтобы внешние изменения не попадали в реестр
	copied := *rec
	reg.records[rec.Code] = &copied
	return nil
}

// Get возвращает копию записи по коду.
// Возвращает nil, если код не зарегистрирован.
func (reg *Registry) Get(code string) *model.FileRecord {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rec, ok := reg.records[code]
	if !ok {
		return nil
	}

	copied := *rec
	return &copied
}

// Remove атомарно удаляет запись по коду и возвращает её копию.
// Возвращает nil, если записи нет: из нескольких конкурирующих
// вызовов ровно один получает запись, остальные — nil. На этом
// держится гарантия "физическое удаление выполняет один вызывающий".
func (reg *Registry) Remove(code string) *model.FileRecord {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rec, ok := reg.records[code]
	if !ok {
		return nil
	}
	delete(reg.records, code)

	copied := *rec
	return &copied
}

// ScanExpired возвращает коды записей с истёкшим сроком на момент now.
// Держит только read lock на время прохода по map; физическое
// удаление вызывающий выполняет отдельно через Remove.
func (reg *Registry) ScanExpired(now time.Time) []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var expired []string
	for code, rec := range reg.records {
		if rec.IsExpired(now) {
			expired = append(expired, code)
		}
	}
	return expired
}

// Codes возвращает все зарегистрированные коды.
// Используется при полной очистке хранилища на shutdown.
func (reg *Registry) Codes() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	codes := make([]string, 0, len(reg.records))
	for code := range reg.records {
		codes = append(codes, code)
	}
	return codes
}

// Len возвращает текущее количество записей.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.records)
}
