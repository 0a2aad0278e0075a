// Пакет model — доменные модели файлового релея.
// FileRecord — запись об одном загруженном файле, живёт только
// в памяти реестра (сервис не переживает рестарт процесса).
package model

import (
	"time"
)

// FileRecord — метаданные одного загруженного файла.
// Ключом в реестре служит Code. StoragePath принадлежит
// исключительно этой записи: никакая другая запись на него
// не ссылается, поэтому удаление записи влечёт удаление файла.
type FileRecord struct {
	// Code — короткий публичный идентификатор для скачивания
	Code string

	// OriginalName — имя файла, присланное клиентом.
	// Используется только для Content-Disposition, никогда — для пути на диске.
	OriginalName string

	// StoragePath — имя файла на диске (относительно FD_DATA_DIR).
	// Генерируется сервером, от клиентского имени не зависит.
	StoragePath string

	// SizeBytes — фактический размер записанных байт
	// (считается при записи, заголовкам клиента не доверяем)
	SizeBytes int64

	// MimeType — MIME-тип; из multipart-заголовка либо по расширению
	MimeType string

	// CreatedAt — момент регистрации (UTC)
	CreatedAt time.Time

	// ExpiresAt — абсолютный дедлайн: CreatedAt + окно хранения.
	// Вычисляется один раз при создании и никогда не продлевается.
	ExpiresAt time.Time
}

// IsExpired проверяет, истёк ли срок жизни записи.
// Граница включительно: now == ExpiresAt считается истёкшим.
func (r *FileRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// SecondsRemaining возвращает целое число секунд до истечения.
// Для живой записи результат всегда >= 1: остаток меньше секунды
// округляется вверх до единицы, чтобы клиент не получил "0 секунд"
// на ещё действующий код.
func (r *FileRecord) SecondsRemaining(now time.Time) int64 {
	remaining := int64(r.ExpiresAt.Sub(now) / time.Second)
	if remaining < 1 {
		remaining = 1
	}
	return remaining
}
