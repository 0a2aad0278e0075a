// Пакет filestore — операции с физическими файлами на диске.
// Streaming-запись с жёстким лимитом байт, чтение и удаление.
// Имена файлов генерируются сервером и не зависят от клиентских.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge — поток превысил лимит байт при записи.
var ErrTooLarge = errors.New("превышен лимит размера файла")

// FileStore — управление физическими файлами на диске.
type FileStore struct {
	// dataDir — корневая директория хранения файлов (FD_DATA_DIR)
	dataDir string
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// StoragePath — относительный путь файла в dataDir
	StoragePath string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт новый FileStore. Создаёт директорию, если её нет.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// Save записывает данные из reader на диск, не принимая больше
// maxBytes байт. Если поток длиннее лимита, запись прерывается,
// временный файл удаляется и возвращается ErrTooLarge.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При любой ошибке (включая обрыв клиентского потока) temp файл
// удаляется — отклонённые и недописанные байты на диске не остаются.
func (fs *FileStore) Save(reader io.Reader, maxBytes int64) (*SaveResult, error) {
	storageName := generateStorageName()
	fullPath := filepath.Join(fs.dataDir, storageName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Читаем на один байт больше лимита: появление этого байта
	// означает превышение
	size, err := io.Copy(f, io.LimitReader(reader, maxBytes+1))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if size > maxBytes {
		f.Close()
		os.Remove(tmpPath)
		return nil, ErrTooLarge
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StoragePath: storageName,
		Size:        size,
	}, nil
}

// Open открывает файл для чтения.
// storagePath — относительный путь файла в dataDir.
// Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(storagePath string) (*os.File, error) {
	fullPath := filepath.Join(fs.dataDir, storagePath)

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s", storagePath)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storagePath, err)
	}

	return f, nil
}

// Delete удаляет файл с диска.
// Возвращает nil, если файл уже не существует: для эфемерного
// хранилища пропавший файл при очистке — не ошибка.
func (fs *FileStore) Delete(storagePath string) error {
	fullPath := filepath.Join(fs.dataDir, storagePath)

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", storagePath, err)
	}
	return nil
}

// Exists проверяет существование файла на диске.
func (fs *FileStore) Exists(storagePath string) bool {
	fullPath := filepath.Join(fs.dataDir, storagePath)
	_, err := os.Stat(fullPath)
	return err == nil
}

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// generateStorageName генерирует имя файла для хранения на диске.
// Формат: {timestamp}_{uuid} — от клиентского имени не зависит,
// поэтому path traversal и коллизии имён исключены.
// Пример: 20260901150405_a1b2c3d4
func generateStorageName() string {
	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8] // Короткий UUID для уникальности
	return fmt.Sprintf("%s_%s", ts, uid)
}
