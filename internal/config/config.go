// Пакет config — загрузка и валидация конфигурации файлового релея
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории хранения файлов
	DataDir string
	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Запрещённые расширения файлов (с точкой, в нижнем регистре)
	BlockedExtensions []string
	// Длина кода выдачи в байтах (hex-строка вдвое длиннее)
	CodeLength int
	// Окно хранения для файлов меньше порога
	RetentionWindow time.Duration
	// Окно хранения для файлов от порога и выше
	RetentionWindowLarge time.Duration
	// Порог размера, начиная с которого действует "большое" окно
	LargeFileThreshold int64
	// Интервал запуска фоновой очистки
	SweepInterval time.Duration
	// Суффикс, добавляемый к имени файла при скачивании
	BrandSuffix string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
	// Удалять ли все файлы хранилища при остановке процесса
	PurgeOnShutdown bool
}

// defaultBlockedExtensions — расширения исполняемых файлов и скриптов,
// запрещённые по умолчанию. Фильтр по расширению обходится простым
// переименованием — это осознанно слабый барьер, не граница безопасности.
const defaultBlockedExtensions = ".exe,.bat,.js,.sh,.cmd,.msi,.com,.scr,.pif"

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// FD_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("FD_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("FD_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("FD_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// FD_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("FD_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// FD_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 128 MiB)
	maxFileSize, err := getEnvInt64("FD_MAX_FILE_SIZE", 134217728)
	if err != nil {
		return nil, fmt.Errorf("FD_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("FD_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// FD_BLOCKED_EXTENSIONS — список запрещённых расширений через запятую
	cfg.BlockedExtensions = parseExtensions(getEnvDefault("FD_BLOCKED_EXTENSIONS", defaultBlockedExtensions))

	// FD_CODE_LENGTH — длина кода в байтах (по умолчанию 3 → 6 hex-символов).
	// Пространство в 16.7M кодов достаточно для малого числа одновременно
	// живых записей; для больших развёртываний значение поднимают.
	codeLength, err := getEnvInt("FD_CODE_LENGTH", 3)
	if err != nil {
		return nil, fmt.Errorf("FD_CODE_LENGTH: %w", err)
	}
	if codeLength < 1 || codeLength > 32 {
		return nil, fmt.Errorf("FD_CODE_LENGTH: значение %d вне допустимого диапазона 1-32", codeLength)
	}
	cfg.CodeLength = codeLength

	// FD_RETENTION_WINDOW — окно хранения (по умолчанию 5m)
	cfg.RetentionWindow, err = getEnvDuration("FD_RETENTION_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FD_RETENTION_WINDOW: %w", err)
	}

	// FD_RETENTION_WINDOW_LARGE — окно хранения больших файлов (по умолчанию 2m)
	cfg.RetentionWindowLarge, err = getEnvDuration("FD_RETENTION_WINDOW_LARGE", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FD_RETENTION_WINDOW_LARGE: %w", err)
	}

	// FD_LARGE_FILE_THRESHOLD — порог "большого" файла (по умолчанию 32 MiB)
	cfg.LargeFileThreshold, err = getEnvInt64("FD_LARGE_FILE_THRESHOLD", 33554432)
	if err != nil {
		return nil, fmt.Errorf("FD_LARGE_FILE_THRESHOLD: %w", err)
	}
	if cfg.LargeFileThreshold <= 0 {
		return nil, fmt.Errorf("FD_LARGE_FILE_THRESHOLD: значение должно быть положительным")
	}

	// FD_SWEEP_INTERVAL — интервал фоновой очистки (по умолчанию 1m)
	cfg.SweepInterval, err = getEnvDuration("FD_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FD_SWEEP_INTERVAL: %w", err)
	}

	// FD_BRAND_SUFFIX — суффикс к имени скачиваемого файла (по умолчанию "elhoyo")
	cfg.BrandSuffix = getEnvDefault("FD_BRAND_SUFFIX", "elhoyo")

	// FD_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FD_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FD_LOG_LEVEL: %w", err)
	}

	// FD_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FD_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FD_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// FD_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("FD_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FD_SHUTDOWN_TIMEOUT: %w", err)
	}

	// FD_PURGE_ON_SHUTDOWN — очистка хранилища при остановке (по умолчанию false)
	cfg.PurgeOnShutdown, err = getEnvBool("FD_PURGE_ON_SHUTDOWN", false)
	if err != nil {
		return nil, fmt.Errorf("FD_PURGE_ON_SHUTDOWN: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 5m, 1h)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// parseExtensions разбирает список расширений через запятую.
// Нормализует: нижний регистр, ведущая точка, пустые элементы отбрасываются.
func parseExtensions(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		ext := strings.ToLower(strings.TrimSpace(p))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		result = append(result, ext)
	}
	return result
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
