// Точка входа filedrop — эфемерного файлового релея.
// Файл живёт от загрузки до истечения окна хранения, состояние
// процесса не переживает рестарт.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/gofiledrop/internal/api/handlers"
	"github.com/bigkaa/gofiledrop/internal/config"
	"github.com/bigkaa/gofiledrop/internal/server"
	"github.com/bigkaa/gofiledrop/internal/service"
	"github.com/bigkaa/gofiledrop/internal/storage/filestore"
	"github.com/bigkaa/gofiledrop/internal/storage/registry"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("filedrop запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.Int64("max_file_size", cfg.MaxFileSize),
		slog.String("sweep_interval", cfg.SweepInterval.String()),
	)

	// --- Инициализация компонентов ---

	// 1. Файловое хранилище
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации FileStore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. In-memory реестр кодов
	reg := registry.New(logger)

	// 3. Сервисы
	validator := service.NewPolicyValidator(cfg.BlockedExtensions, cfg.MaxFileSize)
	retention := service.NewRetentionPolicy(cfg.RetentionWindow, cfg.RetentionWindowLarge, cfg.LargeFileThreshold)
	codes := service.NewRandomCodeGenerator(cfg.CodeLength)

	uploadSvc := service.NewUploadService(validator, retention, codes, store, reg, logger)
	downloadSvc := service.NewDownloadService(store, reg, cfg.BrandSuffix, logger)

	// 4. Фоновая очистка истёкших записей
	sweeper := service.NewSweeper(store, reg, cfg.SweepInterval, logger)
	sweeper.Start(context.Background())

	// 5. Handlers
	filesHandler := handlers.NewFilesHandler(uploadSvc, downloadSvc)
	healthHandler := handlers.NewHealthHandler(cfg.DataDir, reg)
	apiHandler := handlers.NewAPIHandler(filesHandler, healthHandler, logger)

	// 6. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Остановка фоновых процессов ---
	sweeper.Stop()

	if cfg.PurgeOnShutdown {
		purged := sweeper.PurgeAll()
		logger.Info("Хранилище очищено", slog.Int("purged", purged))
	}

	logger.Info("filedrop остановлен")
}
