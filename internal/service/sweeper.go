// sweeper.go — фоновая очистка истёкших записей.
//
// Каждый тик: снимок текущего времени, отбор истёкших кодов из
// реестра, атомарный Remove каждого и удаление файла с диска.
// Блокировка реестра никогда не держится через дисковый I/O:
// список жертв собирается под read lock, удаление файлов идёт после.
//
// Запускается как горутина с периодическим тикером (FD_SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gofiledrop/internal/api/middleware"
	"github.com/bigkaa/gofiledrop/internal/storage/filestore"
	"github.com/bigkaa/gofiledrop/internal/storage/registry"
)

// Prometheus метрики очистки
var (
	// sweepRunsTotal — количество запусков очистки.
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_sweep_runs_total",
		Help: "Общее количество запусков фоновой очистки",
	})

	// sweepFilesDeletedTotal — количество удалённых файлов.
	sweepFilesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_sweep_files_deleted_total",
		Help: "Общее количество файлов, удалённых фоновой очисткой",
	})

	// sweepDurationSeconds — длительность выполнения очистки.
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fd_sweep_duration_seconds",
		Help:    "Длительность выполнения фоновой очистки в секундах",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// SweepResult — результат одного запуска очистки.
type SweepResult struct {
	// DeletedCount — количество вытесненных записей
	DeletedCount int
	// Errors — количество ошибок удаления файлов
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// Sweeper — фоновый процесс вытеснения истёкших записей.
type Sweeper struct {
	store    *filestore.FileStore
	reg      *registry.Registry
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper создаёт фоновый процесс очистки.
func NewSweeper(
	store *filestore.FileStore,
	reg *registry.Registry,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		store:    store,
		reg:      reg,
		interval: interval,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

// Start запускает фоновую горутину с периодическим тикером.
// Вызывается один раз при старте приложения.
func (sw *Sweeper) Start(ctx context.Context) {
	swCtx, cancel := context.WithCancel(ctx)
	sw.cancel = cancel
	sw.done = make(chan struct{})

	go sw.run(swCtx)

	sw.logger.Info("Фоновая очистка запущена",
		slog.String("interval", sw.interval.String()),
	)
}

// Stop останавливает фоновый процесс и дожидается завершения горутины.
func (sw *Sweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
		<-sw.done
	}
	sw.logger.Info("Фоновая очистка остановлена")
}

// run — основной цикл фоновой горутины.
func (sw *Sweeper) run(ctx context.Context) {
	defer close(sw.done)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.RunOnce()
		}
	}
}

// RunOnce выполняет один цикл очистки синхронно.
// Потокобезопасен; пустой реестр обходится без единого обращения к диску.
func (sw *Sweeper) RunOnce() *SweepResult {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	now := time.Now().UTC()

	// Фаза 1: снимок истёкших кодов, только память
	expired := sw.reg.ScanExpired(now)

	// Фаза 2: атомарное извлечение и удаление файлов, без блокировки
	// реестра на время I/O. Remove == nil означает, что запись уже
	// вытеснена лениво конкурирующим запросом — файл трогать нельзя.
	for _, code := range expired {
		removed := sw.reg.Remove(code)
		if removed == nil {
			continue
		}

		if err := sw.store.Delete(removed.StoragePath); err != nil {
			// Логируем и продолжаем: недоудалённый файл не фатален
			sw.logger.Error("Ошибка удаления файла",
				slog.String("code", code),
				slog.String("storage_path", removed.StoragePath),
				slog.String("error", err.Error()),
			)
			result.Errors++
		}

		middleware.EvictionsTotal.WithLabelValues("sweep").Inc()
		middleware.FilesLive.Dec()
		result.DeletedCount++

		sw.logger.Debug("Истёкшая запись вытеснена очисткой",
			slog.String("code", code),
			slog.String("filename", removed.OriginalName),
		)
	}

	result.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepFilesDeletedTotal.Add(float64(result.DeletedCount))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	if result.DeletedCount > 0 || result.Errors > 0 {
		sw.logger.Info("Очистка завершена",
			slog.Int("deleted", result.DeletedCount),
			slog.Int("errors", result.Errors),
			slog.Duration("duration", result.Duration),
		)
	}

	return result
}

// PurgeAll вытесняет все записи независимо от срока и удаляет их файлы.
// Используется при остановке процесса с FD_PURGE_ON_SHUTDOWN.
func (sw *Sweeper) PurgeAll() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	purged := 0
	for _, code := range sw.reg.Codes() {
		removed := sw.reg.Remove(code)
		if removed == nil {
			continue
		}
		if err := sw.store.Delete(removed.StoragePath); err != nil {
			sw.logger.Error("Ошибка удаления файла при полной очистке",
				slog.String("code", code),
				slog.String("error", err.Error()),
			)
		}
		middleware.FilesLive.Dec()
		purged++
	}

	if purged > 0 {
		sw.logger.Info("Хранилище очищено при остановке", slog.Int("purged", purged))
	}
	return purged
}
