// Точка входа QC Module — сервис учёта контроля качества литейного цеха.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует клиент сервиса маршрутных карт, создаёт сервисный слой
// и API handlers, запускает мониторинг зависимостей (topologymetrics)
// и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/foundry-qc/qc-module/internal/api/handlers"
	"github.com/bigkaa/foundry-qc/qc-module/internal/cardclient"
	"github.com/bigkaa/foundry-qc/qc-module/internal/config"
	"github.com/bigkaa/foundry-qc/qc-module/internal/database"
	"github.com/bigkaa/foundry-qc/qc-module/internal/repository"
	"github.com/bigkaa/foundry-qc/qc-module/internal/server"
	"github.com/bigkaa/foundry-qc/qc-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("QC Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("timezone", cfg.Location.String()),
	)

	if os.Getenv("QC_DEPHEALTH_GROUP") == "" {
		logger.Warn("QC_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент сервиса маршрутных карт (опционально)
	var cardClient *cardclient.Client
	if cfg.CardServiceURL != "" {
		cardClient, err = cardclient.New(cfg.CardServiceURL, cfg.CardServiceCAPath, logger)
		if err != nil {
			logger.Error("Ошибка создания клиента сервиса карт", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Клиент сервиса маршрутных карт создан",
			slog.String("url", cfg.CardServiceURL),
		)
	} else {
		logger.Info("QC_CARD_SERVICE_URL не задан, поиск маршрутных карт отключён")
	}

	// 6. Repositories
	shiftRepo := repository.NewShiftRepository(pool)
	ctrlRepo := repository.NewControlRepository(pool)
	controllerRepo := repository.NewControllerRepository(pool)
	defectRepo := repository.NewDefectRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Services
	shiftSvc := service.NewShiftService(shiftRepo, controllerRepo, cfg, logger)
	controlSvc := service.NewControlService(ctrlRepo, shiftRepo, defectRepo, txRunner, cardClient, cfg, logger)
	metricsSvc := service.NewMetricsService(shiftRepo, ctrlRepo, logger)
	controllerSvc := service.NewControllerService(controllerRepo, logger)
	defectSvc := service.NewDefectService(defectRepo, logger)

	// 8. Автозакрытие просроченных смен при старте
	if cfg.AutoCloseShifts {
		if closed, closeErr := shiftSvc.AutoCloseStale(ctx); closeErr != nil {
			logger.Warn("Ошибка автозакрытия смен при старте",
				slog.String("error", closeErr.Error()),
			)
		} else if closed > 0 {
			logger.Info("Закрыты просроченные смены", slog.Int("closed", closed))
		}
	}

	// 9. Health handler
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker)

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		shiftSvc,
		controlSvc,
		metricsSvc,
		controllerSvc,
		defectSvc,
		logger,
	)

	// 11. topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"qc-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.CardServiceURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Graceful shutdown фоновых задач
	if dephealthErr == nil {
		dephealthSvc.Stop()
	}

	logger.Info("QC Module остановлен")
}
