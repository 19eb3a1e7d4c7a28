// Пакет server — HTTP-сервер QC Module с graceful shutdown.
// Без TLS — HTTP внутри заводской сети, TLS termination на обратном прокси.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/foundry-qc/qc-module/internal/api/handlers"
	"github.com/bigkaa/foundry-qc/qc-module/internal/api/middleware"
	"github.com/bigkaa/foundry-qc/qc-module/internal/config"
)

// Server — HTTP-сервер QC Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics — публичные, проверяются Kubernetes напрямую
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		// Смены
		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", h.CreateShift)
			r.Get("/", h.ListShifts)
			r.Post("/validate", h.ValidateShift)
			r.Post("/auto-close", h.AutoCloseShifts)
			r.Get("/active", h.GetActiveShift)
			r.Get("/{id}", h.GetShift)
			r.Post("/{id}/close", h.CloseShift)
			r.Delete("/{id}", h.DeleteShift)
			r.Get("/{id}/records", h.ListShiftRecords)
			r.Get("/{id}/statistics", h.GetShiftStatistics)
		})

		// Записи контроля
		r.Route("/records", func(r chi.Router) {
			r.Post("/", h.CreateControlRecord)
			r.Post("/validate", h.ValidateControlRecord)
			r.Post("/calculate", h.CalculateMetrics)
			r.Get("/check-duplicate", h.CheckCardDuplicate)
		})

		// Поиск маршрутных карт
		r.Get("/cards/search", h.SearchCard)

		// Справочник контролёров
		r.Route("/controllers", func(r chi.Router) {
			r.Get("/", h.ListControllers)
			r.Post("/", h.CreateController)
			r.Delete("/{id}", h.DeactivateController)
			r.Post("/{id}/activate", h.ActivateController)
		})

		// Справочник дефектов
		r.Post("/defect-categories", h.CreateDefectCategory)
		r.Route("/defect-types", func(r chi.Router) {
			r.Get("/", h.ListDefectTypes)
			r.Post("/", h.CreateDefectType)
			r.Patch("/{id}", h.SetDefectTypeActive)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
