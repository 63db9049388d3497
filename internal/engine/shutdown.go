package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CloseFunc is a service shutdown step.
type CloseFunc func(ctx context.Context) error

// ShutdownHandler closes registered services in reverse order of registration.
type ShutdownHandler struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
	timeout  time.Duration
}

type namedService struct {
	name  string
	close CloseFunc
}

func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownHandler{
		logger:  logger.Named("shutdown"),
		timeout: timeout,
	}
}

// Add registers a service for shutdown
func (sh *ShutdownHandler) Add(name string, fn CloseFunc) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.services = append(sh.services, namedService{name: name, close: fn})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// Shutdown closes services LIFO, one at a time, within the handler timeout.
// Отправленные транзакции не отменяются: сервер сначала дожидается активных запросов.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	services := make([]namedService, len(sh.services))
	copy(services, sh.services)
	sh.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(services)))

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		if err := svc.close(ctx); err != nil {
			sh.logger.Error("Failed to shutdown service", zap.String("service", svc.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", svc.name, err))
			continue
		}
		sh.logger.Info("Service shutdown complete", zap.String("service", svc.name))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sh.logger.Info("Graceful shutdown completed successfully")
	return nil
}
