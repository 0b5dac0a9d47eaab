// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-txcore/internal/stream"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	Addr string
}

// Handlers собирает все обработчики сервера. Nil-обработчик не регистрируется.
type Handlers struct {
	Health  *HealthHandler
	Stream  *stream.Handler
	PnL     *PnLHandler
	Fees    *FeeHandler
	Metrics http.Handler
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(cfg Config, handlers Handlers, logger *zap.Logger) *Server {
	logger = logger.Named("api")
	mux := http.NewServeMux()

	if handlers.Health != nil {
		mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	}
	if handlers.Stream != nil {
		mux.HandleFunc("POST /api/tx/submit", handlers.Stream.ServeNDJSON)
		mux.HandleFunc("GET /api/tx/ws", handlers.Stream.ServeWebSocket)
	}
	if handlers.PnL != nil {
		mux.HandleFunc("GET /api/pnl/{wallet}", handlers.PnL.Report)
	}
	if handlers.Fees != nil {
		mux.HandleFunc("GET /api/fees", handlers.Fees.Estimate)
	}
	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}

	var h http.Handler = mux
	h = Recover(logger)(h)
	h = Logging(logger)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			// ReadTimeout и WriteTimeout не заданы: поток статусов живёт
			// до таймаута подтверждения, а дедлайн чтения оборвал бы его контекст
			IdleTimeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Handler нужен тестам, чтобы гонять маршруты через httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run слушает адрес до отмены ctx, затем корректно завершает активные запросы.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// отмена ctx закрывает и потоки статусов: их контексты наследуют BaseContext
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
