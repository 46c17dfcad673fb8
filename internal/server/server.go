package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"debtster_routes/internal/handlers"
	"debtster_routes/internal/transport/auth"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type Options struct {
	Port           string
	AllowedOrigins []string
	// ShutdownTimeout bounds graceful shutdown after ctx is cancelled.
	ShutdownTimeout time.Duration
}

type Server struct {
	httpServer *http.Server
	shutdown   time.Duration
}

// NewRouter builds the full handler chain: CORS, bearer token extraction,
// request metrics, then the API routes and /metrics.
func NewRouter(h *handlers.Handlers, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(auth.BearerMiddleware())
	r.Use(metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if h != nil {
		h.Register(r)
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		ExposedHeaders:   []string{"Retry-After", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(r)
}

func NewServer(opts Options, h *handlers.Handlers) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", opts.Port),
			Handler:      NewRouter(h, opts.AllowedOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		shutdown: opts.ShutdownTimeout,
	}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		return s.httpServer.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}
