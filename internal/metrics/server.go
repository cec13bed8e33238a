package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/groovybits/ltntstools/internal/health"
	"github.com/groovybits/ltntstools/internal/logger"
)

// Server serves Prometheus metrics and the health/readiness/liveness
// endpoints on a single gorilla/mux router.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

// NewServer builds a Server listening on addr, serving Prometheus
// metrics at metricsPath and health checks under /healthz, /readyz and
// /livez. rawLog is used both for the Server's own startup/shutdown
// logging and, per-request, to tag each health/metrics request with a
// request ID via logger.WithRequest.
func NewServer(addr, metricsPath string, healthHandler *health.Handler, rawLog *logrus.Logger) *Server {
	router := mux.NewRouter()
	router.Use(requestLoggingMiddleware(rawLog))
	router.Handle(metricsPath, promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthHandler.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthHandler.HandleReady).Methods(http.MethodGet)
	router.HandleFunc("/livez", healthHandler.HandleLive).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: router},
		log:        logger.NewLogrusAdapter(logger.WithComponent(rawLog, "metrics")),
	}
}

// requestLoggingMiddleware tags every request with a request ID (reusing
// an inbound X-Request-ID header when present) and logs it at debug
// level, the same per-request correlation other HTTP surfaces
// apply via logger.WithRequest.
func requestLoggingMiddleware(rawLog *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := logger.WithRequest(rawLog, r)
			entry.Debug("handled request")
			next.ServeHTTP(w, r)
		})
	}
}

// Start runs the server until ctx is canceled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("starting metrics/health server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
