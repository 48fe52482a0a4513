package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/villagehub/bizdir/internal/analytics"
	"github.com/villagehub/bizdir/internal/device"
	"github.com/villagehub/bizdir/internal/directory"
	"github.com/villagehub/bizdir/internal/handler"
	"github.com/villagehub/bizdir/internal/logger"
	"github.com/villagehub/bizdir/internal/metrics"
	"github.com/villagehub/bizdir/internal/store"
)

type Server struct {
	httpServer       *http.Server
	directoryService directory.Service
	analyticsService analytics.Service
}

// NewServer wires the router. analyticsService may be nil when analytics is
// disabled; the aggregate endpoints then answer 503.
func NewServer(
	port int,
	apiKey string,
	trustedProxies []string,
	localStore store.Store,
	directoryService directory.Service,
	analyticsService analytics.Service,
	devices *device.Manager,
) *Server {
	r := chi.NewRouter()

	// Middleware stack, outermost first
	detector := NewSuspiciousActivityDetector()

	r.Use(SecurityHeadersMiddleware())
	r.Use(AuthMiddleware(apiKey, trustedProxies, detector))
	r.Use(SecurityLoggingMiddleware(trustedProxies, detector))
	r.Use(RequestSizeLimitMiddleware(1 << 20)) // 1MB limit
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	// Health check routes (unversioned)
	r.Get("/healthz", handler.HandleHealthz())
	r.Get("/readyz", handler.HandleReadyz(func(ctx context.Context) error {
		_, err := localStore.GetAllCategories(ctx)
		return err
	}))

	// Version endpoint (public, for deployment verification)
	r.Get("/version", handler.HandleVersion())

	// Metrics endpoint (public, for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/businesses", func(r chi.Router) {
			r.Get("/", handler.HandleGetListings(directoryService))
			r.Get("/search", handler.HandleSearchBusinesses(directoryService))
			r.Post("/ai-search", handler.HandleAISearch(directoryService))
		})

		r.Get("/categories", handler.HandleGetCategories(directoryService))

		r.Post("/events", handler.HandleTrackEvent(directoryService))

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", handler.HandleGetProfile(devices))
			r.Put("/display-name", handler.HandleSetDisplayName(devices))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/sign-in", handler.HandleSignIn(directoryService))
			r.Post("/sign-out", handler.HandleSignOut(directoryService))

			r.Route("/businesses", func(r chi.Router) {
				r.Post("/", handler.HandleAddBusiness(directoryService))
				r.Put("/{id}", handler.HandleUpdateBusiness(directoryService))
				r.Delete("/{id}", handler.HandleDeleteBusiness(directoryService))
			})
		})

		r.Route("/analytics", func(r chi.Router) {
			if analyticsService == nil {
				r.Mount("/", analyticsDisabledHandler())
				return
			}
			r.Get("/popular-searches", handler.HandleGetPopularSearches(analyticsService))
			r.Get("/popular-businesses", handler.HandleGetPopularBusinesses(analyticsService))
			r.Get("/conversion-rates", handler.HandleGetConversionRates(analyticsService))
			r.Get("/live", handler.HandleGetLiveCount(analyticsService))
		})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		directoryService: directoryService,
		analyticsService: analyticsService,
	}
}

func analyticsDisabledHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "analytics is disabled", http.StatusServiceUnavailable)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Health and metrics endpoints are too chatty to log
		if strings.HasPrefix(r.URL.Path, "/healthz") ||
			strings.HasPrefix(r.URL.Path, "/readyz") ||
			strings.HasPrefix(r.URL.Path, "/metrics") {
			next.ServeHTTP(w, r)
			return
		}

		requestID := logger.GenerateRequestID()
		ctx := logger.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		log := logger.FromContext(ctx)

		log.Info(LogMsgRequestStarted,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_length", r.ContentLength,
			"user_agent", r.UserAgent())

		sanitizedHeaders := make(http.Header)
		for k, v := range r.Header {
			if strings.EqualFold(k, HeaderAPIKey) || strings.EqualFold(k, "Authorization") {
				sanitizedHeaders[k] = []string{RedactedValue}
			} else {
				sanitizedHeaders[k] = v
			}
		}
		log.Debug(LogMsgRequestHeaders, "headers", sanitizedHeaders)

		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Info(LogMsgRequestCompleted,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"duration", duration)
	})
}

// Start starts the server
func (s *Server) Start() error {
	slog.Default().Info(LogMsgServerStarting, "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
