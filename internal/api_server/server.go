package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shopdex/shop-collector/internal/config"
	"github.com/shopdex/shop-collector/internal/handlers"
	"github.com/shopdex/shop-collector/internal/progress"
	"github.com/shopdex/shop-collector/internal/service"
	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/pkg/metrics"
	"github.com/shopdex/shop-collector/pkg/middleware"
)

const gracefulShutdownTimeout = 5 * time.Second

type Server struct {
	cfg        *config.Config
	store      store.Store
	listener   net.Listener
	runSrv     *service.RunService
	listingSrv *service.ListingService
	hub        *progress.Hub
}

// New returns a new instance of the collector API server.
func New(
	cfg *config.Config,
	store store.Store,
	listener net.Listener,
	runSrv *service.RunService,
	listingSrv *service.ListingService,
	hub *progress.Hub,
) *Server {
	return &Server{
		cfg:        cfg,
		store:      store,
		listener:   listener,
		runSrv:     runSrv,
		listingSrv: listingSrv,
		hub:        hub,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	batchHandler := handlers.NewBatchHandler(s.runSrv)
	listingHandler := handlers.NewListingHandler(s.listingSrv)
	eventsHandler := handlers.NewEventsHandler(s.runSrv, s.hub)
	healthHandler := handlers.NewHealthHandler(s.store)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/batches", func(r chi.Router) {
			batchHandler.Routes(r)
			r.Get("/{id}/events", eventsHandler.Stream)
		})
		r.Route("/listings", listingHandler.Routes)
	})
	router.Get("/health", healthHandler.Health)
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
