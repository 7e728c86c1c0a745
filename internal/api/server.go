// Package api wires the HTTP routes and runs the server.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchlog/internal/api/handlers"
	"github.com/amaumene/watchlog/internal/api/middleware"
)

// Server is the HTTP front of the application.
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// NewServer builds the router and the underlying http.Server.
func NewServer(port string, handler *handlers.Handler, logger *logrus.Logger) *Server {
	router := mux.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))

	router.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/search", handler.Search).Methods(http.MethodGet)
	apiRouter.HandleFunc("/movies/{id}", handler.GetMovie).Methods(http.MethodGet)
	apiRouter.HandleFunc("/series/{id}", handler.GetSeries).Methods(http.MethodGet)
	apiRouter.HandleFunc("/series/{id}/upcoming", handler.GetUpcoming).Methods(http.MethodGet)
	apiRouter.HandleFunc("/movies", handler.AddMovie).Methods(http.MethodPost)
	apiRouter.HandleFunc("/series", handler.AddSeries).Methods(http.MethodPost)
	apiRouter.HandleFunc("/document/{kind}", handler.GetRows).Methods(http.MethodGet)
	apiRouter.HandleFunc("/document/{kind}/rows/{row}/cells/{column}", handler.UpdateCell).Methods(http.MethodPut)
	apiRouter.HandleFunc("/export/{kind}.csv", handler.Export).Methods(http.MethodGet)
	apiRouter.HandleFunc("/cache/clear", handler.ClearCache).Methods(http.MethodPost)
	apiRouter.HandleFunc("/backup", handler.Backup).Methods(http.MethodPost)

	return &Server{
		server: &http.Server{
			Addr:         ":" + port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
