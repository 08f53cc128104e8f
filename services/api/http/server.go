// Package http is the read-only REST surface over the persistent cache. It
// renders nothing itself; stations, series and derived statistics go out as
// plain JSON for whatever front end consumes them.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pzielin/airwatch/internal/model"
	"github.com/pzielin/airwatch/services/api/config"
)

// Store is the read side of the persistent cache the API serves from.
type Store interface {
	LoadStations(ctx context.Context) ([]model.Station, error)
	LoadSensors(ctx context.Context, stationID int) ([]model.Sensor, error)
	LoadMeasurements(ctx context.Context, sensorID int, from, to time.Time) (model.Measurement, error)
	LoadQualityIndex(ctx context.Context, stationID int) (*model.QualityIndex, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.Config
	store  Store
	engine *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store Store) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{cfg: cfg, store: store, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/v1")
	v1.GET("/stations", s.handleListStations)
	v1.GET("/stations/nearby", s.handleNearbyStations)
	v1.GET("/stations/:id/sensors", s.handleStationSensors)
	v1.GET("/stations/:id/aqindex", s.handleStationQuality)
	v1.GET("/sensors/:id/measurements", s.handleSensorMeasurements)
	v1.GET("/sensors/:id/analysis", s.handleSensorAnalysis)
}

func bearerAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
