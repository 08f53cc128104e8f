package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pzielin/airwatch/internal/analysis"
	"github.com/pzielin/airwatch/internal/fetch"
	"github.com/pzielin/airwatch/internal/geocode"
	"github.com/pzielin/airwatch/internal/gios"
	"github.com/pzielin/airwatch/internal/jsonstore"
	"github.com/pzielin/airwatch/internal/metrics"
	"github.com/pzielin/airwatch/internal/store"
	"github.com/pzielin/airwatch/services/watcher/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("watcher failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client := gios.New(cfg.APIBaseURL, cfg.RequestTimeout)
	geo := geocode.New(cfg.GeocodeBaseURL, cfg.RequestTimeout)
	orch := fetch.New(ctx, client, st, geo, fetch.Options{Workers: cfg.Workers})

	watched := make(map[int]bool, len(cfg.WatchStations))
	for _, id := range cfg.WatchStations {
		watched[id] = true
	}
	if len(watched) == 0 {
		log.Printf("no WATCH_STATIONS configured; refreshing the station list only")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumeEvents(ctx, orch, cfg, watched)
	}()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsHandler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server error: %v", err)
		}
	}()

	sched := gocron.NewScheduler(time.UTC)
	if _, err := sched.Every(cfg.RefreshInterval).Do(func() {
		log.Printf("refresh cycle: requesting station list")
		orch.FetchStations(ctx)
	}); err != nil {
		return err
	}
	sched.StartAsync()

	// First cycle runs immediately; the schedule covers the rest.
	orch.FetchStations(ctx)

	<-ctx.Done()
	log.Printf("shutting down")

	sched.Stop()
	orch.Close()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	return nil
}

func openStore(ctx context.Context, cfg config.Config) (fetch.Store, func(), error) {
	switch cfg.StoreDriver {
	case "file":
		fs, err := jsonstore.New(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		pg, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Init(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// consumeEvents drives the acquisition cycle: a fresh station list triggers
// sensor and quality-index fetches for the watched stations, discovered
// sensors trigger measurement fetches over the trailing window, and every
// series gets an analysis summary logged.
func consumeEvents(ctx context.Context, orch *fetch.Orchestrator, cfg config.Config, watched map[int]bool) {
	for ev := range orch.Events() {
		switch e := ev.(type) {
		case fetch.StationsEvent:
			metrics.FetchesTotal.WithLabelValues("stations").Inc()
			source := "remote"
			if e.FromCache {
				source = "cache"
			}
			log.Printf("stations ready: %d (%s)", len(e.Stations), source)
			for _, st := range e.Stations {
				if !watched[st.ID] {
					continue
				}
				orch.FetchSensors(ctx, st.ID)
				orch.FetchQualityIndex(ctx, st.ID)
			}

		case fetch.SensorsEvent:
			metrics.FetchesTotal.WithLabelValues("sensors").Inc()
			log.Printf("sensors ready for station %d: %d", e.StationID, len(e.Sensors))
			from := time.Now().UTC().Add(-cfg.MeasurementWindow)
			for _, sensor := range e.Sensors {
				orch.FetchMeasurements(ctx, sensor.ID, from, time.Time{})
			}

		case fetch.MeasurementEvent:
			metrics.FetchesTotal.WithLabelValues("measurements").Inc()
			metrics.MeasurementPoints.Add(float64(len(e.Measurement.Points)))
			logAnalysis(e.Measurement.SensorID, e.Measurement.ParamCode, analysisSummary(e))

		case fetch.QualityIndexEvent:
			metrics.FetchesTotal.WithLabelValues("quality_index").Inc()
			if e.Index.Valid() {
				log.Printf("station %d %s", e.Index.StationID, e.Index.String())
			} else {
				log.Printf("station %d quality index not usable", e.Index.StationID)
			}

		case fetch.ErrorEvent:
			metrics.ErrorsTotal.WithLabelValues(string(e.Category)).Inc()
			log.Printf("fetch error (%s): %v", e.Category, e.Err)
		}
	}
}

type summary struct {
	completeness float64
	result       analysis.Result
}

func analysisSummary(e fetch.MeasurementEvent) summary {
	return summary{
		completeness: analysis.Completeness(e.Measurement.Points),
		result:       analysis.Analyze(e.Measurement.Points),
	}
}

func logAnalysis(sensorID int, paramCode string, s summary) {
	if !s.result.HasTrend {
		log.Printf("sensor %d (%s): completeness %.1f%%, avg %.3f, no trend",
			sensorID, paramCode, s.completeness, s.result.Avg)
		return
	}
	log.Printf("sensor %d (%s): completeness %.1f%%, avg %.3f, trend %s (%.3f/h)",
		sensorID, paramCode, s.completeness, s.result.Avg, s.result.Trend, s.result.Slope)
}
