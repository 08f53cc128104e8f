// Package fetch orchestrates concurrent acquisition from the remote source:
// a bounded worker pool runs fetch tasks, a single consumer goroutine
// applies cache and store mutations serially, and typed events flow to
// collaborators on one channel. Parsing and transport failures never cross
// the task boundary as panics or errors; they become categorized events.
package fetch

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pzielin/airwatch/internal/geocode"
	"github.com/pzielin/airwatch/internal/gios"
	"github.com/pzielin/airwatch/internal/model"
)

// Source is the remote measurement API consumed by the orchestrator.
type Source interface {
	Stations(ctx context.Context) ([]model.Station, error)
	Sensors(ctx context.Context, stationID int) ([]model.Sensor, error)
	Measurements(ctx context.Context, sensorID int, from, to time.Time) (model.Measurement, error)
	QualityIndex(ctx context.Context, stationID int) (model.QualityIndex, error)
}

// Store is the write-through cache the orchestrator persists into and falls
// back to when the source is unreachable.
type Store interface {
	SaveStations(ctx context.Context, stations []model.Station) error
	SaveSensors(ctx context.Context, sensors []model.Sensor) error
	SaveMeasurementBatch(ctx context.Context, m model.Measurement) error
	SaveQualityIndex(ctx context.Context, qi model.QualityIndex) error
	LoadStations(ctx context.Context) ([]model.Station, error)
}

// Geocoder resolves free-text addresses for the radius filter.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (geocode.Location, error)
}

const (
	defaultWorkers = 4
	queueSize      = 128
)

type task func() result

type result interface{}

type stationsResult struct {
	stations []model.Station
	err      error
}

type sensorsResult struct {
	stationID int
	sensors   []model.Sensor
	err       error
}

type measurementResult struct {
	sensorID int
	m        model.Measurement
	err      error
}

type qualityResult struct {
	stationID int
	qi        model.QualityIndex
	err       error
}

type filterResult struct {
	stations []model.Station
}

type geocodeResult struct {
	radiusKm float64
	loc      geocode.Location
	err      error
}

// Orchestrator coordinates fetch tasks, the station cache and persistence.
type Orchestrator struct {
	source Source
	store  Store
	geo    Geocoder

	cache *StationCache

	ctx     context.Context
	tasks   chan task
	results chan result
	events  chan Event

	stationsBusy atomic.Bool
	closed       atomic.Bool

	workers sync.WaitGroup
	done    chan struct{}
}

// Options tunes the orchestrator.
type Options struct {
	// Workers bounds the fetch pool; defaults to 4.
	Workers int
}

// New starts an orchestrator bound to ctx. Store and Geocoder may be nil
// when persistence or geocoding are not wired.
func New(ctx context.Context, source Source, store Store, geo Geocoder, opts Options) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	o := &Orchestrator{
		source:  source,
		store:   store,
		geo:     geo,
		cache:   NewStationCache(),
		ctx:     ctx,
		tasks:   make(chan task, queueSize),
		results: make(chan result, queueSize),
		events:  make(chan Event, queueSize),
		done:    make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		o.workers.Add(1)
		go o.worker()
	}
	go func() {
		o.workers.Wait()
		close(o.results)
	}()
	go o.consume()

	return o
}

// Events is the single delivery channel for completion and error events.
// It is closed after Close.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Cache exposes the station cache for read-only snapshots.
func (o *Orchestrator) Cache() *StationCache {
	return o.cache
}

// Close stops accepting work, drains in-flight tasks and closes the event
// channel.
func (o *Orchestrator) Close() {
	if !o.closed.CompareAndSwap(false, true) {
		return
	}
	close(o.tasks)
	<-o.done
}

func (o *Orchestrator) worker() {
	defer o.workers.Done()
	for t := range o.tasks {
		o.results <- t()
	}
}

// enqueue hands a task to the pool without ever blocking the caller; a full
// queue drops the request with a warning.
func (o *Orchestrator) enqueue(t task) bool {
	if o.closed.Load() {
		return false
	}
	select {
	case o.tasks <- t:
		return true
	default:
		log.Printf("fetch: task queue full, request dropped")
		return false
	}
}

// FetchStations requests the full station list. A request arriving while a
// stations fetch is already in flight is dropped, not queued.
func (o *Orchestrator) FetchStations(ctx context.Context) {
	if !o.stationsBusy.CompareAndSwap(false, true) {
		return
	}
	ok := o.enqueue(func() result {
		stations, err := o.source.Stations(ctx)
		return stationsResult{stations: stations, err: err}
	})
	if !ok {
		o.stationsBusy.Store(false)
	}
}

// FetchSensors requests the sensors of one station. Concurrent duplicate
// requests for the same station are allowed; the stations busy guard is
// deliberately not extended here.
func (o *Orchestrator) FetchSensors(ctx context.Context, stationID int) {
	o.enqueue(func() result {
		sensors, err := o.source.Sensors(ctx, stationID)
		return sensorsResult{stationID: stationID, sensors: sensors, err: err}
	})
}

// FetchMeasurements requests the series of one sensor, optionally bounded.
func (o *Orchestrator) FetchMeasurements(ctx context.Context, sensorID int, from, to time.Time) {
	o.enqueue(func() result {
		m, err := o.source.Measurements(ctx, sensorID, from, to)
		return measurementResult{sensorID: sensorID, m: m, err: err}
	})
}

// FetchQualityIndex requests the quality index of one station.
func (o *Orchestrator) FetchQualityIndex(ctx context.Context, stationID int) {
	o.enqueue(func() result {
		qi, err := o.source.QualityIndex(ctx, stationID)
		return qualityResult{stationID: stationID, qi: qi, err: err}
	})
}

// FilterByCity emits the cached stations whose city matches name,
// case-insensitively. No remote call is made.
func (o *Orchestrator) FilterByCity(name string) {
	o.enqueue(func() result {
		snapshot := o.cache.Snapshot()
		filtered := make([]model.Station, 0, len(snapshot))
		for _, st := range snapshot {
			if st.IsInCity(name) {
				filtered = append(filtered, st)
			}
		}
		return filterResult{stations: filtered}
	})
}

// FindStationsInRadius emits the cached stations within radiusKm of the
// given coordinates. No remote call is made.
func (o *Orchestrator) FindStationsInRadius(lat, lon, radiusKm float64) {
	o.enqueue(func() result {
		return filterResult{stations: o.withinRadius(lat, lon, radiusKm)}
	})
}

// FindStationsNearAddress geocodes a free-text address and, on success,
// emits the stations within radiusKm of the result.
func (o *Orchestrator) FindStationsNearAddress(ctx context.Context, address string, radiusKm float64) {
	o.enqueue(func() result {
		if o.geo == nil {
			return geocodeResult{err: errors.New("fetch: no geocoder configured")}
		}
		loc, err := o.geo.Lookup(ctx, address)
		return geocodeResult{radiusKm: radiusKm, loc: loc, err: err}
	})
}

func (o *Orchestrator) withinRadius(lat, lon, radiusKm float64) []model.Station {
	snapshot := o.cache.Snapshot()
	filtered := make([]model.Station, 0, len(snapshot))
	for _, st := range snapshot {
		if st.DistanceTo(lat, lon) <= radiusKm {
			filtered = append(filtered, st)
		}
	}
	return filtered
}

// consume is the single delivery point: it applies cache and store
// mutations serially and forwards events, so collaborators never observe a
// partial update.
func (o *Orchestrator) consume() {
	defer close(o.done)
	defer close(o.events)

	for res := range o.results {
		switch r := res.(type) {
		case stationsResult:
			o.stationsBusy.Store(false)
			if r.err != nil {
				o.handleStationsError(r.err)
				continue
			}
			o.cache.Replace(r.stations)
			o.persist(func(ctx context.Context) error {
				return o.store.SaveStations(ctx, r.stations)
			})
			o.emit(StationsEvent{Stations: r.stations})

		case sensorsResult:
			if r.err != nil {
				o.handleFetchError(r.err)
				continue
			}
			o.persist(func(ctx context.Context) error {
				return o.store.SaveSensors(ctx, r.sensors)
			})
			o.emit(SensorsEvent{StationID: r.stationID, Sensors: r.sensors})

		case measurementResult:
			if r.err != nil {
				o.handleFetchError(r.err)
				continue
			}
			o.persist(func(ctx context.Context) error {
				return o.store.SaveMeasurementBatch(ctx, r.m)
			})
			o.emit(MeasurementEvent{Measurement: r.m})

		case qualityResult:
			if r.err != nil {
				o.handleFetchError(r.err)
				continue
			}
			o.persist(func(ctx context.Context) error {
				return o.store.SaveQualityIndex(ctx, r.qi)
			})
			o.emit(QualityIndexEvent{Index: r.qi})

		case filterResult:
			o.emit(FilteredStationsEvent{Stations: r.stations})

		case geocodeResult:
			if r.err != nil {
				o.emit(ErrorEvent{Category: CategoryGeocoding, Err: r.err})
				continue
			}
			o.emit(GeocodeEvent{Lat: r.loc.Lat, Lon: r.loc.Lon})
			o.emit(FilteredStationsEvent{Stations: o.withinRadius(r.loc.Lat, r.loc.Lon, r.radiusKm)})
		}
	}
}

// handleStationsError categorizes a failed stations fetch and, on a
// connection-class failure, falls back to the persistent cache.
func (o *Orchestrator) handleStationsError(err error) {
	if !gios.IsConnectionError(err) {
		o.handleFetchError(err)
		return
	}

	o.emit(ErrorEvent{Category: CategoryConnection, Err: err})

	if o.store == nil {
		return
	}
	stations, loadErr := o.store.LoadStations(o.ctx)
	if loadErr != nil {
		log.Printf("fetch: cache fallback failed: %v", loadErr)
		return
	}
	if len(stations) == 0 {
		return
	}
	o.cache.Replace(stations)
	o.emit(StationsEvent{Stations: stations, FromCache: true})
}

// handleFetchError implements the error taxonomy: connection-class failures
// collapse to one stable category, malformed bodies surface as parse
// errors, anything else is logged and discarded.
func (o *Orchestrator) handleFetchError(err error) {
	switch {
	case gios.IsConnectionError(err):
		o.emit(ErrorEvent{Category: CategoryConnection, Err: err})
	case gios.IsMalformed(err):
		o.emit(ErrorEvent{Category: CategoryParse, Err: err})
	default:
		log.Printf("fetch: transport error discarded: %v", err)
	}
}

// persist runs a write-through save; failures surface as storage error
// events rather than suppressing the fetched data.
func (o *Orchestrator) persist(save func(context.Context) error) {
	if o.store == nil {
		return
	}
	if err := save(o.ctx); err != nil {
		o.emit(ErrorEvent{Category: CategoryStorage, Err: err})
	}
}

func (o *Orchestrator) emit(ev Event) {
	o.events <- ev
}
