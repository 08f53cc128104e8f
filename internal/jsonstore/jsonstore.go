// Package jsonstore is the flat-file persistence variant: a single JSON
// document holding the cached entities. It keeps the same upsert-by-id
// semantics and round-trip fidelity as the Postgres store, without partial
// batch transactions; a mutex keeps it safe under concurrent single-writer
// access.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pzielin/airwatch/internal/model"
)

// FileStore persists the cache document at a fixed path.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// pointRecord is the serialized form of a data point; the NaN sentinel is
// stored as null.
type pointRecord struct {
	TS    time.Time `json:"ts"`
	Value *float64  `json:"value"`
	Valid bool      `json:"valid"`
}

type measurementRecord struct {
	SensorID  int           `json:"sensor_id"`
	ParamCode string        `json:"param_code"`
	Points    []pointRecord `json:"points"`
}

type document struct {
	Stations     []model.Station      `json:"stations"`
	Sensors      []model.Sensor       `json:"sensors"`
	Measurements []measurementRecord  `json:"measurements"`
	Quality      []model.QualityIndex `json:"quality"`
}

// New creates a FileStore rooted at path, creating the parent directory and
// an empty document when absent. Safe to call repeatedly.
func New(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonstore: create directory: %w", err)
	}
	fs := &FileStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := fs.write(document{}); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

func (fs *FileStore) read() (document, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return document{}, fmt.Errorf("jsonstore: read %s: %w", fs.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("jsonstore: decode %s: %w", fs.path, err)
	}
	return doc, nil
}

// write replaces the document atomically via a temp file rename.
func (fs *FileStore) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonstore: encode: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("jsonstore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("jsonstore: rename %s: %w", tmp, err)
	}
	return nil
}

// SaveStation upserts one station keyed by id.
func (fs *FileStore) SaveStation(_ context.Context, st model.Station) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return err
	}
	doc.Stations = upsertStation(doc.Stations, st)
	return fs.write(doc)
}

// SaveStations upserts a station batch in one write.
func (fs *FileStore) SaveStations(_ context.Context, stations []model.Station) error {
	if len(stations) == 0 {
		return nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return err
	}
	for _, st := range stations {
		doc.Stations = upsertStation(doc.Stations, st)
	}
	return fs.write(doc)
}

func upsertStation(stations []model.Station, st model.Station) []model.Station {
	for i, existing := range stations {
		if existing.ID == st.ID {
			stations[i] = st
			return stations
		}
	}
	return append(stations, st)
}

// LoadStations returns all cached stations.
func (fs *FileStore) LoadStations(_ context.Context) ([]model.Station, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return nil, err
	}
	return doc.Stations, nil
}

// SaveSensor upserts one sensor keyed by id.
func (fs *FileStore) SaveSensor(_ context.Context, sensor model.Sensor) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return err
	}
	doc.Sensors = upsertSensor(doc.Sensors, sensor)
	return fs.write(doc)
}

// SaveSensors upserts a sensor batch in one write.
func (fs *FileStore) SaveSensors(_ context.Context, sensors []model.Sensor) error {
	if len(sensors) == 0 {
		return nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return err
	}
	for _, sensor := range sensors {
		doc.Sensors = upsertSensor(doc.Sensors, sensor)
	}
	return fs.write(doc)
}

func upsertSensor(sensors []model.Sensor, sensor model.Sensor) []model.Sensor {
	for i, existing := range sensors {
		if existing.ID == sensor.ID {
			sensors[i] = sensor
			return sensors
		}
	}
	return append(sensors, sensor)
}

// LoadSensors returns the cached sensors for a station.
func (fs *FileStore) LoadSensors(_ context.Context, stationID int) ([]model.Sensor, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return nil, err
	}
	sensors := make([]model.Sensor, 0)
	for _, sensor := range doc.Sensors {
		if sensor.StationID == stationID {
			sensors = append(sensors, sensor)
		}
	}
	return sensors, nil
}

// SaveMeasurementBatch merges the series for a sensor, upserting points by
// timestamp. The whole document is written once, so the batch is atomic.
func (fs *FileStore) SaveMeasurementBatch(_ context.Context, m model.Measurement) error {
	if len(m.Points) == 0 {
		return nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return err
	}

	rec := measurementRecord{SensorID: m.SensorID, ParamCode: m.ParamCode}
	idx := -1
	for i, existing := range doc.Measurements {
		if existing.SensorID == m.SensorID {
			rec = existing
			rec.ParamCode = m.ParamCode
			idx = i
			break
		}
	}

	for _, p := range m.Points {
		rec.Points = upsertPoint(rec.Points, p)
	}

	if idx >= 0 {
		doc.Measurements[idx] = rec
	} else {
		doc.Measurements = append(doc.Measurements, rec)
	}
	return fs.write(doc)
}

func upsertPoint(points []pointRecord, p model.DataPoint) []pointRecord {
	rec := pointRecord{TS: p.Timestamp, Valid: p.Valid}
	if !math.IsNaN(p.Value) {
		v := p.Value
		rec.Value = &v
	}
	for i, existing := range points {
		if existing.TS.Equal(p.Timestamp) {
			points[i] = rec
			return points
		}
	}
	return append(points, rec)
}

// LoadMeasurements returns the cached series for a sensor, optionally
// bounded by [from, to]. Zero bounds are unbounded.
func (fs *FileStore) LoadMeasurements(_ context.Context, sensorID int, from, to time.Time) (model.Measurement, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return model.Measurement{}, err
	}

	m := model.Measurement{SensorID: sensorID, Points: make([]model.DataPoint, 0)}
	for _, rec := range doc.Measurements {
		if rec.SensorID != sensorID {
			continue
		}
		m.ParamCode = rec.ParamCode
		for _, p := range rec.Points {
			if !from.IsZero() && p.TS.Before(from) {
				continue
			}
			if !to.IsZero() && p.TS.After(to) {
				continue
			}
			point := model.DataPoint{Timestamp: p.TS, Valid: p.Valid, Value: math.NaN()}
			if p.Value != nil {
				point.Value = *p.Value
			}
			m.Points = append(m.Points, point)
		}
		break
	}
	return m, nil
}

// SaveQualityIndex upserts the index for a station.
func (fs *FileStore) SaveQualityIndex(_ context.Context, qi model.QualityIndex) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range doc.Quality {
		if existing.StationID == qi.StationID {
			doc.Quality[i] = qi
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Quality = append(doc.Quality, qi)
	}
	return fs.write(doc)
}

// LoadQualityIndex returns the cached index for a station, or nil when none
// is cached.
func (fs *FileStore) LoadQualityIndex(_ context.Context, stationID int) (*model.QualityIndex, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return nil, err
	}
	for _, qi := range doc.Quality {
		if qi.StationID == stationID {
			out := qi
			return &out, nil
		}
	}
	return nil, nil
}
