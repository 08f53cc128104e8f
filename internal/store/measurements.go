package store

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pzielin/airwatch/internal/model"
)

// measurementChunkSize bounds how many points commit per transaction.
// Chunks commit independently; a mid-batch failure rolls back only the
// current chunk, and upsert writes keep retries idempotent.
const measurementChunkSize = 100

const upsertMeasurementSQL = `
INSERT INTO air.measurements (sensor_id, ts, value, valid, param_code)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (sensor_id, ts) DO UPDATE
SET value = EXCLUDED.value,
    valid = EXCLUDED.valid,
    param_code = EXCLUDED.param_code`

// SaveMeasurementBatch upserts all points of a measurement series in
// chunked transactions keyed by (sensor, timestamp). A fatal write error is
// returned as a StorageError after rolling back the chunk in flight.
func (s *Store) SaveMeasurementBatch(ctx context.Context, m model.Measurement) error {
	for start := 0; start < len(m.Points); start += measurementChunkSize {
		end := start + measurementChunkSize
		if end > len(m.Points) {
			end = len(m.Points)
		}
		if err := s.saveMeasurementChunk(ctx, m, m.Points[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) saveMeasurementChunk(ctx context.Context, m model.Measurement, chunk []model.DataPoint) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin measurement chunk", err)
	}
	defer func() {
		// No-op once the chunk committed.
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, p := range chunk {
		var value *float64
		if !math.IsNaN(p.Value) {
			v := p.Value
			value = &v
		}
		batch.Queue(upsertMeasurementSQL, m.SensorID, p.Timestamp, value, p.Valid, m.ParamCode)
	}

	res := tx.SendBatch(ctx, batch)
	for range chunk {
		if _, err := res.Exec(); err != nil {
			_ = res.Close()
			return storageErr("save measurement chunk", err)
		}
	}
	if err := res.Close(); err != nil {
		return storageErr("save measurement chunk", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit measurement chunk", err)
	}
	return nil
}

// LoadMeasurements reconstructs the cached series for a sensor, optionally
// bounded by [from, to]. Zero bounds are unbounded.
func (s *Store) LoadMeasurements(ctx context.Context, sensorID int, from, to time.Time) (model.Measurement, error) {
	var fromArg, toArg *time.Time
	if !from.IsZero() {
		fromArg = &from
	}
	if !to.IsZero() {
		toArg = &to
	}

	rows, err := s.pool.Query(ctx, `
SELECT ts, value, valid, param_code
FROM air.measurements
WHERE sensor_id = $1
  AND ($2::timestamptz IS NULL OR ts >= $2)
  AND ($3::timestamptz IS NULL OR ts <= $3)
ORDER BY ts`, sensorID, fromArg, toArg)
	if err != nil {
		return model.Measurement{}, storageErr("load measurements", err)
	}
	defer rows.Close()

	m := model.Measurement{SensorID: sensorID, Points: make([]model.DataPoint, 0)}
	for rows.Next() {
		var (
			point model.DataPoint
			value *float64
			code  string
		)
		if err := rows.Scan(&point.Timestamp, &value, &point.Valid, &code); err != nil {
			return model.Measurement{}, storageErr("scan measurement", err)
		}
		if value != nil {
			point.Value = *value
		} else {
			point.Value = math.NaN()
		}
		if m.ParamCode == "" {
			m.ParamCode = code
		}
		m.Points = append(m.Points, point)
	}
	if err := rows.Err(); err != nil {
		return model.Measurement{}, storageErr("load measurements", err)
	}
	return m, nil
}
