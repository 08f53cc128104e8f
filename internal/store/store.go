// Package store is the durable local mirror of the last successfully
// fetched entities, backed by Postgres. All writes are idempotent upserts;
// measurement batches commit in chunked transactions.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StorageError is a typed persistence failure. Batch writes surface it to
// the caller instead of being swallowed; silent data loss in the cache is
// unacceptable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// Store wraps a pgx pool with the cache schema operations.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a Store to the given database.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, storageErr("connect", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS air`,
	`CREATE TABLE IF NOT EXISTS air.stations (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		city_id INTEGER NOT NULL DEFAULT 0,
		city_name TEXT NOT NULL DEFAULT '',
		commune_name TEXT NOT NULL DEFAULT '',
		district_name TEXT NOT NULL DEFAULT '',
		province_name TEXT NOT NULL DEFAULT '',
		street_name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS air.sensors (
		id INTEGER PRIMARY KEY,
		station_id INTEGER NOT NULL DEFAULT 0,
		param_name TEXT NOT NULL DEFAULT '',
		param_formula TEXT NOT NULL DEFAULT '',
		param_code TEXT NOT NULL DEFAULT '',
		param_id INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS air.measurements (
		sensor_id INTEGER NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		value DOUBLE PRECISION,
		valid BOOLEAN NOT NULL DEFAULT FALSE,
		param_code TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (sensor_id, ts)
	)`,
	`CREATE TABLE IF NOT EXISTS air.air_quality (
		station_id INTEGER PRIMARY KEY,
		calc_date TIMESTAMPTZ,
		source_data_date TIMESTAMPTZ,
		overall_index_id INTEGER NOT NULL DEFAULT 0,
		overall_index_name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS air.air_quality_params (
		station_id INTEGER NOT NULL,
		param_name TEXT NOT NULL,
		index_id INTEGER NOT NULL DEFAULT 0,
		index_name TEXT NOT NULL DEFAULT '',
		calc_date TIMESTAMPTZ,
		PRIMARY KEY (station_id, param_name)
	)`,
}

// Init creates the backing schema if absent. Safe to call repeatedly.
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return storageErr("init schema", err)
		}
	}
	return nil
}
