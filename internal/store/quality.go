package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pzielin/airwatch/internal/model"
)

// SaveQualityIndex upserts the index for a station together with its
// per-parameter breakdown, atomically.
func (s *Store) SaveQualityIndex(ctx context.Context, qi model.QualityIndex) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin quality index", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
INSERT INTO air.air_quality (station_id, calc_date, source_data_date, overall_index_id, overall_index_name)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (station_id) DO UPDATE
SET calc_date = EXCLUDED.calc_date,
    source_data_date = EXCLUDED.source_data_date,
    overall_index_id = EXCLUDED.overall_index_id,
    overall_index_name = EXCLUDED.overall_index_name`,
		qi.StationID, nullableTime(qi.CalcDate), nullableTime(qi.SourceDataDate),
		qi.Overall.ID, qi.Overall.Name)
	if err != nil {
		return storageErr("save quality index", err)
	}

	// The breakdown is replaced wholesale; parameters can disappear between
	// calculations.
	if _, err := tx.Exec(ctx, `DELETE FROM air.air_quality_params WHERE station_id = $1`, qi.StationID); err != nil {
		return storageErr("clear quality params", err)
	}
	for _, p := range qi.Params {
		if _, err := tx.Exec(ctx, `
INSERT INTO air.air_quality_params (station_id, param_name, index_id, index_name, calc_date)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (station_id, param_name) DO UPDATE
SET index_id = EXCLUDED.index_id,
    index_name = EXCLUDED.index_name,
    calc_date = EXCLUDED.calc_date`,
			qi.StationID, p.ParamName, p.Level.ID, p.Level.Name, nullableTime(p.CalcDate)); err != nil {
			return storageErr("save quality param", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit quality index", err)
	}
	return nil
}

// LoadQualityIndex reconstructs the cached index for a station, or nil when
// none is cached.
func (s *Store) LoadQualityIndex(ctx context.Context, stationID int) (*model.QualityIndex, error) {
	var (
		qi     model.QualityIndex
		calc   *time.Time
		source *time.Time
	)
	err := s.pool.QueryRow(ctx, `
SELECT station_id, calc_date, source_data_date, overall_index_id, overall_index_name
FROM air.air_quality
WHERE station_id = $1`, stationID).Scan(&qi.StationID, &calc, &source, &qi.Overall.ID, &qi.Overall.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load quality index", err)
	}
	if calc != nil {
		qi.CalcDate = *calc
	}
	if source != nil {
		qi.SourceDataDate = *source
	}

	rows, err := s.pool.Query(ctx, `
SELECT param_name, index_id, index_name, calc_date
FROM air.air_quality_params
WHERE station_id = $1
ORDER BY param_name`, stationID)
	if err != nil {
		return nil, storageErr("load quality params", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p        model.ParamIndex
			calcDate *time.Time
		)
		if err := rows.Scan(&p.ParamName, &p.Level.ID, &p.Level.Name, &calcDate); err != nil {
			return nil, storageErr("scan quality param", err)
		}
		if calcDate != nil {
			p.CalcDate = *calcDate
		}
		qi.Params = append(qi.Params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load quality params", err)
	}
	return &qi, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
