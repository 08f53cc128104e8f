package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pzielin/airwatch/internal/model"
)

const upsertSensorSQL = `
INSERT INTO air.sensors (id, station_id, param_name, param_formula, param_code, param_id)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE
SET station_id = EXCLUDED.station_id,
    param_name = EXCLUDED.param_name,
    param_formula = EXCLUDED.param_formula,
    param_code = EXCLUDED.param_code,
    param_id = EXCLUDED.param_id`

// SaveSensor upserts one sensor keyed by id.
func (s *Store) SaveSensor(ctx context.Context, sensor model.Sensor) error {
	_, err := s.pool.Exec(ctx, upsertSensorSQL,
		sensor.ID, sensor.StationID,
		sensor.Param.Name, sensor.Param.Formula, sensor.Param.Code, sensor.Param.ID)
	if err != nil {
		return storageErr("save sensor", err)
	}
	return nil
}

// SaveSensors upserts a sensor batch.
func (s *Store) SaveSensors(ctx context.Context, sensors []model.Sensor) error {
	if len(sensors) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, sensor := range sensors {
		batch.Queue(upsertSensorSQL,
			sensor.ID, sensor.StationID,
			sensor.Param.Name, sensor.Param.Formula, sensor.Param.Code, sensor.Param.ID)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range sensors {
		if _, err := res.Exec(); err != nil {
			return storageErr("save sensors", err)
		}
	}
	return nil
}

// LoadSensors reconstructs the cached sensors for a station.
func (s *Store) LoadSensors(ctx context.Context, stationID int) ([]model.Sensor, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, station_id, param_name, param_formula, param_code, param_id
FROM air.sensors
WHERE station_id = $1
ORDER BY id`, stationID)
	if err != nil {
		return nil, storageErr("load sensors", err)
	}
	defer rows.Close()

	sensors := make([]model.Sensor, 0)
	for rows.Next() {
		var sensor model.Sensor
		if err := rows.Scan(
			&sensor.ID, &sensor.StationID,
			&sensor.Param.Name, &sensor.Param.Formula, &sensor.Param.Code, &sensor.Param.ID,
		); err != nil {
			return nil, storageErr("scan sensor", err)
		}
		sensors = append(sensors, sensor)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load sensors", err)
	}
	return sensors, nil
}
