package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pzielin/airwatch/internal/model"
)

const upsertStationSQL = `
INSERT INTO air.stations (id, name, latitude, longitude, city_id, city_name, commune_name, district_name, province_name, street_name)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    city_id = EXCLUDED.city_id,
    city_name = EXCLUDED.city_name,
    commune_name = EXCLUDED.commune_name,
    district_name = EXCLUDED.district_name,
    province_name = EXCLUDED.province_name,
    street_name = EXCLUDED.street_name`

// SaveStation upserts one station keyed by id.
func (s *Store) SaveStation(ctx context.Context, st model.Station) error {
	_, err := s.pool.Exec(ctx, upsertStationSQL,
		st.ID, st.Name, st.Latitude, st.Longitude,
		st.Address.CityID, st.Address.CityName, st.Address.Commune,
		st.Address.District, st.Address.Province, st.Address.Street)
	if err != nil {
		return storageErr("save station", err)
	}
	return nil
}

// SaveStations upserts a station batch.
func (s *Store) SaveStations(ctx context.Context, stations []model.Station) error {
	if len(stations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, st := range stations {
		batch.Queue(upsertStationSQL,
			st.ID, st.Name, st.Latitude, st.Longitude,
			st.Address.CityID, st.Address.CityName, st.Address.Commune,
			st.Address.District, st.Address.Province, st.Address.Street)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range stations {
		if _, err := res.Exec(); err != nil {
			return storageErr("save stations", err)
		}
	}
	return nil
}

// LoadStations reconstructs all cached stations.
func (s *Store) LoadStations(ctx context.Context) ([]model.Station, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, name, latitude, longitude, city_id, city_name, commune_name, district_name, province_name, street_name
FROM air.stations
ORDER BY id`)
	if err != nil {
		return nil, storageErr("load stations", err)
	}
	defer rows.Close()

	stations := make([]model.Station, 0)
	for rows.Next() {
		var st model.Station
		if err := rows.Scan(
			&st.ID, &st.Name, &st.Latitude, &st.Longitude,
			&st.Address.CityID, &st.Address.CityName, &st.Address.Commune,
			&st.Address.District, &st.Address.Province, &st.Address.Street,
		); err != nil {
			return nil, storageErr("scan station", err)
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load stations", err)
	}
	return stations, nil
}
