package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pzielin/airwatch/internal/model"
	"github.com/pzielin/airwatch/services/api/config"
)

type stubStore struct {
	stations []model.Station
	sensors  []model.Sensor
	series   model.Measurement
	quality  *model.QualityIndex
}

func (s *stubStore) LoadStations(_ context.Context) ([]model.Station, error) {
	return s.stations, nil
}

func (s *stubStore) LoadSensors(_ context.Context, _ int) ([]model.Sensor, error) {
	return s.sensors, nil
}

func (s *stubStore) LoadMeasurements(_ context.Context, sensorID int, _, _ time.Time) (model.Measurement, error) {
	m := s.series
	m.SensorID = sensorID
	return m, nil
}

func (s *stubStore) LoadQualityIndex(_ context.Context, _ int) (*model.QualityIndex, error) {
	return s.quality, nil
}

func testServer(store *stubStore) *Server {
	return New(config.Config{Port: 8080}, store)
}

func doRequest(t *testing.T, srv *Server, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, body
}

func storeStations() []model.Station {
	return []model.Station{
		{ID: 1, Name: "Warszawa-Centrum", Latitude: 52.2297, Longitude: 21.0122,
			Address: model.Address{CityName: "Warszawa"}},
		{ID: 2, Name: "Krakow-Bujaka", Latitude: 50.0614, Longitude: 19.9372,
			Address: model.Address{CityName: "Krakow"}},
	}
}

func TestHealthz(t *testing.T) {
	rec, body := doRequest(t, testServer(&stubStore{}), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestListStations(t *testing.T) {
	srv := testServer(&stubStore{stations: storeStations()})

	rec, body := doRequest(t, srv, "/v1/stations")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	meta := body["meta"].(map[string]interface{})
	if meta["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", meta["count"])
	}
}

func TestListStationsCityFilter(t *testing.T) {
	srv := testServer(&stubStore{stations: storeStations()})

	rec, body := doRequest(t, srv, "/v1/stations?city=warszawa")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("got %d stations, want 1 (case-insensitive match)", len(data))
	}
	st := data[0].(map[string]interface{})
	if st["id"].(float64) != 1 {
		t.Errorf("filtered wrong station: %v", st)
	}
}

func TestNearbyStations(t *testing.T) {
	srv := testServer(&stubStore{stations: storeStations()})

	rec, body := doRequest(t, srv, "/v1/stations/nearby?lat=52.2297&lon=21.0122&radius_km=50")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("got %d stations, want only the one within 50 km", len(data))
	}

	rec, _ = doRequest(t, srv, "/v1/stations/nearby?lat=52&lon=21")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing radius should 400, got %d", rec.Code)
	}
}

func TestStationSensors(t *testing.T) {
	srv := testServer(&stubStore{sensors: []model.Sensor{
		{ID: 92, StationID: 14, Param: model.Param{Code: "PM10"}},
	}})

	rec, body := doRequest(t, srv, "/v1/stations/14/sensors")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("got %d sensors, want 1", len(data))
	}

	rec, _ = doRequest(t, srv, "/v1/stations/abc/sensors")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id should 400, got %d", rec.Code)
	}
}

func TestStationQualityNotFound(t *testing.T) {
	rec, _ := doRequest(t, testServer(&stubStore{}), "/v1/stations/14/aqindex")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing index should 404, got %d", rec.Code)
	}
}

func TestStationQuality(t *testing.T) {
	qi := &model.QualityIndex{
		StationID: 14,
		CalcDate:  time.Date(2024, 3, 10, 14, 10, 43, 0, time.UTC),
		Overall:   model.IndexLevel{ID: 1, Name: "Dobry"},
	}
	rec, body := doRequest(t, testServer(&stubStore{quality: qi}), "/v1/stations/14/aqindex")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["valid"] != true {
		t.Errorf("valid = %v", body["valid"])
	}
}

func TestSensorMeasurementsRendersNaNAsNull(t *testing.T) {
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	srv := testServer(&stubStore{series: model.Measurement{
		ParamCode: "PM10",
		Points: []model.DataPoint{
			{Timestamp: ts, Value: 30.3, Valid: true},
			{Timestamp: ts.Add(time.Hour), Value: math.NaN(), Valid: false},
		},
	}})

	rec, body := doRequest(t, srv, "/v1/sensors/92/measurements")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]interface{})
	points := data["points"].([]interface{})
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	second := points[1].(map[string]interface{})
	if second["value"] != nil {
		t.Errorf("invalid point value = %v, want null", second["value"])
	}
	if second["valid"] != false {
		t.Errorf("valid = %v", second["valid"])
	}
}

func TestSensorMeasurementsBadRange(t *testing.T) {
	rec, _ := doRequest(t, testServer(&stubStore{}), "/v1/sensors/92/measurements?from=yesterday")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad from should 400, got %d", rec.Code)
	}
}

func TestSensorAnalysis(t *testing.T) {
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	srv := testServer(&stubStore{series: model.Measurement{
		ParamCode: "PM10",
		Points: []model.DataPoint{
			{Timestamp: ts, Value: 10, Valid: true},
			{Timestamp: ts.Add(time.Hour), Value: 12, Valid: true},
			{Timestamp: ts.Add(2 * time.Hour), Value: math.NaN(), Valid: false},
		},
	}})

	rec, body := doRequest(t, srv, "/v1/sensors/92/analysis")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]interface{})
	if data["trend"] != "increasing" {
		t.Errorf("trend = %v", data["trend"])
	}
	if data["min"].(float64) != 10 || data["max"].(float64) != 12 {
		t.Errorf("extrema = %v, %v", data["min"], data["max"])
	}
	if got := data["completeness"].(float64); math.Abs(got-66.666) > 0.01 {
		t.Errorf("completeness = %v", got)
	}
}

func TestSensorAnalysisEmptySeries(t *testing.T) {
	rec, body := doRequest(t, testServer(&stubStore{}), "/v1/sensors/92/analysis")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]interface{})
	if data["min"] != nil || data["max"] != nil || data["avg"] != nil {
		t.Errorf("empty series aggregates must render as null: %v", data)
	}
	if _, present := data["slope_per_hour"]; present {
		t.Error("no trend must omit the slope")
	}
}

func TestBearerAuth(t *testing.T) {
	srv := New(config.Config{Port: 8080, BearerToken: "sekret"}, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/stations", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token should 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/stations", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token should 200, got %d", rec.Code)
	}
}
