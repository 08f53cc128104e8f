package gios

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, time.Second), srv
}

func TestStations(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/station/findAll" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id": 14, "stationName": "Dzialoszyn", "gegrLat": "50.97", "gegrLon": "14.94"}]`))
	})
	defer srv.Close()

	stations, err := client.Stations(context.Background())
	if err != nil {
		t.Fatalf("Stations: %v", err)
	}
	if len(stations) != 1 || stations[0].ID != 14 {
		t.Errorf("stations = %+v", stations)
	}
}

func TestStationsShapeError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "maintenance"}`))
	})
	defer srv.Close()

	_, err := client.Stations(context.Background())
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("got %v, want a ShapeError", err)
	}
	if !IsMalformed(err) {
		t.Error("shape errors must classify as malformed")
	}
	if IsConnectionError(err) {
		t.Error("shape errors must not classify as connection errors")
	}
}

func TestStatusError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.Stations(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("got %v, want a StatusError", err)
	}
	if statusErr.Code != http.StatusBadGateway {
		t.Errorf("Code = %d, want 502", statusErr.Code)
	}
	if IsMalformed(err) || IsConnectionError(err) {
		t.Error("status errors belong to neither malformed nor connection class")
	}
}

func TestMeasurementsQueryBounds(t *testing.T) {
	var gotQuery string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"key": "PM10", "values": [{"date": "2024-03-10 12:00:00", "value": 30.3}]}`))
	})
	defer srv.Close()

	from := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	m, err := client.Measurements(context.Background(), 92, from, time.Time{})
	if err != nil {
		t.Fatalf("Measurements: %v", err)
	}
	if gotQuery != "from=2024-03-09T12%3A00%3A00" {
		t.Errorf("query = %q", gotQuery)
	}
	if m.SensorID != 92 {
		t.Errorf("SensorID = %d, want 92 (filled from the request)", m.SensorID)
	}
	if m.ParamCode != "PM10" || len(m.Points) != 1 {
		t.Errorf("measurement = %+v", m)
	}
}

func TestMeasurementsShapeError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	defer srv.Close()

	_, err := client.Measurements(context.Background(), 92, time.Time{}, time.Time{})
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("got %v, want a ShapeError (object expected)", err)
	}
}

func TestSensors(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/station/sensors/14" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id": 92, "stationId": 14, "param": {"paramCode": "PM10"}}]`))
	})
	defer srv.Close()

	sensors, err := client.Sensors(context.Background(), 14)
	if err != nil {
		t.Fatalf("Sensors: %v", err)
	}
	if len(sensors) != 1 || sensors[0].Param.Code != "PM10" {
		t.Errorf("sensors = %+v", sensors)
	}
}

func TestQualityIndex(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/aqindex/getIndex/52" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id": 52, "stCalcDate": "2024-03-10 14:10:43", "stIndexLevel": {"id": 1, "indexLevelName": "Dobry"}}`))
	})
	defer srv.Close()

	qi, err := client.QualityIndex(context.Background(), 52)
	if err != nil {
		t.Fatalf("QualityIndex: %v", err)
	}
	if !qi.Valid() || qi.Overall.Name != "Dobry" {
		t.Errorf("index = %+v", qi)
	}
}

func TestLeadingByteIs(t *testing.T) {
	if !leadingByteIs([]byte("  \n\t["), '[') {
		t.Error("leading whitespace must be skipped")
	}
	if leadingByteIs([]byte("{}"), '[') {
		t.Error("object must not match array")
	}
	if leadingByteIs(nil, '[') {
		t.Error("empty body must not match")
	}
}
