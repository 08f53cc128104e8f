package model

import (
	"math"
	"testing"
	"time"
)

func TestParseMeasurement(t *testing.T) {
	payload := `{
  "key": "PM10",
  "values": [
    {"date": "2024-03-10 12:00:00", "value": 30.3},
    {"date": "2024-03-10 13:00:00", "value": null},
    {"date": "2024-03-10 14:00:00", "value": 27.1}
  ]
}`

	m, err := ParseMeasurement([]byte(payload))
	if err != nil {
		t.Fatalf("ParseMeasurement: %v", err)
	}
	if m.ParamCode != "PM10" {
		t.Errorf("ParamCode = %q, want PM10", m.ParamCode)
	}
	if len(m.Points) != 3 {
		t.Fatalf("got %d points, want 3 (null values retained)", len(m.Points))
	}

	if !m.Points[0].Valid || m.Points[0].Value != 30.3 {
		t.Errorf("first point = %+v", m.Points[0])
	}
	want := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if !m.Points[0].Timestamp.Equal(want) {
		t.Errorf("first timestamp = %v, want %v", m.Points[0].Timestamp, want)
	}

	null := m.Points[1]
	if null.Valid {
		t.Error("null value must be flagged invalid")
	}
	if !math.IsNaN(null.Value) {
		t.Errorf("null value = %v, want NaN sentinel", null.Value)
	}
}

func TestParseMeasurementParamCodeSources(t *testing.T) {
	t.Run("explicit field wins", func(t *testing.T) {
		m, err := ParseMeasurement([]byte(`{"paramCode": "NO2", "key": "PM10_other", "values": []}`))
		if err != nil {
			t.Fatal(err)
		}
		if m.ParamCode != "NO2" {
			t.Errorf("ParamCode = %q, want NO2", m.ParamCode)
		}
	})

	t.Run("key prefix fallback", func(t *testing.T) {
		m, err := ParseMeasurement([]byte(`{"key": "SO2_HOURLY_AVG", "values": []}`))
		if err != nil {
			t.Fatal(err)
		}
		if m.ParamCode != "SO2" {
			t.Errorf("ParamCode = %q, want SO2", m.ParamCode)
		}
	})

	t.Run("key without separator", func(t *testing.T) {
		m, err := ParseMeasurement([]byte(`{"key": "O3", "values": []}`))
		if err != nil {
			t.Fatal(err)
		}
		if m.ParamCode != "O3" {
			t.Errorf("ParamCode = %q, want O3", m.ParamCode)
		}
	})

	t.Run("neither present", func(t *testing.T) {
		m, err := ParseMeasurement([]byte(`{"sensorId": 92, "values": []}`))
		if err != nil {
			t.Fatal(err)
		}
		if m.ParamCode != UnknownParamCode {
			t.Errorf("ParamCode = %q, want %q", m.ParamCode, UnknownParamCode)
		}
	})
}

func TestParseMeasurementBadDate(t *testing.T) {
	m, err := ParseMeasurement([]byte(`{"key": "PM10", "values": [{"date": "yesterday", "value": 1.5}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Points) != 1 {
		t.Fatalf("point with unparsable date must be retained, got %d points", len(m.Points))
	}
	if !m.Points[0].Timestamp.IsZero() {
		t.Errorf("unparsable date should yield zero time, got %v", m.Points[0].Timestamp)
	}
	if !m.Points[0].Valid || m.Points[0].Value != 1.5 {
		t.Errorf("value should survive a bad date: %+v", m.Points[0])
	}
}
