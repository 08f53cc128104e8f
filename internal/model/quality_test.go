package model

import (
	"testing"
	"time"
)

func TestParseQualityIndex(t *testing.T) {
	payload := `{
  "id": 52,
  "stCalcDate": "2024-03-10 14:10:43",
  "stSourceDataDate": "2024-03-10 14:00:00",
  "stIndexLevel": {"id": 1, "indexLevelName": "Dobry"},
  "stations": [
    {
      "paramName": "PM10",
      "calcDate": "2024-03-10 14:10:43",
      "indexLevel": {"id": 0, "indexLevelName": "Bardzo dobry"}
    },
    {"paramName": "NO2", "calcDate": "2024-03-10 14:10:43", "indexLevel": null}
  ]
}`

	qi, err := ParseQualityIndex([]byte(payload))
	if err != nil {
		t.Fatalf("ParseQualityIndex: %v", err)
	}
	if qi.StationID != 52 {
		t.Errorf("StationID = %d, want 52", qi.StationID)
	}
	want := time.Date(2024, 3, 10, 14, 10, 43, 0, time.UTC)
	if !qi.CalcDate.Equal(want) {
		t.Errorf("CalcDate = %v, want %v", qi.CalcDate, want)
	}
	if qi.Overall.Name != "Dobry" {
		t.Errorf("Overall = %+v", qi.Overall)
	}
	if len(qi.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(qi.Params))
	}
	if qi.Params[0].Level.Name != "Bardzo dobry" {
		t.Errorf("first param level = %+v", qi.Params[0].Level)
	}
	if qi.Params[1].Level != (IndexLevel{}) {
		t.Errorf("null level should stay empty, got %+v", qi.Params[1].Level)
	}
	if !qi.Valid() {
		t.Error("parsed index with station and date must be valid")
	}
}

func TestQualityIndexValidity(t *testing.T) {
	qi, err := ParseQualityIndex([]byte(`{"id": 52, "stCalcDate": "soon"}`))
	if err != nil {
		t.Fatalf("ParseQualityIndex: %v", err)
	}
	if qi.Valid() {
		t.Error("index without a parseable calc date must not be valid")
	}
	if got := qi.String(); got != "no air quality data" {
		t.Errorf("String = %q", got)
	}

	if (QualityIndex{CalcDate: time.Now()}).Valid() {
		t.Error("index without a station must not be valid")
	}
}

func TestParseIndexTimeLayouts(t *testing.T) {
	for _, s := range []string{
		"2024-03-10T14:10:43Z",
		"2024-03-10T14:10:43",
		"2024-03-10 14:10:43",
	} {
		qi, err := ParseQualityIndex([]byte(`{"id": 1, "stCalcDate": "` + s + `"}`))
		if err != nil {
			t.Fatalf("ParseQualityIndex(%q): %v", s, err)
		}
		if qi.CalcDate.IsZero() {
			t.Errorf("layout %q not accepted", s)
		}
	}
}
