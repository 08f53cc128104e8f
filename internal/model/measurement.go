package model

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"
)

// PointTimeLayout is the timestamp format used by the measurement feed.
const PointTimeLayout = "2006-01-02 15:04:05"

// UnknownParamCode marks a measurement whose parameter code could not be
// derived from the payload.
const UnknownParamCode = "unknown"

// DataPoint is one timestamped sample. An absent or unparsable value is kept
// as a NaN sentinel with Valid=false so point counts stay comparable to the
// source; an unparsable timestamp yields a zero time and the point is still
// retained.
type DataPoint struct {
	Timestamp time.Time `json:"ts"`
	Value     float64   `json:"value"`
	Valid     bool      `json:"valid"`
}

// Measurement is the time series produced by one sensor. Point order is the
// source delivery order, not guaranteed chronological.
type Measurement struct {
	SensorID  int         `json:"sensor_id"`
	ParamCode string      `json:"param_code"`
	Points    []DataPoint `json:"points"`
}

type measurementDoc struct {
	SensorID  int    `json:"sensorId"`
	ParamCode string `json:"paramCode"`
	Key       string `json:"key"`
	Values    []struct {
		Date  string   `json:"date"`
		Value *float64 `json:"value"`
	} `json:"values"`
}

// ParseMeasurement decodes a measurement payload. The parameter code comes
// from an explicit field, or from the prefix of the composite key, or falls
// back to UnknownParamCode with a warning; construction always succeeds for
// a well-formed document.
func ParseMeasurement(data []byte) (Measurement, error) {
	var doc measurementDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Measurement{}, fmt.Errorf("decode measurement: %w", err)
	}

	m := Measurement{SensorID: doc.SensorID}

	switch {
	case doc.ParamCode != "":
		m.ParamCode = doc.ParamCode
	case doc.Key != "":
		m.ParamCode = strings.SplitN(doc.Key, "_", 2)[0]
	default:
		m.ParamCode = UnknownParamCode
		log.Printf("model: measurement for sensor %d carries no parameter code", doc.SensorID)
	}

	m.Points = make([]DataPoint, 0, len(doc.Values))
	for _, v := range doc.Values {
		var point DataPoint

		if ts, err := time.Parse(PointTimeLayout, v.Date); err == nil {
			point.Timestamp = ts
		}

		if v.Value != nil {
			point.Value = *v.Value
			point.Valid = true
		} else {
			point.Value = math.NaN()
		}

		m.Points = append(m.Points, point)
	}
	return m, nil
}
