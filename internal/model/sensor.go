package model

import (
	"encoding/json"
	"fmt"
	"log"
)

// Param describes the parameter a sensor measures.
type Param struct {
	Name    string `json:"name"`
	Formula string `json:"formula"`
	Code    string `json:"code"`
	ID      int    `json:"id"`
}

// Sensor is a single measured-parameter instrument attached to a station.
// StationID is a foreign relation; referential integrity is the cache
// layer's concern, not the type's.
type Sensor struct {
	ID        int   `json:"id"`
	StationID int   `json:"station_id"`
	Param     Param `json:"param"`
}

type sensorDoc struct {
	ID        int `json:"id"`
	StationID int `json:"stationId"`
	Param     *struct {
		ParamName    string `json:"paramName"`
		ParamFormula string `json:"paramFormula"`
		ParamCode    string `json:"paramCode"`
		IDParam      int    `json:"idParam"`
	} `json:"param"`
}

// ParseSensors decodes a sensor list payload. A missing param block is
// treated as empty, not as an error.
func ParseSensors(data []byte) ([]Sensor, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode sensor list: %w", err)
	}

	sensors := make([]Sensor, 0, len(docs))
	for _, raw := range docs {
		var doc sensorDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Printf("model: skipping malformed sensor entry: %v", err)
			continue
		}
		sensors = append(sensors, sensorFromDoc(doc))
	}
	return sensors, nil
}

func sensorFromDoc(doc sensorDoc) Sensor {
	s := Sensor{ID: doc.ID, StationID: doc.StationID}
	if doc.Param != nil {
		s.Param = Param{
			Name:    doc.Param.ParamName,
			Formula: doc.Param.ParamFormula,
			Code:    doc.Param.ParamCode,
			ID:      doc.Param.IDParam,
		}
	}
	return s
}

// Valid reports whether the sensor carries a usable identity.
func (s Sensor) Valid() bool {
	return s.ID > 0
}
