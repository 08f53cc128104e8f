package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// IndexLevel is one step of the 0-5 ordinal air quality scale.
type IndexLevel struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ParamIndex is the per-parameter breakdown of a quality index.
type ParamIndex struct {
	ParamName string     `json:"param_name"`
	Level     IndexLevel `json:"level"`
	CalcDate  time.Time  `json:"calc_date"`
}

// QualityIndex is the derived categorical air quality rating for a station.
type QualityIndex struct {
	StationID      int          `json:"station_id"`
	CalcDate       time.Time    `json:"calc_date"`
	SourceDataDate time.Time    `json:"source_data_date"`
	Overall        IndexLevel   `json:"overall"`
	Params         []ParamIndex `json:"params"`
}

type qualityDoc struct {
	ID               int       `json:"id"`
	StCalcDate       string    `json:"stCalcDate"`
	StSourceDataDate string    `json:"stSourceDataDate"`
	StIndexLevel     *levelDoc `json:"stIndexLevel"`
	Stations         []struct {
		ParamName  string    `json:"paramName"`
		CalcDate   string    `json:"calcDate"`
		IndexLevel *levelDoc `json:"indexLevel"`
	} `json:"stations"`
}

type levelDoc struct {
	ID             int    `json:"id"`
	IndexLevelName string `json:"indexLevelName"`
}

// ParseQualityIndex decodes a quality index payload. Missing nested levels
// are treated as empty; validity is a query, not a parse failure.
func ParseQualityIndex(data []byte) (QualityIndex, error) {
	var doc qualityDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return QualityIndex{}, fmt.Errorf("decode quality index: %w", err)
	}

	qi := QualityIndex{
		StationID:      doc.ID,
		CalcDate:       parseIndexTime(doc.StCalcDate),
		SourceDataDate: parseIndexTime(doc.StSourceDataDate),
	}
	if doc.StIndexLevel != nil {
		qi.Overall = IndexLevel{ID: doc.StIndexLevel.ID, Name: doc.StIndexLevel.IndexLevelName}
	}

	qi.Params = make([]ParamIndex, 0, len(doc.Stations))
	for _, p := range doc.Stations {
		pi := ParamIndex{
			ParamName: p.ParamName,
			CalcDate:  parseIndexTime(p.CalcDate),
		}
		if p.IndexLevel != nil {
			pi.Level = IndexLevel{ID: p.IndexLevel.ID, Name: p.IndexLevel.IndexLevelName}
		}
		qi.Params = append(qi.Params, pi)
	}
	return qi, nil
}

// indexTimeLayouts covers the date formats the index endpoint has been seen
// to emit.
var indexTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	PointTimeLayout,
}

func parseIndexTime(s string) time.Time {
	for _, layout := range indexTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Valid reports whether the index references a real station and carries a
// parseable calculation date. Callers are expected to check this before use.
func (q QualityIndex) Valid() bool {
	return q.StationID > 0 && !q.CalcDate.IsZero()
}

// String renders the overall rating for logs.
func (q QualityIndex) String() string {
	if !q.Valid() {
		return "no air quality data"
	}
	return fmt.Sprintf("air quality index: %s", q.Overall.Name)
}
