package model

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
)

// Address holds the nested address block of a station.
type Address struct {
	CityID   int    `json:"city_id"`
	CityName string `json:"city_name"`
	Commune  string `json:"commune_name"`
	District string `json:"district_name"`
	Province string `json:"province_name"`
	Street   string `json:"street_name"`
}

// Station is a physical measurement location. Immutable once constructed.
type Station struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Address   Address `json:"address"`
}

// stationDoc mirrors the remote payload. Coordinates arrive as
// numeric-as-text fields; nested blocks may be absent.
type stationDoc struct {
	ID            int    `json:"id"`
	StationName   string `json:"stationName"`
	GegrLat       string `json:"gegrLat"`
	GegrLon       string `json:"gegrLon"`
	AddressStreet string `json:"addressStreet"`
	City          *struct {
		ID      int    `json:"id"`
		Name    string `json:"name"`
		Commune *struct {
			CommuneName  string `json:"communeName"`
			DistrictName string `json:"districtName"`
			ProvinceName string `json:"provinceName"`
		} `json:"commune"`
	} `json:"city"`
}

// ParseStations decodes a station list payload. Entries that are not valid
// objects are skipped with a warning; one bad record never fails the batch.
func ParseStations(data []byte) ([]Station, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode station list: %w", err)
	}

	stations := make([]Station, 0, len(docs))
	for _, raw := range docs {
		var doc stationDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Printf("model: skipping malformed station entry: %v", err)
			continue
		}
		stations = append(stations, stationFromDoc(doc))
	}
	return stations, nil
}

// ParseStation decodes a single station object.
func ParseStation(data []byte) (Station, error) {
	var doc stationDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Station{}, fmt.Errorf("decode station: %w", err)
	}
	return stationFromDoc(doc), nil
}

func stationFromDoc(doc stationDoc) Station {
	st := Station{
		ID:        doc.ID,
		Name:      doc.StationName,
		Latitude:  parseCoordinate(doc.GegrLat),
		Longitude: parseCoordinate(doc.GegrLon),
	}
	st.Address.Street = doc.AddressStreet

	if doc.City != nil {
		st.Address.CityID = doc.City.ID
		st.Address.CityName = doc.City.Name
		if doc.City.Commune != nil {
			st.Address.Commune = doc.City.Commune.CommuneName
			st.Address.District = doc.City.Commune.DistrictName
			st.Address.Province = doc.City.Commune.ProvinceName
		}
	}
	return st
}

// parseCoordinate converts a numeric-as-text coordinate; unparsable input
// falls back to zero rather than failing the record.
func parseCoordinate(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// Valid reports whether the station carries a usable identity.
func (s Station) Valid() bool {
	return s.ID > 0
}

// IsInCity reports whether the station's address city matches name,
// case-insensitively.
func (s Station) IsInCity(name string) bool {
	return strings.EqualFold(s.Address.CityName, name)
}

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceTo returns the great-circle distance in kilometres between the
// station and the given WGS-84 coordinates.
func (s Station) DistanceTo(lat, lon float64) float64 {
	lat1 := degToRad(s.Latitude)
	lon1 := degToRad(s.Longitude)
	lat2 := degToRad(lat)
	lon2 := degToRad(lon)

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// ShortString renders the station for list displays.
func (s Station) ShortString() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Address.CityName)
}
