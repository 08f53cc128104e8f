package fetch

import (
	"github.com/pzielin/airwatch/internal/model"
)

// Category classifies error events into a small closed set so collaborators
// never have to parse free text. The raw error stays attached for logging.
type Category string

const (
	CategoryParse      Category = "parse_error"
	CategoryConnection Category = "connection_error"
	CategoryStorage    Category = "storage_error"
	CategoryGeocoding  Category = "geocoding_error"
)

// Event is a typed completion or error notification. All events for one
// orchestrator are delivered on a single channel in completion order.
type Event interface {
	event()
}

// StationsEvent carries a freshly fetched station list, or the cached list
// when the remote source was unreachable.
type StationsEvent struct {
	Stations  []model.Station
	FromCache bool
}

// SensorsEvent carries the sensors fetched for one station.
type SensorsEvent struct {
	StationID int
	Sensors   []model.Sensor
}

// MeasurementEvent carries one fetched measurement series.
type MeasurementEvent struct {
	Measurement model.Measurement
}

// QualityIndexEvent carries one fetched quality index.
type QualityIndexEvent struct {
	Index model.QualityIndex
}

// FilteredStationsEvent carries the outcome of a client-side station filter.
type FilteredStationsEvent struct {
	Stations []model.Station
}

// GeocodeEvent carries a resolved address lookup.
type GeocodeEvent struct {
	Lat float64
	Lon float64
}

// ErrorEvent carries a categorized failure.
type ErrorEvent struct {
	Category Category
	Err      error
}

func (StationsEvent) event()         {}
func (SensorsEvent) event()          {}
func (MeasurementEvent) event()      {}
func (QualityIndexEvent) event()     {}
func (FilteredStationsEvent) event() {}
func (GeocodeEvent) event()          {}
func (ErrorEvent) event()            {}
