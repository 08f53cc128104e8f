package http

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pzielin/airwatch/internal/analysis"
	"github.com/pzielin/airwatch/internal/model"
)

const handlerTimeout = 10 * time.Second

// handleListStations returns the cached stations, optionally filtered by
// city (case-insensitive exact match).
// GET /v1/stations?city=
func (s *Server) handleListStations(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	stations, err := s.store.LoadStations(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if city := c.Query("city"); city != "" {
		filtered := make([]model.Station, 0, len(stations))
		for _, st := range stations {
			if st.IsInCity(city) {
				filtered = append(filtered, st)
			}
		}
		stations = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stations,
		"meta": gin.H{"count": len(stations)},
	})
}

// handleNearbyStations returns the cached stations within radius_km of the
// given coordinates.
// GET /v1/stations/nearby?lat=&lon=&radius_km=
func (s *Server) handleNearbyStations(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	radius, radErr := strconv.ParseFloat(c.Query("radius_km"), 64)
	if latErr != nil || lonErr != nil || radErr != nil || radius <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat, lon and radius_km are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	stations, err := s.store.LoadStations(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	nearby := make([]gin.H, 0, len(stations))
	for _, st := range stations {
		if dist := st.DistanceTo(lat, lon); dist <= radius {
			nearby = append(nearby, gin.H{"station": st, "distance_km": dist})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": nearby,
		"meta": gin.H{"count": len(nearby)},
	})
}

// handleStationSensors returns the cached sensors for a station.
// GET /v1/stations/:id/sensors
func (s *Server) handleStationSensors(c *gin.Context) {
	stationID, ok := intParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	sensors, err := s.store.LoadSensors(ctx, stationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": sensors,
		"meta": gin.H{"count": len(sensors)},
	})
}

// handleStationQuality returns the cached quality index for a station.
// GET /v1/stations/:id/aqindex
func (s *Server) handleStationQuality(c *gin.Context) {
	stationID, ok := intParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	qi, err := s.store.LoadQualityIndex(ctx, stationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if qi == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no quality index cached for station"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": qi, "valid": qi.Valid()})
}

// pointDTO renders a data point with the NaN sentinel as null.
type pointDTO struct {
	TS    time.Time `json:"ts"`
	Value *float64  `json:"value"`
	Valid bool      `json:"valid"`
}

// handleSensorMeasurements returns the cached series for a sensor.
// GET /v1/sensors/:id/measurements?from=&to=
func (s *Server) handleSensorMeasurements(c *gin.Context) {
	sensorID, ok := intParam(c, "id")
	if !ok {
		return
	}
	from, to, ok := rangeParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	m, err := s.store.LoadMeasurements(ctx, sensorID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	points := make([]pointDTO, 0, len(m.Points))
	for _, p := range m.Points {
		points = append(points, pointDTO{TS: p.Timestamp, Value: finitePtr(p.Value), Valid: p.Valid})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"sensor_id":  m.SensorID,
			"param_code": m.ParamCode,
			"points":     points,
		},
		"meta": gin.H{"count": len(points)},
	})
}

// handleSensorAnalysis returns the derived statistics for a sensor's cached
// series.
// GET /v1/sensors/:id/analysis?from=&to=
func (s *Server) handleSensorAnalysis(c *gin.Context) {
	sensorID, ok := intParam(c, "id")
	if !ok {
		return
	}
	from, to, ok := rangeParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	m, err := s.store.LoadMeasurements(ctx, sensorID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := analysis.Analyze(m.Points)

	body := gin.H{
		"sensor_id":    m.SensorID,
		"param_code":   m.ParamCode,
		"points":       len(m.Points),
		"valid_points": analysis.ValidCount(m.Points),
		"completeness": analysis.Completeness(m.Points),
		"min":          finitePtr(result.Min),
		"max":          finitePtr(result.Max),
		"avg":          finitePtr(result.Avg),
		"trend":        result.Trend,
	}
	if !result.MinTime.IsZero() {
		body["min_time"] = result.MinTime
	}
	if !result.MaxTime.IsZero() {
		body["max_time"] = result.MaxTime
	}
	if result.HasTrend {
		body["slope_per_hour"] = result.Slope
	}

	c.JSON(http.StatusOK, gin.H{"data": body})
}

func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// rangeParams parses optional RFC 3339 from/to bounds.
func rangeParams(c *gin.Context) (from, to time.Time, ok bool) {
	if v := c.Query("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from: expected RFC3339"})
			return from, to, false
		}
		from = ts
	}
	if v := c.Query("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to: expected RFC3339"})
			return from, to, false
		}
		to = ts
	}
	return from, to, true
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
