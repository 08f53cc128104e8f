// Package analysis provides pure statistics over measurement time series:
// completeness, extrema, mean and a least-squares trend. Input order is
// preserved everywhere; out-of-order timestamps are tolerated.
package analysis

import (
	"math"
	"time"

	"github.com/pzielin/airwatch/internal/model"
)

// Trend classifies the slope of the fitted value-per-hour line.
type Trend string

const (
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// slopeThreshold is the stability band for trend classification, in value
// units per hour.
const slopeThreshold = 0.01

// Result is the derived summary of one measurement window. It is computed on
// demand and never persisted.
type Result struct {
	Min     float64   `json:"min"`
	MinTime time.Time `json:"min_time"`
	Max     float64   `json:"max"`
	MaxTime time.Time `json:"max_time"`
	Avg     float64   `json:"avg"`

	Trend    Trend   `json:"trend"`
	Slope    float64 `json:"slope_per_hour"`
	HasTrend bool    `json:"has_trend"`
}

// ValidCount returns the number of points flagged valid.
func ValidCount(points []model.DataPoint) int {
	n := 0
	for _, p := range points {
		if p.Valid {
			n++
		}
	}
	return n
}

// Completeness returns the percentage of valid points, or 0 for an empty
// series.
func Completeness(points []model.DataPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return float64(ValidCount(points)) * 100.0 / float64(len(points))
}

// MinValue returns the smallest usable value, or NaN when no point is
// usable. The first point achieving the extremum wins.
func MinValue(points []model.DataPoint) float64 {
	min := math.NaN()
	for _, p := range points {
		if usable(p) && (math.IsNaN(min) || p.Value < min) {
			min = p.Value
		}
	}
	return min
}

// MaxValue returns the largest usable value, or NaN when no point is usable.
func MaxValue(points []model.DataPoint) float64 {
	max := math.NaN()
	for _, p := range points {
		if usable(p) && (math.IsNaN(max) || p.Value > max) {
			max = p.Value
		}
	}
	return max
}

// AvgValue returns the mean of usable values, or NaN when no point is
// usable.
func AvgValue(points []model.DataPoint) float64 {
	sum := 0.0
	count := 0
	for _, p := range points {
		if usable(p) {
			sum += p.Value
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// FilterByRange returns the points whose timestamps fall inside [from, to]
// inclusive, preserving original order. A zero bound is unbounded on that
// side.
func FilterByRange(points []model.DataPoint, from, to time.Time) []model.DataPoint {
	out := make([]model.DataPoint, 0, len(points))
	for _, p := range points {
		if !from.IsZero() && p.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && p.Timestamp.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Analyze computes aggregates and, when at least two usable points exist, an
// ordinary-least-squares regression of value against time in hours. All
// timestamps identical degenerates the slope denominator; in that case no
// trend is reported rather than dividing by zero.
func Analyze(points []model.DataPoint) Result {
	result := Result{
		Min:   math.NaN(),
		Max:   math.NaN(),
		Avg:   math.NaN(),
		Trend: TrendStable,
	}

	sum := 0.0
	count := 0
	for _, p := range points {
		if !usable(p) {
			continue
		}
		if math.IsNaN(result.Min) || p.Value < result.Min {
			result.Min = p.Value
			result.MinTime = p.Timestamp
		}
		if math.IsNaN(result.Max) || p.Value > result.Max {
			result.Max = p.Value
			result.MaxTime = p.Timestamp
		}
		sum += p.Value
		count++
	}
	if count > 0 {
		result.Avg = sum / float64(count)
	}

	if count > 1 {
		var sumX, sumY, sumXY, sumX2 float64
		n := 0.0
		for _, p := range points {
			if !usable(p) {
				continue
			}
			x := float64(p.Timestamp.Unix()) / 3600.0
			y := p.Value
			sumX += x
			sumY += y
			sumXY += x * y
			sumX2 += x * x
			n++
		}

		denom := n*sumX2 - sumX*sumX
		if denom != 0 {
			slope := (n*sumXY - sumX*sumY) / denom
			result.Slope = slope
			result.HasTrend = true
			switch {
			case math.Abs(slope) < slopeThreshold:
				result.Trend = TrendStable
			case slope >= slopeThreshold:
				result.Trend = TrendIncreasing
			default:
				result.Trend = TrendDecreasing
			}
		}
	}

	return result
}

func usable(p model.DataPoint) bool {
	return p.Valid && !math.IsNaN(p.Value)
}
