// Package domain holds the shared data model of the analytics core: return
// series, portfolio weights, covariance matrices and the result records
// produced by the calculators. All records are plain values; the core keeps no
// mutable state between invocations.
package domain

import (
	"fmt"
	"sort"
	"time"
)

// ReturnPoint is a single dated fractional return observation.
type ReturnPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// ReturnSeries is a chronologically ordered series of fractional returns with
// no duplicate dates.
type ReturnSeries struct {
	Points []ReturnPoint `json:"points"`
}

// NewReturnSeries builds a series from parallel date/return slices, sorting by
// date and rejecting duplicates.
func NewReturnSeries(dates []time.Time, returns []float64) (ReturnSeries, error) {
	if len(dates) != len(returns) {
		return ReturnSeries{}, fmt.Errorf("dates length %d does not match returns length %d", len(dates), len(returns))
	}

	points := make([]ReturnPoint, len(dates))
	for i := range dates {
		points[i] = ReturnPoint{Date: dates[i], Return: returns[i]}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	for i := 1; i < len(points); i++ {
		if points[i].Date.Equal(points[i-1].Date) {
			return ReturnSeries{}, fmt.Errorf("duplicate date %s in return series", points[i].Date.Format("2006-01-02"))
		}
	}

	return ReturnSeries{Points: points}, nil
}

// Values returns the raw return values in chronological order.
func (s ReturnSeries) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Return
	}
	return values
}

// Dates returns the observation dates in chronological order.
func (s ReturnSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// Len returns the number of observations.
func (s ReturnSeries) Len() int { return len(s.Points) }

// Slice returns the sub-series with dates in [from, to).
func (s ReturnSeries) Slice(from, to time.Time) ReturnSeries {
	out := ReturnSeries{}
	for _, p := range s.Points {
		if !p.Date.Before(from) && p.Date.Before(to) {
			out.Points = append(out.Points, p)
		}
	}
	return out
}

// Before returns the sub-series strictly before the given date. Backtests use
// this to guarantee rebalance decisions see no data at or after the decision
// date.
func (s ReturnSeries) Before(cutoff time.Time) ReturnSeries {
	out := ReturnSeries{}
	for _, p := range s.Points {
		if p.Date.Before(cutoff) {
			out.Points = append(out.Points, p)
		}
	}
	return out
}

// ReturnMatrix is a date-aligned set of per-asset return series. Rows are
// observations (oldest first), columns follow the Assets ordering.
type ReturnMatrix struct {
	Assets  []string    `json:"assets"`
	Dates   []time.Time `json:"dates"`
	Returns [][]float64 `json:"returns"` // [observation][asset]
}

// Column returns the return series of a single asset, or nil if unknown.
func (m ReturnMatrix) Column(asset string) []float64 {
	for j, a := range m.Assets {
		if a == asset {
			col := make([]float64, len(m.Returns))
			for i := range m.Returns {
				col[i] = m.Returns[i][j]
			}
			return col
		}
	}
	return nil
}

// NumObservations returns the number of aligned observations.
func (m ReturnMatrix) NumObservations() int { return len(m.Returns) }
