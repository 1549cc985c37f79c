// Package routing provides the stub leg router used in place of a real
// directions provider. Legs are great-circle distances stretched by a road
// factor and driven at a constant average speed.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

const (
	earthRadiusMiles = 3958.8

	DefaultAvgSpeedMPH = 55.0
	DefaultRoadFactor  = 1.2
)

// ErrNoRoute is returned when a leg cannot be estimated.
var ErrNoRoute = errors.New("no route")

// Haversine estimates legs without any network call.
type Haversine struct {
	AvgSpeedMPH float64
	RoadFactor  float64
}

// NewHaversine returns a router; non-positive arguments fall back to the defaults.
func NewHaversine(avgSpeedMPH, roadFactor float64) Haversine {
	if avgSpeedMPH <= 0 {
		avgSpeedMPH = DefaultAvgSpeedMPH
	}
	if roadFactor <= 0 {
		roadFactor = DefaultRoadFactor
	}
	return Haversine{AvgSpeedMPH: avgSpeedMPH, RoadFactor: roadFactor}
}

// Leg returns the estimated leg from one point to another.
func (h Haversine) Leg(ctx context.Context, from, to domain.Coordinates) (domain.Leg, error) {
	if err := ctx.Err(); err != nil {
		return domain.Leg{}, err
	}
	if h.AvgSpeedMPH <= 0 {
		return domain.Leg{}, fmt.Errorf("routing.Haversine.Leg: %w: average speed not set", ErrNoRoute)
	}
	if err := from.Validate(); err != nil {
		return domain.Leg{}, fmt.Errorf("routing.Haversine.Leg: %w: %v", ErrNoRoute, err)
	}
	if err := to.Validate(); err != nil {
		return domain.Leg{}, fmt.Errorf("routing.Haversine.Leg: %w: %v", ErrNoRoute, err)
	}

	factor := h.RoadFactor
	if factor <= 0 {
		factor = 1
	}
	miles := Distance(from, to) * factor
	return domain.Leg{Distance: miles, Hours: miles / h.AvgSpeedMPH}, nil
}

// Distance returns the great-circle distance between two points in miles.
func Distance(a, b domain.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
