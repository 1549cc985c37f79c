package routing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/routing"
)

var (
	sanFrancisco = domain.Coordinates{Latitude: 37.7749, Longitude: -122.4194}
	losAngeles   = domain.Coordinates{Latitude: 34.0522, Longitude: -118.2437}
)

func TestDistance(t *testing.T) {
	// About 347 miles as the crow flies.
	assert.InDelta(t, 347.4, routing.Distance(sanFrancisco, losAngeles), 1.0)
	assert.InDelta(t, 0.0, routing.Distance(losAngeles, losAngeles), 1e-9)
	assert.InDelta(t, routing.Distance(sanFrancisco, losAngeles), routing.Distance(losAngeles, sanFrancisco), 1e-9)
}

func TestHaversine_Leg(t *testing.T) {
	h := routing.NewHaversine(50, 1.5)

	leg, err := h.Leg(context.Background(), sanFrancisco, losAngeles)

	require.NoError(t, err)
	want := routing.Distance(sanFrancisco, losAngeles) * 1.5
	assert.InDelta(t, want, leg.Distance, 1e-9)
	assert.InDelta(t, want/50, leg.Hours, 1e-9)
}

func TestNewHaversine_Defaults(t *testing.T) {
	h := routing.NewHaversine(0, -1)
	assert.Equal(t, routing.DefaultAvgSpeedMPH, h.AvgSpeedMPH)
	assert.Equal(t, routing.DefaultRoadFactor, h.RoadFactor)
}

func TestHaversine_Leg_Errors(t *testing.T) {
	_, err := routing.Haversine{}.Leg(context.Background(), sanFrancisco, losAngeles)
	assert.ErrorIs(t, err, routing.ErrNoRoute)

	_, err = routing.NewHaversine(0, 0).Leg(context.Background(), domain.Coordinates{Latitude: 95}, losAngeles)
	assert.ErrorIs(t, err, routing.ErrNoRoute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = routing.NewHaversine(0, 0).Leg(ctx, sanFrancisco, losAngeles)
	assert.ErrorIs(t, err, context.Canceled)
}
