package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// ---- helpers ---------------------------------------------------------------

func newTrip() *domain.Trip {
	t := &domain.Trip{ID: uuid.New(), OwnerID: uuid.New(), Name: "Pacific Coast"}
	t.ApplyDefaults()
	return t
}

func stopAt(name string, order int, lat, lng float64) domain.Stop {
	return domain.Stop{
		Name:        name,
		Order:       order,
		Coordinates: domain.Coordinates{Latitude: lat, Longitude: lng},
	}
}

func withLeg(s domain.Stop, miles, hours float64) domain.Stop {
	s.SetLeg(miles, hours)
	return s
}

func ptr[T any](v T) *T { return &v }

// ---- RecomputeStatistics ---------------------------------------------------

func TestTrip_RecomputeStatistics_SumsLegsInOrder(t *testing.T) {
	trip := newTrip()
	trip.Stops = []domain.Stop{
		withLeg(stopAt("B", 2, 1, 1), 50, 1),
		withLeg(stopAt("A", 1, 0, 0), 100, 2),
		stopAt("C", 3, 2, 2),
	}

	trip.RecomputeStatistics()

	assert.InDelta(t, 150.0, trip.TotalDistance, 1e-9)
	assert.InDelta(t, 3.0, trip.TotalTime, 1e-9)
	assert.InDelta(t, 150.0/domain.DefaultFuelEfficiency*domain.DefaultFuelPricePerUnit, trip.EstimatedFuelCost, 1e-9)
}

func TestTrip_RecomputeStatistics_ZeroOrOneStop(t *testing.T) {
	trip := newTrip()
	trip.TotalDistance, trip.TotalTime, trip.EstimatedFuelCost = 10, 10, 10

	trip.RecomputeStatistics()
	assert.Zero(t, trip.TotalDistance)
	assert.Zero(t, trip.TotalTime)
	assert.Zero(t, trip.EstimatedFuelCost)

	// A lone stop carrying a stale leg still yields zeros.
	trip.Stops = []domain.Stop{withLeg(stopAt("A", 1, 0, 0), 42, 1)}
	trip.RecomputeStatistics()
	assert.Zero(t, trip.TotalDistance)
	assert.Zero(t, trip.TotalTime)
	assert.Zero(t, trip.EstimatedFuelCost)
}

func TestTrip_RecomputeStatistics_MissingLegsContributeZero(t *testing.T) {
	trip := newTrip()
	half := stopAt("B", 2, 1, 1)
	half.TravelDistanceToNext = ptr(30.0) // time missing: leg not usable
	trip.Stops = []domain.Stop{
		withLeg(stopAt("A", 1, 0, 0), 20, 0.5),
		half,
		stopAt("C", 3, 2, 2),
	}

	trip.RecomputeStatistics()

	assert.InDelta(t, 20.0, trip.TotalDistance, 1e-9)
	assert.InDelta(t, 0.5, trip.TotalTime, 1e-9)
}

func TestTrip_RecomputeStatistics_IgnoresLastStopLeg(t *testing.T) {
	trip := newTrip()
	trip.Stops = []domain.Stop{
		withLeg(stopAt("A", 1, 0, 0), 20, 0.5),
		withLeg(stopAt("B", 2, 1, 1), 999, 99), // stale leg on the last stop
	}

	trip.RecomputeStatistics()

	assert.InDelta(t, 20.0, trip.TotalDistance, 1e-9)
}

func TestTrip_RecomputeStatistics_Idempotent(t *testing.T) {
	trip := newTrip()
	trip.FuelEfficiency = 31.7
	trip.FuelPricePerUnit = 4.19
	trip.Stops = []domain.Stop{
		withLeg(stopAt("A", 1, 0, 0), 12.3, 0.25),
		withLeg(stopAt("B", 4, 1, 1), 45.6, 0.75),
		stopAt("C", 9, 2, 2),
	}

	trip.RecomputeStatistics()
	first := *trip
	trip.RecomputeStatistics()

	assert.Equal(t, first.TotalDistance, trip.TotalDistance)
	assert.Equal(t, first.TotalTime, trip.TotalTime)
	assert.Equal(t, first.EstimatedFuelCost, trip.EstimatedFuelCost)
	assert.InDelta(t, trip.TotalDistance/trip.FuelEfficiency*trip.FuelPricePerUnit, trip.EstimatedFuelCost, 1e-9)
}

// ---- AddStop ---------------------------------------------------------------

func TestTrip_AddStop_AssignsNextOrder(t *testing.T) {
	trip := newTrip()
	trip.Stops = []domain.Stop{stopAt("A", 1, 0, 0), stopAt("B", 5, 1, 1)}

	got, err := trip.AddStop(stopAt("C", 0, 2, 2))

	require.NoError(t, err)
	assert.Equal(t, 6, got.Order)
	assert.Equal(t, trip.ID, got.TripID)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, domain.StopTypeWaypoint, got.StopType)
	assert.Len(t, trip.Stops, 3)
}

func TestTrip_AddStop_FirstStopGetsOrderOne(t *testing.T) {
	trip := newTrip()

	got, err := trip.AddStop(stopAt("A", 0, 0, 0))

	require.NoError(t, err)
	assert.Equal(t, 1, got.Order)
}

func TestTrip_AddStop_RejectsBadCoordinates(t *testing.T) {
	cases := map[string]domain.Coordinates{
		"latitude too high":  {Latitude: 90.0001, Longitude: 0},
		"latitude too low":   {Latitude: -91, Longitude: 0},
		"longitude too high": {Latitude: 0, Longitude: 180.5},
		"longitude too low":  {Latitude: 0, Longitude: -181},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			trip := newTrip()
			s := stopAt("A", 0, 0, 0)
			s.Coordinates = c

			_, err := trip.AddStop(s)

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, trip.Stops)
		})
	}
}

func TestTrip_AddStop_AcceptsBoundaryCoordinates(t *testing.T) {
	trip := newTrip()

	_, err := trip.AddStop(stopAt("Pole", 0, 90, -180))

	require.NoError(t, err)
}

func TestTrip_AddStop_RejectsDuplicateOrder(t *testing.T) {
	trip := newTrip()
	trip.Stops = []domain.Stop{stopAt("A", 1, 0, 0)}

	_, err := trip.AddStop(stopAt("B", 1, 1, 1))

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Len(t, trip.Stops, 1)
}

func TestTrip_AddStop_RejectsBlankName(t *testing.T) {
	trip := newTrip()

	_, err := trip.AddStop(stopAt("  ", 0, 0, 0))

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- UpdateStop ------------------------------------------------------------

func TestTrip_UpdateStop_RejectsSiblingOrder(t *testing.T) {
	trip := newTrip()
	a, _ := trip.AddStop(stopAt("A", 0, 0, 0))
	_, _ = trip.AddStop(stopAt("B", 0, 1, 1))

	_, err := trip.UpdateStop(a.ID, domain.StopPatch{Order: ptr(2)})

	assert.ErrorIs(t, err, domain.ErrValidation)
	got, _ := trip.StopByID(a.ID)
	assert.Equal(t, 1, got.Order)
}

func TestTrip_UpdateStop_KeepsOwnOrder(t *testing.T) {
	trip := newTrip()
	a, _ := trip.AddStop(stopAt("A", 0, 0, 0))

	got, err := trip.UpdateStop(a.ID, domain.StopPatch{Order: ptr(1), Name: ptr("Renamed")})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 1, got.Order)
}

func TestTrip_UpdateStop_NullableFields(t *testing.T) {
	trip := newTrip()
	s := stopAt("A", 0, 0, 0)
	s.PlaceID = "ChIJ123"
	s.DurationMinutes = ptr(30)
	a, _ := trip.AddStop(s)

	got, err := trip.UpdateStop(a.ID, domain.StopPatch{
		PlaceID:         nullable.NewNullNullable[string](),
		DurationMinutes: nullable.NewNullableWithValue(45),
	})

	require.NoError(t, err)
	assert.Empty(t, got.PlaceID)
	require.NotNil(t, got.DurationMinutes)
	assert.Equal(t, 45, *got.DurationMinutes)
}

func TestTrip_UpdateStop_NotFound(t *testing.T) {
	trip := newTrip()

	_, err := trip.UpdateStop(uuid.New(), domain.StopPatch{Name: ptr("x")})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTrip_UpdateStop_RejectsZeroOrder(t *testing.T) {
	trip := newTrip()
	a, _ := trip.AddStop(stopAt("A", 0, 0, 0))

	_, err := trip.UpdateStop(a.ID, domain.StopPatch{Order: ptr(0)})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- RemoveStop ------------------------------------------------------------

func TestTrip_RemoveStop_KeepsRemainingOrders(t *testing.T) {
	trip := newTrip()
	a, _ := trip.AddStop(stopAt("A", 0, 0, 0))
	b, _ := trip.AddStop(stopAt("B", 0, 1, 1))
	c, _ := trip.AddStop(stopAt("C", 0, 2, 2))

	_, err := trip.RemoveStop(b.ID)
	require.NoError(t, err)

	gotA, _ := trip.StopByID(a.ID)
	gotC, _ := trip.StopByID(c.ID)
	assert.Equal(t, 1, gotA.Order)
	assert.Equal(t, 3, gotC.Order)
	assert.Len(t, trip.Stops, 2)
}

func TestTrip_RemoveStop_DoesNotAliasOriginalSlice(t *testing.T) {
	trip := newTrip()
	a, _ := trip.AddStop(stopAt("A", 0, 0, 0))
	_, _ = trip.AddStop(stopAt("B", 0, 1, 1))
	before := trip.Stops

	_, err := trip.RemoveStop(a.ID)
	require.NoError(t, err)

	assert.Equal(t, a.ID, before[0].ID)
}

// ---- LegPairs --------------------------------------------------------------

func TestTrip_LegPairs_FollowOrder(t *testing.T) {
	trip := newTrip()
	trip.Stops = []domain.Stop{stopAt("C", 7, 0, 0), stopAt("A", 1, 0, 0), stopAt("B", 3, 0, 0)}

	pairs := trip.LegPairs()

	require.Len(t, pairs, 2)
	assert.Equal(t, "A", pairs[0].From.Name)
	assert.Equal(t, "B", pairs[0].To.Name)
	assert.Equal(t, "B", pairs[1].From.Name)
	assert.Equal(t, "C", pairs[1].To.Name)
}

// ---- Validate --------------------------------------------------------------

func TestTrip_Validate(t *testing.T) {
	trip := newTrip()
	require.NoError(t, trip.Validate())

	trip.FuelEfficiency = 2
	assert.ErrorIs(t, trip.Validate(), domain.ErrValidation)

	trip = newTrip()
	trip.FuelPricePerUnit = 11
	assert.ErrorIs(t, trip.Validate(), domain.ErrValidation)

	trip = newTrip()
	trip.Name = ""
	assert.ErrorIs(t, trip.Validate(), domain.ErrValidation)
}

// ---- Apply -----------------------------------------------------------------

func TestTrip_Apply(t *testing.T) {
	trip := newTrip()
	start := trip.CreatedAt.AddDate(0, 1, 0)

	err := trip.Apply(domain.TripPatch{
		Name:           ptr("Renamed"),
		StartDate:      nullable.NewNullableWithValue(start),
		FuelEfficiency: ptr(40.0),
	})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", trip.Name)
	require.NotNil(t, trip.StartDate)
	assert.True(t, trip.StartDate.Equal(start))
	assert.InDelta(t, 40.0, trip.FuelEfficiency, 1e-9)

	require.NoError(t, trip.Apply(domain.TripPatch{StartDate: nullable.NewNullNullable[time.Time]()}))
	assert.Nil(t, trip.StartDate)
}

func TestTrip_Apply_InvalidLeavesTripUnchanged(t *testing.T) {
	trip := newTrip()

	err := trip.Apply(domain.TripPatch{Name: ptr("New"), FuelPricePerUnit: ptr(0.5)})

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Pacific Coast", trip.Name)
	assert.Equal(t, domain.DefaultFuelPricePerUnit, trip.FuelPricePerUnit)
}
