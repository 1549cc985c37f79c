package domain

// ItineraryRow is one line of a trip itinerary export.
// It is a flat view: one row per stop in order, with trip fields repeated on
// every row and running totals of the legs travelled so far. A trip with no
// stops yields one row with zero values for all stop fields.
type ItineraryRow struct {
	// Trip fields, repeated for every stop.
	TripID        string
	TripName      string
	TripStartDate string // "2006-01-02", empty when unset
	TripEndDate   string

	// Stop fields.
	Order     int
	StopName  string
	StopType  StopType
	Address   string
	Latitude  float64
	Longitude float64
	PlaceID   string
	Notes     string

	// LegDistance and LegHours describe the leg leaving this stop.
	LegDistance *float64
	LegHours    *float64

	// Arrival totals: distance and time travelled before reaching this stop.
	CumulativeDistance float64
	CumulativeHours    float64
}
