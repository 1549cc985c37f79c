package domain

import "time"

// PlaceType is the internal classification of a place.
type PlaceType string

const (
	PlaceTypeAttraction    PlaceType = "attraction"
	PlaceTypeRestaurant    PlaceType = "restaurant"
	PlaceTypeAccommodation PlaceType = "accommodation"
	PlaceTypeGasStation    PlaceType = "gas_station"
	PlaceTypePark          PlaceType = "park"
	PlaceTypeMuseum        PlaceType = "museum"
	PlaceTypeShopping      PlaceType = "shopping"
	PlaceTypeEntertainment PlaceType = "entertainment"
	PlaceTypeOther         PlaceType = "other"
)

// providerPlaceTypes maps provider type tags onto PlaceType.
var providerPlaceTypes = map[string]PlaceType{
	"tourist_attraction": PlaceTypeAttraction,
	"restaurant":         PlaceTypeRestaurant,
	"lodging":            PlaceTypeAccommodation,
	"gas_station":        PlaceTypeGasStation,
	"park":               PlaceTypePark,
	"museum":             PlaceTypeMuseum,
	"shopping_mall":      PlaceTypeShopping,
	"amusement_park":     PlaceTypeEntertainment,
}

// ClassifyPlaceTypes walks the provider's type list in order and returns the
// first one that has an internal equivalent, or PlaceTypeOther.
func ClassifyPlaceTypes(providerTypes []string) PlaceType {
	for _, t := range providerTypes {
		if pt, ok := providerPlaceTypes[t]; ok {
			return pt
		}
	}
	return PlaceTypeOther
}

// MaxReviews is the number of reviews kept per place.
const MaxReviews = 5

// Review is one provider review kept alongside a place.
type Review struct {
	AuthorName string  `json:"author_name"`
	Rating     float64 `json:"rating"`
	Text       string  `json:"text"`
	Time       int64   `json:"time"`
}

// OpeningHours is the provider's opening-hours summary.
type OpeningHours struct {
	OpenNow     *bool    `json:"open_now,omitempty"`
	WeekdayText []string `json:"weekday_text,omitempty"`
}

// Place is cached display data for an external place. It is created and
// refreshed only by the place gateway; stops refer to it by PlaceID.
type Place struct {
	PlaceID          string
	Name             string
	Address          string
	FormattedAddress string
	Coordinates      Coordinates
	PlaceType        PlaceType
	Types            []string
	Rating           *float64
	UserRatingsTotal *int
	PriceLevel       *int

	PhoneNumber              string
	InternationalPhoneNumber string
	Website                  string
	OpeningHours             *OpeningHours
	Photos                   []string
	Reviews                  []Review
	BusinessStatus           string

	LastUpdated    time.Time
	CacheExpiresAt time.Time
}

// IsValid reports whether the cached record is still fresh at now.
func (p Place) IsValid(now time.Time) bool {
	return now.Before(p.CacheExpiresAt)
}

// DisplayAddress prefers the full formatted address.
func (p Place) DisplayAddress() string {
	if p.FormattedAddress != "" {
		return p.FormattedAddress
	}
	return p.Address
}

// SearchKind distinguishes the two memoized query shapes.
type SearchKind string

const (
	SearchKindText   SearchKind = "text"
	SearchKindNearby SearchKind = "nearby"
)

// SearchQuery memoizes the place ids returned for one normalized search.
// It expires sooner than the places it points at because result sets change
// faster than place attributes.
type SearchQuery struct {
	Key          string
	Kind         SearchKind
	Query        string
	Location     *Coordinates
	Radius       int
	PlaceType    string
	PlaceIDs     []string
	TotalResults int
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// IsValid reports whether the memoized result set is still fresh at now.
func (q SearchQuery) IsValid(now time.Time) bool {
	return now.Before(q.ExpiresAt)
}
