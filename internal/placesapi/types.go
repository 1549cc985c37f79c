package placesapi

import "github.com/pkordes/roadtrip-planner/backend/internal/domain"

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type searchResponse struct {
	envelope
	Results []RawPlace `json:"results"`
}

type detailsResponse struct {
	envelope
	Result *RawPlace `json:"result"`
}

// RawPlace is one result as the provider returns it.
type RawPlace struct {
	PlaceID                  string        `json:"place_id"`
	Name                     string        `json:"name"`
	FormattedAddress         string        `json:"formatted_address"`
	Vicinity                 string        `json:"vicinity"`
	Geometry                 *Geometry     `json:"geometry"`
	Rating                   *float64      `json:"rating"`
	UserRatingsTotal         *int          `json:"user_ratings_total"`
	PriceLevel               *int          `json:"price_level"`
	Types                    []string      `json:"types"`
	BusinessStatus           string        `json:"business_status"`
	FormattedPhoneNumber     string        `json:"formatted_phone_number"`
	InternationalPhoneNumber string        `json:"international_phone_number"`
	Website                  string        `json:"website"`
	OpeningHours             *OpeningHours `json:"opening_hours"`
	Photos                   []Photo       `json:"photos"`
	Reviews                  []Review      `json:"reviews"`
}

type Geometry struct {
	Location *LatLng `json:"location"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type OpeningHours struct {
	OpenNow     *bool    `json:"open_now"`
	WeekdayText []string `json:"weekday_text"`
}

type Photo struct {
	PhotoReference string `json:"photo_reference"`
}

type Review struct {
	AuthorName string  `json:"author_name"`
	Rating     float64 `json:"rating"`
	Text       string  `json:"text"`
	Time       int64   `json:"time"`
}

// Normalize maps the provider result onto domain.Place. Cache timestamps are
// left for the caller to set.
func (r RawPlace) Normalize() domain.Place {
	p := domain.Place{
		PlaceID:                  r.PlaceID,
		Name:                     r.Name,
		Address:                  r.Vicinity,
		FormattedAddress:         r.FormattedAddress,
		PlaceType:                domain.ClassifyPlaceTypes(r.Types),
		Types:                    append([]string{}, r.Types...),
		Rating:                   r.Rating,
		UserRatingsTotal:         r.UserRatingsTotal,
		PriceLevel:               r.PriceLevel,
		PhoneNumber:              r.FormattedPhoneNumber,
		InternationalPhoneNumber: r.InternationalPhoneNumber,
		Website:                  r.Website,
		BusinessStatus:           r.BusinessStatus,
		Photos:                   []string{},
		Reviews:                  []domain.Review{},
	}
	if r.Geometry != nil && r.Geometry.Location != nil {
		p.Coordinates = domain.Coordinates{Latitude: r.Geometry.Location.Lat, Longitude: r.Geometry.Location.Lng}
	}
	if r.OpeningHours != nil {
		p.OpeningHours = &domain.OpeningHours{
			OpenNow:     r.OpeningHours.OpenNow,
			WeekdayText: r.OpeningHours.WeekdayText,
		}
	}
	for _, ph := range r.Photos {
		if ph.PhotoReference != "" {
			p.Photos = append(p.Photos, ph.PhotoReference)
		}
	}
	for i, rv := range r.Reviews {
		if i == domain.MaxReviews {
			break
		}
		p.Reviews = append(p.Reviews, domain.Review(rv))
	}
	return p
}
