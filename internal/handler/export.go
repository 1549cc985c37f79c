// Package handler, export.go implements GET /trips/{tripId}/itinerary.
// Returns the stops of one trip as a flat table with running totals.
// Supports content negotiation via ?format=csv (CSV) or default (JSON).
package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "trip_name", "trip_start_date", "trip_end_date",
	"order", "stop_name", "stop_type", "address", "latitude", "longitude",
	"place_id", "notes", "leg_distance", "leg_hours",
	"cumulative_distance", "cumulative_hours",
}

// ItineraryRow is one JSON row of the itinerary export.
type ItineraryRow struct {
	TripID             uuid.UUID           `json:"trip_id"`
	TripName           string              `json:"trip_name"`
	TripStartDate      *openapi_types.Date `json:"trip_start_date,omitempty"`
	TripEndDate        *openapi_types.Date `json:"trip_end_date,omitempty"`
	Order              *int                `json:"order,omitempty"`
	StopName           *string             `json:"stop_name,omitempty"`
	StopType           *string             `json:"stop_type,omitempty"`
	Address            *string             `json:"address,omitempty"`
	Latitude           *float64            `json:"latitude,omitempty"`
	Longitude          *float64            `json:"longitude,omitempty"`
	PlaceID            *string             `json:"place_id,omitempty"`
	Notes              *string             `json:"notes,omitempty"`
	LegDistance        *float64            `json:"leg_distance,omitempty"`
	LegHours           *float64            `json:"leg_hours,omitempty"`
	CumulativeDistance float64             `json:"cumulative_distance"`
	CumulativeHours    float64             `json:"cumulative_hours"`
}

// GetItinerary implements GET /trips/{tripId}/itinerary.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetItinerary(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var format *string
	if err := queryParam(r, "format", &format); err != nil {
		s.writeError(w, r, err)
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		s.writeError(w, r, badRequest("format must be csv or json"))
		return
	}

	rows, err := s.export.Itinerary(r.Context(), tripID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format != nil && *format == "csv" {
		writeCSV(w, rows)
		return
	}
	out := make([]ItineraryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, domainRowToJSONRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSV encodes domain rows as CSV.
func writeCSV(w http.ResponseWriter, rows []domain.ItineraryRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write(csvHeaders)
	for _, r := range rows {
		_ = cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// domainRowToJSONRow maps a domain.ItineraryRow to its JSON form. The header
// row of an empty trip carries no stop fields.
func domainRowToJSONRow(r domain.ItineraryRow) ItineraryRow {
	tripID, _ := uuid.Parse(r.TripID)
	row := ItineraryRow{
		TripID:             tripID,
		TripName:           r.TripName,
		TripStartDate:      parseOptionalDate(r.TripStartDate),
		TripEndDate:        parseOptionalDate(r.TripEndDate),
		LegDistance:        r.LegDistance,
		LegHours:           r.LegHours,
		CumulativeDistance: r.CumulativeDistance,
		CumulativeHours:    r.CumulativeHours,
	}
	if r.StopName == "" {
		return row
	}
	row.Order = &r.Order
	row.StopName = &r.StopName
	row.StopType = nilIfEmpty(string(r.StopType))
	row.Address = nilIfEmpty(r.Address)
	row.Latitude = &r.Latitude
	row.Longitude = &r.Longitude
	row.PlaceID = nilIfEmpty(r.PlaceID)
	row.Notes = nilIfEmpty(r.Notes)
	return row
}

// domainRowToCSVRecord encodes a domain.ItineraryRow as a flat string slice.
// Missing legs are encoded as empty strings.
func domainRowToCSVRecord(r domain.ItineraryRow) []string {
	rec := []string{
		r.TripID, r.TripName, r.TripStartDate, r.TripEndDate,
		"", r.StopName, string(r.StopType), r.Address, "", "",
		r.PlaceID, r.Notes, formatOptionalFloat(r.LegDistance), formatOptionalFloat(r.LegHours),
		formatFloat(r.CumulativeDistance), formatFloat(r.CumulativeHours),
	}
	if r.StopName != "" {
		rec[4] = strconv.Itoa(r.Order)
		rec[8] = formatFloat(r.Latitude)
		rec[9] = formatFloat(r.Longitude)
	}
	return rec
}

// parseOptionalDate parses a "2006-01-02" string, returning nil when empty
// or malformed.
func parseOptionalDate(s string) *openapi_types.Date {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &openapi_types.Date{Time: t}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
