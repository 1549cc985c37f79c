package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// CreateShareRequest is the body of POST /trips/{tripId}/shares.
type CreateShareRequest struct {
	SharedWith uuid.UUID `json:"shared_with" validate:"required"`
	Permission string    `json:"permission" validate:"required,oneof=view edit admin"`
	Message    *string   `json:"message,omitempty" validate:"omitempty,max=500"`
}

// Share is the API representation of a trip share.
type Share struct {
	ID         uuid.UUID `json:"id"`
	TripID     uuid.UUID `json:"trip_id"`
	SharedWith uuid.UUID `json:"shared_with"`
	SharedBy   uuid.UUID `json:"shared_by"`
	Permission string    `json:"permission"`
	Message    *string   `json:"message,omitempty"`
	IsActive   bool      `json:"is_active"`
	SharedAt   time.Time `json:"shared_at"`
}

// ListShares handles GET /trips/{tripId}/shares.
func (s *Server) ListShares(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	shares, err := s.shares.List(r.Context(), tripID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]Share, len(shares))
	for i, sh := range shares {
		out[i] = shareToResponse(sh)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateShare handles POST /trips/{tripId}/shares. Granting again updates
// the permission and reactivates a revoked share.
func (s *Server) CreateShare(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "tripId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	by, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req CreateShareRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	share, err := s.shares.Grant(r.Context(), domain.TripShare{
		TripID:     tripID,
		SharedWith: req.SharedWith,
		SharedBy:   by,
		Permission: domain.Permission(req.Permission),
		Message:    derefString(req.Message),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, shareToResponse(share))
}

// DeleteShare handles DELETE /trips/{tripId}/shares/{userId}.
func (s *Server) DeleteShare(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "tripId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	userID, err := pathUUID(r, "userId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	by, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.shares.Revoke(r.Context(), tripID, userID, by); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func shareToResponse(sh domain.TripShare) Share {
	return Share{
		ID:         sh.ID,
		TripID:     sh.TripID,
		SharedWith: sh.SharedWith,
		SharedBy:   sh.SharedBy,
		Permission: string(sh.Permission),
		Message:    nilIfEmpty(sh.Message),
		IsActive:   sh.IsActive,
		SharedAt:   sh.SharedAt,
	}
}
