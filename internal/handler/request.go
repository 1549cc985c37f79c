package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// callerHeader carries the id of the acting user.
const callerHeader = "X-User-ID"

// newValidator returns a validator that reports fields by their JSON name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return fmt.Errorf("%w: limit is %d bytes", errTooLarge, tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return badRequest("request body is required")
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	return s.validate.Struct(dst)
}

// pathUUID binds a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return uuid.Nil, badRequest("invalid %s: %v", name, err)
	}
	return id, nil
}

// queryBinding pairs a query parameter with its destination. Handlers bind
// a slice of them so the first invalid parameter is reported consistently.
type queryBinding struct {
	name string
	dst  any
}

// queryParam binds an optional query parameter into dst, which must be a pointer to a pointer.
func queryParam(r *http.Request, name string, dst any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dst); err != nil {
		return badRequest("invalid query parameter %s: %v", name, err)
	}
	return nil
}

// caller returns the acting user from the X-User-ID header.
func caller(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(callerHeader))
	if raw == "" {
		return uuid.Nil, errUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errUnauthenticated
	}
	return id, nil
}

// optionalCaller is caller for read routes open to anonymous users of public trips.
func optionalCaller(r *http.Request) uuid.UUID {
	id, err := caller(r)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// tripAccess resolves the trip id and checks that the caller may view it,
// or edit it when edit is set. A trip the caller may not see is reported
// as not found.
func (s *Server) tripAccess(r *http.Request, edit bool) (tripID, userID uuid.UUID, err error) {
	tripID, err = pathUUID(r, "tripId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if edit {
		userID, err = caller(r)
		if err != nil {
			return uuid.Nil, uuid.Nil, err
		}
	} else {
		userID = optionalCaller(r)
	}

	canView, err := s.shares.CanView(r.Context(), tripID, userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if !canView {
		return uuid.Nil, uuid.Nil, fmt.Errorf("trip %s: %w", tripID, domain.ErrNotFound)
	}
	if edit {
		canEdit, err := s.shares.CanEdit(r.Context(), tripID, userID)
		if err != nil {
			return uuid.Nil, uuid.Nil, err
		}
		if !canEdit {
			return uuid.Nil, uuid.Nil, fmt.Errorf("%w: edit permission required", domain.ErrForbidden)
		}
	}
	return tripID, userID, nil
}

// derefString safely dereferences a *string, returning "" when nil.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nilIfEmpty converts an empty string to a nil pointer.
// Used when mapping domain strings to optional API response fields.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
