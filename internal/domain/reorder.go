package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// OrderAssignment moves one stop to a new order.
type OrderAssignment struct {
	StopID uuid.UUID
	Order  int
}

// ValidateReorder checks a batch on its own, before it is matched against a trip.
// The batch must be non-empty, every entry needs an id and a positive order,
// and neither ids nor target orders may repeat.
func ValidateReorder(batch []OrderAssignment) error {
	if len(batch) == 0 {
		return fmt.Errorf("%w: stop_orders must not be empty", ErrValidation)
	}
	seenIDs := make(map[uuid.UUID]struct{}, len(batch))
	seenOrders := make(map[int]struct{}, len(batch))
	for i, a := range batch {
		if a.StopID == uuid.Nil {
			return fmt.Errorf("%w: stop_orders[%d]: id is required", ErrValidation, i)
		}
		if a.Order < 1 {
			return fmt.Errorf("%w: stop_orders[%d]: order must be a positive integer", ErrValidation, i)
		}
		if _, dup := seenIDs[a.StopID]; dup {
			return fmt.Errorf("%w: stop_orders[%d]: stop %s listed twice", ErrValidation, i, a.StopID)
		}
		if _, dup := seenOrders[a.Order]; dup {
			return fmt.Errorf("%w: stop_orders[%d]: order %d assigned twice", ErrValidation, i, a.Order)
		}
		seenIDs[a.StopID] = struct{}{}
		seenOrders[a.Order] = struct{}{}
	}
	return nil
}

// Reorder applies the whole batch or nothing. Every referenced stop must
// belong to the trip (ErrNotFound otherwise), and the resulting orders must
// stay unique across all stops, including ones the batch does not mention.
func (t *Trip) Reorder(batch []OrderAssignment) error {
	if err := ValidateReorder(batch); err != nil {
		return err
	}

	next := make(map[uuid.UUID]int, len(t.Stops))
	for _, s := range t.Stops {
		next[s.ID] = s.Order
	}
	for _, a := range batch {
		if _, ok := next[a.StopID]; !ok {
			return fmt.Errorf("stop %s does not belong to trip %s: %w", a.StopID, t.ID, ErrNotFound)
		}
		next[a.StopID] = a.Order
	}

	holder := make(map[int]uuid.UUID, len(next))
	for id, order := range next {
		if other, clash := holder[order]; clash {
			return fmt.Errorf("%w: order %d would be held by both %s and %s", ErrValidation, order, other, id)
		}
		holder[order] = id
	}

	for i := range t.Stops {
		t.Stops[i].Order = next[t.Stops[i].ID]
	}
	return nil
}
