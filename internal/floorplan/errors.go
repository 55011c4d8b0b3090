package floorplan

import (
	"errors"
	"fmt"
)

// ValidationKind classifies why a raw analysis was rejected.
type ValidationKind string

const (
	// KindNoRooms means the analysis contained no rooms at all.
	KindNoRooms ValidationKind = "no_rooms"

	// KindMalformedRoom means a room entry was missing its name or type.
	// RoomIndex identifies the offending entry.
	KindMalformedRoom ValidationKind = "malformed_room"
)

// ValidationError is returned by Build when the raw analysis cannot
// produce a graph.
type ValidationError struct {
	Kind      ValidationKind
	RoomIndex int
	Detail    string
}

func (e *ValidationError) Error() string {
	if e.Kind == KindMalformedRoom {
		return fmt.Sprintf("floorplan: %s at index %d: %s", e.Kind, e.RoomIndex, e.Detail)
	}
	return fmt.Sprintf("floorplan: %s: %s", e.Kind, e.Detail)
}

// IsValidationKind reports whether err is a ValidationError of the
// given kind.
func IsValidationKind(err error, kind ValidationKind) bool {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Kind == kind
	}
	return false
}
