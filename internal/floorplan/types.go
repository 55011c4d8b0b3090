package floorplan

// RoomType is the fixed vocabulary a free-form analysis label is
// normalised into. Unrecognised labels map to TypeOther rather than
// failing, because upstream analysis text is unreliable.
type RoomType string

const (
	TypeLiving   RoomType = "living"
	TypeKitchen  RoomType = "kitchen"
	TypeBedroom  RoomType = "bedroom"
	TypeBathroom RoomType = "bathroom"
	TypeDining   RoomType = "dining"
	TypeEntrance RoomType = "entrance"
	TypeTerrace  RoomType = "terrace"
	TypeOther    RoomType = "other"
)

// Size is the coarse room size parsed from analysis text.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// rank orders sizes for the duplicate-preference heuristic.
func (s Size) rank() int {
	switch s {
	case SizeSmall:
		return 1
	case SizeLarge:
		return 3
	default:
		return 2
	}
}

// ConnectionKind distinguishes an open transition from a doorway.
type ConnectionKind string

const (
	KindOpen    ConnectionKind = "open"
	KindDoorway ConnectionKind = "doorway"
)

// Room is one normalised room in the floor plan.
//
// Identity is the ID field, derived from the room type plus an ordinal
// when the source supplies none. Rooms are immutable once the graph is
// built.
type Room struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     RoomType `json:"type"`
	Position string   `json:"position,omitempty"`
	Size     Size     `json:"size"`

	// Connections holds the resolved IDs of adjacent rooms, in the
	// order the source declared them.
	Connections []string `json:"connections"`
}

// Connection is a directed edge between two rooms. The source data does
// not guarantee the reverse edge exists; the graph tolerates asymmetry.
type Connection struct {
	FromRoomID string         `json:"from_room_id"`
	ToRoomID   string         `json:"to_room_id"`
	Kind       ConnectionKind `json:"kind"`
}

// Graph owns the full room and connection set for one floor-plan
// submission. Every connection references existing room IDs; references
// that could not be resolved were dropped during the build.
//
// A Graph is read-only after Build returns and is safe to share across
// goroutines.
type Graph struct {
	ApartmentType string       `json:"apartment_type"`
	LayoutStyle   string       `json:"layout_style"`
	Rooms         []Room       `json:"rooms"`
	Connections   []Connection `json:"connections"`

	byID map[string]int
}

// Room returns the room with the given ID.
func (g *Graph) Room(id string) (Room, bool) {
	idx, ok := g.byID[id]
	if !ok {
		return Room{}, false
	}
	return g.Rooms[idx], true
}

// ConnectedRooms returns the rooms adjacent to the given room, in
// declaration order.
func (g *Graph) ConnectedRooms(id string) []Room {
	room, ok := g.Room(id)
	if !ok {
		return nil
	}

	connected := make([]Room, 0, len(room.Connections))
	for _, targetID := range room.Connections {
		if target, ok := g.Room(targetID); ok {
			connected = append(connected, target)
		}
	}
	return connected
}

// RoomTypes returns the distinct room types present in the graph, in
// first-appearance order.
func (g *Graph) RoomTypes() []RoomType {
	seen := make(map[RoomType]bool, len(g.Rooms))
	types := make([]RoomType, 0, len(g.Rooms))
	for _, room := range g.Rooms {
		if !seen[room.Type] {
			seen[room.Type] = true
			types = append(types, room.Type)
		}
	}
	return types
}

// RawAnalysis is the analysis payload as returned by the generation
// service, before any normalisation.
type RawAnalysis struct {
	ApartmentType string          `json:"apartment_type"`
	LayoutStyle   string          `json:"layout_style"`
	Rooms         []RawRoom       `json:"rooms"`
	Connections   []RawConnection `json:"connections,omitempty"`
}

// RawRoom is one room entry from the analysis text. All fields are
// free-form; Connections holds room-name fragments, not IDs.
type RawRoom struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Position    string   `json:"position,omitempty"`
	Size        string   `json:"size,omitempty"`
	Connections []string `json:"connections,omitempty"`
}

// RawConnection is a top-level adjacency entry. From and To are
// room-name fragments.
type RawConnection struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind,omitempty"`
}
