package floorplan

import (
	"fmt"
	"strings"
)

// Logger is the minimal logging interface this package requires.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Builder converts a raw analysis into a validated FloorPlanGraph.
//
// The builder is the one place fuzzy string matching is allowed. It
// produces stable typed IDs so everything downstream can assume
// exact-ID joins.
type Builder struct {
	logger Logger
}

// NewBuilder creates a graph builder. A nil logger is replaced with a
// no-op implementation.
func NewBuilder(logger Logger) *Builder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Builder{logger: logger}
}

// Build validates and normalises a raw analysis into a Graph.
//
// Validation failures return a *ValidationError; everything fuzzier
// (unmatched connection fragments, duplicate rooms, unknown types) is
// repaired or dropped with a warning instead of failing, because the
// analysis text is free-form and partial data still makes a usable tour.
func (b *Builder) Build(raw RawAnalysis) (*Graph, error) {
	if len(raw.Rooms) == 0 {
		return nil, &ValidationError{Kind: KindNoRooms, Detail: "analysis contains no rooms"}
	}

	for i, room := range raw.Rooms {
		if strings.TrimSpace(room.Name) == "" {
			return nil, &ValidationError{Kind: KindMalformedRoom, RoomIndex: i, Detail: "missing name"}
		}
		if strings.TrimSpace(room.Type) == "" {
			return nil, &ValidationError{Kind: KindMalformedRoom, RoomIndex: i, Detail: "missing type"}
		}
	}

	kept := b.dedupe(raw.Rooms)
	rooms := b.assignIDs(kept)
	connections := b.resolveConnections(rooms, kept, raw.Connections)

	graph := NewGraph(raw.ApartmentType, raw.LayoutStyle, rooms, connections)

	b.logger.Debug("floor plan graph built",
		"rooms", len(graph.Rooms),
		"connections", len(graph.Connections),
		"apartment_type", graph.ApartmentType,
	)
	return graph, nil
}

// NewGraph assembles a Graph and builds its room index.
func NewGraph(apartmentType, layoutStyle string, rooms []Room, connections []Connection) *Graph {
	byID := make(map[string]int, len(rooms))
	for i, room := range rooms {
		byID[room.ID] = i
	}
	return &Graph{
		ApartmentType: apartmentType,
		LayoutStyle:   layoutStyle,
		Rooms:         rooms,
		Connections:   connections,
		byID:          byID,
	}
}

// dedupe collapses synonymous duplicate rooms, preferring the larger
// size. Two entries are synonymous when they normalise to the same type
// and one name contains the other. Distinctly named rooms of the same
// type (two bedrooms, say) are kept apart.
func (b *Builder) dedupe(raws []RawRoom) []RawRoom {
	kept := make([]RawRoom, 0, len(raws))

	for _, candidate := range raws {
		candType := NormaliseType(candidate.Type, candidate.Name)

		merged := false
		for i, existing := range kept {
			if NormaliseType(existing.Type, existing.Name) != candType {
				continue
			}
			if !namesSynonymous(existing.Name, candidate.Name) {
				continue
			}

			if ParseSize(candidate.Size).rank() > ParseSize(existing.Size).rank() {
				// Larger duplicate wins; carry over any extra connections.
				candidate.Connections = mergeFragments(candidate.Connections, existing.Connections)
				kept[i] = candidate
			} else {
				kept[i].Connections = mergeFragments(existing.Connections, candidate.Connections)
			}
			b.logger.Warn("duplicate room merged",
				"name", candidate.Name,
				"type", string(candType),
			)
			merged = true
			break
		}

		if !merged {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// assignIDs normalises the kept rooms and derives stable IDs from the
// room type plus an ordinal for repeats.
func (b *Builder) assignIDs(raws []RawRoom) []Room {
	rooms := make([]Room, 0, len(raws))
	typeCounts := make(map[RoomType]int, len(raws))

	for _, raw := range raws {
		roomType := NormaliseType(raw.Type, raw.Name)
		typeCounts[roomType]++

		id := string(roomType)
		if typeCounts[roomType] > 1 {
			id = fmt.Sprintf("%s_%d", roomType, typeCounts[roomType])
		}

		rooms = append(rooms, Room{
			ID:       id,
			Name:     strings.TrimSpace(raw.Name),
			Type:     roomType,
			Position: strings.TrimSpace(raw.Position),
			Size:     ParseSize(raw.Size),
		})
	}
	return rooms
}

// resolveConnections turns name fragments into exact room-ID edges.
// Unmatched fragments are dropped with a warning, never invented as
// new rooms.
func (b *Builder) resolveConnections(rooms []Room, raws []RawRoom, topLevel []RawConnection) []Connection {
	var connections []Connection
	seen := make(map[string]bool)

	appendEdge := func(fromID, toID string, kind ConnectionKind) {
		key := fromID + "→" + toID
		if seen[key] || fromID == toID {
			return
		}
		seen[key] = true
		connections = append(connections, Connection{FromRoomID: fromID, ToRoomID: toID, Kind: kind})

		for i := range rooms {
			if rooms[i].ID == fromID {
				rooms[i].Connections = append(rooms[i].Connections, toID)
				break
			}
		}
	}

	// Per-room fragments first: their order drives hotspot placement.
	for i, raw := range raws {
		fromID := rooms[i].ID
		for _, fragment := range raw.Connections {
			target, ok := matchRoom(fragment, rooms, fromID)
			if !ok {
				b.logger.Warn("unmatched connection dropped",
					"room", rooms[i].Name,
					"fragment", fragment,
				)
				continue
			}
			appendEdge(fromID, target.ID, KindDoorway)
		}
	}

	for _, raw := range topLevel {
		from, okFrom := matchRoom(raw.From, rooms, "")
		to, okTo := matchRoom(raw.To, rooms, "")
		if !okFrom || !okTo {
			b.logger.Warn("unmatched connection dropped",
				"from", raw.From,
				"to", raw.To,
			)
			continue
		}
		appendEdge(from.ID, to.ID, parseKind(raw.Kind))
	}

	return connections
}

// matchRoom finds the best room for a name fragment. Exact
// case-insensitive name matches win; otherwise the first room whose
// name contains the fragment, or is contained by it, is taken.
func matchRoom(fragment string, rooms []Room, excludeID string) (Room, bool) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return Room{}, false
	}
	lower := strings.ToLower(fragment)

	for _, room := range rooms {
		if room.ID == excludeID {
			continue
		}
		if strings.EqualFold(room.Name, fragment) || room.ID == lower {
			return room, true
		}
	}
	for _, room := range rooms {
		if room.ID == excludeID {
			continue
		}
		name := strings.ToLower(room.Name)
		if strings.Contains(name, lower) || strings.Contains(lower, name) {
			return room, true
		}
	}
	return Room{}, false
}

// mergeFragments appends fragments from extra that primary lacks.
func mergeFragments(primary, extra []string) []string {
	for _, fragment := range extra {
		found := false
		for _, existing := range primary {
			if strings.EqualFold(existing, fragment) {
				found = true
				break
			}
		}
		if !found {
			primary = append(primary, fragment)
		}
	}
	return primary
}

// namesSynonymous reports whether two room names describe the same room.
func namesSynonymous(a, b string) bool {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	return la == lb || strings.Contains(la, lb) || strings.Contains(lb, la)
}

// typeKeywords maps label substrings to normalised room types. Order
// matters: earlier entries win when a label matches several.
var typeKeywords = []struct {
	keyword  string
	roomType RoomType
}{
	{"living", TypeLiving},
	{"lounge", TypeLiving},
	{"salon", TypeLiving},
	{"kitchen", TypeKitchen},
	{"bedroom", TypeBedroom},
	{"bed", TypeBedroom},
	{"bathroom", TypeBathroom},
	{"bath", TypeBathroom},
	{"toilet", TypeBathroom},
	{"wc", TypeBathroom},
	{"shower", TypeBathroom},
	{"dining", TypeDining},
	{"entrance", TypeEntrance},
	{"entry", TypeEntrance},
	{"hall", TypeEntrance},
	{"foyer", TypeEntrance},
	{"terrace", TypeTerrace},
	{"balcony", TypeTerrace},
	{"patio", TypeTerrace},
}

// NormaliseType maps a free-form type label onto the fixed enum,
// falling back to the room name when the type field is unhelpful.
// Unrecognised labels become TypeOther.
func NormaliseType(rawType, name string) RoomType {
	for _, source := range []string{rawType, name} {
		lower := strings.ToLower(source)
		for _, entry := range typeKeywords {
			if strings.Contains(lower, entry.keyword) {
				return entry.roomType
			}
		}
	}
	return TypeOther
}

// ParseSize maps free-form size text onto the enum, defaulting to
// medium.
func ParseSize(raw string) Size {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "small"):
		return SizeSmall
	case strings.Contains(lower, "large"):
		return SizeLarge
	default:
		return SizeMedium
	}
}

func parseKind(raw string) ConnectionKind {
	if strings.Contains(strings.ToLower(raw), "open") {
		return KindOpen
	}
	return KindDoorway
}
