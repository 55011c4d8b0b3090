package tour

import (
	"time"

	"github.com/nerrad567/tourforge-core/internal/floorplan"
)

// Hotspot is a tappable navigation marker inside a panorama.
type Hotspot struct {
	TargetViewpointID string `json:"target_viewpoint_id"`

	// YawDegrees positions the marker in [0,360).
	YawDegrees float64 `json:"yaw_degrees"`

	Label string `json:"label"`
}

// Viewpoint is one generated 360° panorama with its navigation markers.
// A room whose generation job failed produces no Viewpoint.
type Viewpoint struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	ImageURL string    `json:"image_url"`
	Hotspots []Hotspot `json:"hotspots"`
}

// Status is the terminal state of an assembled tour.
type Status string

const (
	// StatusCompleted means every room produced a viewpoint.
	StatusCompleted Status = "completed"

	// StatusCompletedWithGaps means some rooms failed but the tour is
	// still navigable through the rest.
	StatusCompletedWithGaps Status = "completed-with-gaps"

	// StatusFailed means no room produced a viewpoint.
	StatusFailed Status = "failed"
)

// Tour is the assembled result of one pipeline run. It is built once at
// the end of the viewpoint fan-out and immutable thereafter; the
// navigator consumes it read-only.
type Tour struct {
	ID         string `json:"id"`
	Style      string `json:"style"`
	LayoutType string `json:"layout_type"`

	// DollhouseURL is empty when the dollhouse stage failed or was
	// disabled. Dollhouse is cosmetic; its absence never fails a tour.
	DollhouseURL string `json:"dollhouse_url,omitempty"`

	Viewpoints    []Viewpoint `json:"viewpoints"`
	FailedRoomIDs []string    `json:"failed_room_ids"`
	Status        Status      `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Viewpoint returns the viewpoint with the given ID.
func (t *Tour) Viewpoint(id string) (Viewpoint, bool) {
	for _, vp := range t.Viewpoints {
		if vp.ID == id {
			return vp, true
		}
	}
	return Viewpoint{}, false
}

// canonicalIDs maps each room type to its canonical viewpoint ID.
//
// The mapping is by type, not by room: a graph with two bedrooms
// collapses both onto master_bedroom, and hotspots pointing at either
// bedroom land on the same viewpoint. Callers wanting distinct
// navigation targets must keep room types unique.
var canonicalIDs = map[floorplan.RoomType]string{
	floorplan.TypeLiving:   "living_room",
	floorplan.TypeKitchen:  "kitchen",
	floorplan.TypeBedroom:  "master_bedroom",
	floorplan.TypeBathroom: "bathroom",
	floorplan.TypeDining:   "dining_room",
	floorplan.TypeEntrance: "entrance",
	floorplan.TypeTerrace:  "terrace",
	floorplan.TypeOther:    "room",
}

// CanonicalViewpointID resolves a room type to its viewpoint ID.
func CanonicalViewpointID(roomType floorplan.RoomType) string {
	if id, ok := canonicalIDs[roomType]; ok {
		return id
	}
	return "room"
}
