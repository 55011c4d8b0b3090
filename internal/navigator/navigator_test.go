package navigator

import (
	"testing"

	"github.com/nerrad567/tourforge-core/internal/tour"
)

func testTour() *tour.Tour {
	return &tour.Tour{
		ID:     "tour-1",
		Status: tour.StatusCompleted,
		Viewpoints: []tour.Viewpoint{
			{
				ID:     "living_room",
				RoomID: "living",
				Hotspots: []tour.Hotspot{
					{TargetViewpointID: "kitchen", YawDegrees: 90, Label: "Kitchen"},
					{TargetViewpointID: "master_bedroom", YawDegrees: 180, Label: "Bedroom"},
				},
			},
			{
				ID:     "kitchen",
				RoomID: "kitchen",
				Hotspots: []tour.Hotspot{
					{TargetViewpointID: "living_room", YawDegrees: 0, Label: "Living Room"},
				},
			},
			{
				ID:       "master_bedroom",
				RoomID:   "bedroom",
				Hotspots: []tour.Hotspot{},
			},
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Normalize Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-10, 350},
		{370, 10},
		{0, 0},
		{360, 0},
		{720, 0},
		{-360, 0},
		{180, 180},
		{-540, 180},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCircularDistance(t *testing.T) {
	tests := []struct {
		a, b float64
		want float64
	}{
		{95, 90, 5},
		{200, 90, 110},
		{350, 10, 20},
		{0, 180, 180},
		{0, 0, 0},
	}

	for _, tt := range tests {
		if got := CircularDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("CircularDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Drag Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestOnDrag(t *testing.T) {
	nav := New(testTour(), "living_room", 0)

	nav.OnDrag(45)
	if nav.CurrentYaw() != 45 {
		t.Errorf("yaw = %v, want 45", nav.CurrentYaw())
	}

	nav.OnDrag(-90)
	if nav.CurrentYaw() != 315 {
		t.Errorf("yaw = %v, want 315 after wrapping", nav.CurrentYaw())
	}

	// Drags never change the viewpoint.
	if nav.CurrentViewpointID() != "living_room" {
		t.Errorf("viewpoint = %q, drag must not navigate", nav.CurrentViewpointID())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tap Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestOnTap_NavigatesWithinThreshold(t *testing.T) {
	nav := New(testTour(), "living_room", 0)
	nav.OnDrag(90)

	target, navigated := nav.OnTap(95) // hotspot at 90, distance 5
	if !navigated {
		t.Fatal("tap at 95 near hotspot at 90 should navigate")
	}
	if target != "kitchen" {
		t.Errorf("target = %q, want kitchen", target)
	}
	if nav.CurrentViewpointID() != "kitchen" {
		t.Errorf("viewpoint = %q, want kitchen", nav.CurrentViewpointID())
	}
	// Entering a room resets the orientation.
	if nav.CurrentYaw() != 0 {
		t.Errorf("yaw = %v, want 0 after navigation", nav.CurrentYaw())
	}
}

func TestOnTap_OutsideThreshold(t *testing.T) {
	nav := New(testTour(), "living_room", 0)

	_, navigated := nav.OnTap(200) // nearest hotspot at 180, distance 20 -> navigates
	if !navigated {
		t.Fatal("tap at 200 near hotspot at 180 should navigate")
	}

	nav = New(testTour(), "kitchen", 0)
	_, navigated = nav.OnTap(200) // only hotspot at 0, distance 160
	if navigated {
		t.Error("tap at 200 with nearest hotspot at 0 must not navigate")
	}
	if nav.CurrentViewpointID() != "kitchen" {
		t.Errorf("viewpoint = %q, must be unchanged", nav.CurrentViewpointID())
	}
}

func TestOnTap_ExactThreshold(t *testing.T) {
	nav := New(testTour(), "living_room", 0)

	if _, navigated := nav.OnTap(120); !navigated { // hotspot at 90, distance exactly 30
		t.Error("tap at exactly the threshold distance should navigate")
	}
}

func TestOnTap_NearestHotspotWins(t *testing.T) {
	nav := New(testTour(), "living_room", 0)

	target, navigated := nav.OnTap(170) // 180 is 10 away, 90 is 80 away
	if !navigated {
		t.Fatal("tap should navigate")
	}
	if target != "master_bedroom" {
		t.Errorf("target = %q, want master_bedroom (nearest)", target)
	}
}

func TestOnTap_Idempotent(t *testing.T) {
	nav := New(testTour(), "living_room", 0)

	first, navigated := nav.OnTap(92)
	if !navigated || first != "kitchen" {
		t.Fatalf("first tap: target = %q, navigated = %v", first, navigated)
	}

	// The same tap again re-confirms the kitchen instead of resolving
	// against its hotspots.
	second, navigated := nav.OnTap(92)
	if navigated {
		t.Errorf("second identical tap navigated to %q, want no-op", second)
	}
	if second != "kitchen" {
		t.Errorf("second tap re-confirmed %q, want kitchen", second)
	}
	if nav.CurrentViewpointID() != "kitchen" {
		t.Errorf("viewpoint = %q, want kitchen", nav.CurrentViewpointID())
	}
}

func TestOnTap_AlignedHotspotChain(t *testing.T) {
	// Three rooms in a row, each doorway hotspot at the same yaw. A
	// double tap must stop after the first room, not march down the
	// chain.
	chain := &tour.Tour{
		ID:     "tour-chain",
		Status: tour.StatusCompleted,
		Viewpoints: []tour.Viewpoint{
			{
				ID:     "hallway",
				RoomID: "hall",
				Hotspots: []tour.Hotspot{
					{TargetViewpointID: "living_room", YawDegrees: 20, Label: "Living Room"},
				},
			},
			{
				ID:     "living_room",
				RoomID: "living",
				Hotspots: []tour.Hotspot{
					{TargetViewpointID: "kitchen", YawDegrees: 20, Label: "Kitchen"},
				},
			},
			{
				ID:       "kitchen",
				RoomID:   "kitchen",
				Hotspots: []tour.Hotspot{},
			},
		},
	}

	nav := New(chain, "hallway", 0)

	first, navigated := nav.OnTap(20)
	if !navigated || first != "living_room" {
		t.Fatalf("first tap: target = %q, navigated = %v", first, navigated)
	}

	second, navigated := nav.OnTap(20)
	if navigated {
		t.Errorf("second identical tap navigated to %q, want at most one transition", second)
	}
	if nav.CurrentViewpointID() != "living_room" {
		t.Errorf("viewpoint = %q, want living_room", nav.CurrentViewpointID())
	}

	// A drag in between re-arms the tap.
	nav.OnDrag(5)
	third, navigated := nav.OnTap(20)
	if !navigated || third != "kitchen" {
		t.Errorf("tap after drag: target = %q, navigated = %v, want kitchen", third, navigated)
	}
}

func TestOnTap_MissingTargetViewpoint(t *testing.T) {
	// A tour with gaps can carry hotspots pointing at rooms that never
	// rendered. Tapping one must leave the viewer where it is.
	gappy := &tour.Tour{
		ID:            "tour-gaps",
		Status:        tour.StatusCompletedWithGaps,
		FailedRoomIDs: []string{"kitchen"},
		Viewpoints: []tour.Viewpoint{
			{
				ID:     "living_room",
				RoomID: "living",
				Hotspots: []tour.Hotspot{
					{TargetViewpointID: "kitchen", YawDegrees: 90, Label: "Kitchen"},
				},
			},
		},
	}

	nav := New(gappy, "living_room", 0)
	nav.OnDrag(90)

	target, navigated := nav.OnTap(90)
	if navigated {
		t.Errorf("tap navigated to %q, want refusal for a missing viewpoint", target)
	}
	if nav.CurrentViewpointID() != "living_room" {
		t.Errorf("viewpoint = %q, want living_room", nav.CurrentViewpointID())
	}
	if nav.CurrentYaw() != 90 {
		t.Errorf("yaw = %v, want 90 preserved on a refused tap", nav.CurrentYaw())
	}
}

func TestOnTap_NoHotspots(t *testing.T) {
	nav := New(testTour(), "master_bedroom", 0)

	if _, navigated := nav.OnTap(0); navigated {
		t.Error("tap in a room with no hotspots must not navigate")
	}
}

func TestOnTap_UnknownViewpoint(t *testing.T) {
	nav := New(testTour(), "missing", 0)

	if _, navigated := nav.OnTap(0); navigated {
		t.Error("tap with an unknown current viewpoint must not navigate")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Visibility Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestVisibleHotspots(t *testing.T) {
	nav := New(testTour(), "living_room", 80)

	// Facing 90: the kitchen hotspot (90) is dead centre; the bedroom
	// hotspot (180) is 90 degrees off, outside the 40-degree half-FOV.
	nav.OnDrag(90)
	visible := nav.VisibleHotspots()
	if len(visible) != 1 {
		t.Fatalf("visible count = %d, want 1", len(visible))
	}
	if visible[0].TargetViewpointID != "kitchen" {
		t.Errorf("visible hotspot = %q, want kitchen", visible[0].TargetViewpointID)
	}
}

func TestVisibleHotspots_DoesNotGateNavigation(t *testing.T) {
	nav := New(testTour(), "living_room", 0)

	// Facing 0, the hotspot at 90 is out of view but still tappable.
	if len(nav.VisibleHotspots()) != 0 {
		t.Fatal("no hotspots should be visible facing 0 with default FOV")
	}
	if _, navigated := nav.OnTap(95); !navigated {
		t.Error("an invisible hotspot must still accept taps")
	}
}

func TestFOVClamping(t *testing.T) {
	wide := New(testTour(), "living_room", 500)
	wide.OnDrag(45)
	// Clamped to 90: half-FOV 45 reaches the hotspot at 90.
	if len(wide.VisibleHotspots()) != 1 {
		t.Error("FOV above the range should clamp to 90")
	}

	narrow := New(testTour(), "living_room", 10)
	narrow.OnDrag(45)
	// Clamped to 60: half-FOV 30 leaves the hotspot at 90 out of view.
	if len(narrow.VisibleHotspots()) != 0 {
		t.Error("FOV below the range should clamp to 60")
	}
}
