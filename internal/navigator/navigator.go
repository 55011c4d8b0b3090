// Package navigator is the client-side navigation state machine for an
// assembled tour.
//
// State is simply "viewing viewpoint V at yaw Y". Drags rotate the view,
// taps near a hotspot navigate to its target viewpoint. The navigator
// performs no I/O and never blocks; it is meant to run synchronously on
// the interaction path.
package navigator

import (
	"math"

	"github.com/nerrad567/tourforge-core/internal/tour"
)

const (
	// tapThreshold is the maximum circular distance, in degrees, between
	// a tap and a hotspot for the tap to navigate.
	tapThreshold = 30.0

	// defaultFOV is the rendering field of view when the caller does not
	// choose one. Viewer variants run between minFOV and maxFOV.
	defaultFOV = 75.0
	minFOV     = 60.0
	maxFOV     = 90.0

	// homeYaw is the orientation a freshly entered room faces.
	homeYaw = 0.0
)

// ViewState is the current position within a tour. It is owned and
// mutated only by the Navigator; callers read it via CurrentViewpointID
// and CurrentYaw.
type ViewState struct {
	currentViewpointID string
	currentYaw         float64
}

// Navigator drives a ViewState over a read-only Tour.
//
// Not safe for concurrent use; one Navigator per viewer session.
type Navigator struct {
	tour  *tour.Tour
	state ViewState
	fov   float64

	// lastNavTapYaw is the tap yaw that caused the most recent
	// navigation. Remembered until the next drag so a repeated tap at
	// the same spot does not chain through aligned hotspots.
	lastNavTapYaw float64
	tapNavigated  bool
}

// New creates a navigator positioned at the given starting viewpoint,
// facing the room default. The field of view is clamped to the supported
// viewer range; pass 0 for the default.
func New(t *tour.Tour, startViewpointID string, fov float64) *Navigator {
	if fov == 0 {
		fov = defaultFOV
	}
	fov = math.Max(minFOV, math.Min(maxFOV, fov))

	return &Navigator{
		tour: t,
		state: ViewState{
			currentViewpointID: startViewpointID,
			currentYaw:         homeYaw,
		},
		fov: fov,
	}
}

// CurrentViewpointID returns the viewpoint being viewed.
func (n *Navigator) CurrentViewpointID() string {
	return n.state.currentViewpointID
}

// CurrentYaw returns the current view orientation in [0,360).
func (n *Navigator) CurrentYaw() float64 {
	return n.state.currentYaw
}

// OnDrag rotates the view by deltaYaw degrees. The viewpoint never
// changes on a drag. Dragging also forgets the last navigating tap, so
// the next tap resolves fresh wherever it lands.
func (n *Navigator) OnDrag(deltaYaw float64) {
	n.state.currentYaw = Normalize(n.state.currentYaw + deltaYaw)
	n.tapNavigated = false
}

// OnTap resolves a tap at the given yaw against the current viewpoint's
// hotspots. The nearest hotspot by circular distance wins, provided it
// is within the acceptance threshold; the view then moves to its target
// and the yaw resets to the room default.
//
// Returns the target viewpoint ID and true when a navigation happened.
// Tapping the same spot twice with no intervening drag performs at most
// one transition: the repeated tap re-confirms the viewpoint already
// reached instead of chaining through the new room's hotspots, which
// may well sit at the same yaw. A hotspot whose target viewpoint is
// absent from the tour, as happens in a tour with gaps, refuses the
// transition and leaves the state untouched.
func (n *Navigator) OnTap(tapYaw float64) (string, bool) {
	vp, ok := n.tour.Viewpoint(n.state.currentViewpointID)
	if !ok {
		return "", false
	}

	tapYaw = Normalize(tapYaw)

	if n.tapNavigated && tapYaw == n.lastNavTapYaw {
		return n.state.currentViewpointID, false
	}

	bestDistance := math.MaxFloat64
	var best *tour.Hotspot
	for i := range vp.Hotspots {
		d := CircularDistance(tapYaw, vp.Hotspots[i].YawDegrees)
		if d < bestDistance {
			bestDistance = d
			best = &vp.Hotspots[i]
		}
	}

	if best == nil || bestDistance > tapThreshold {
		return "", false
	}

	if _, exists := n.tour.Viewpoint(best.TargetViewpointID); !exists {
		return "", false
	}

	n.state.currentViewpointID = best.TargetViewpointID
	n.state.currentYaw = homeYaw
	n.lastNavTapYaw = tapYaw
	n.tapNavigated = true
	return best.TargetViewpointID, true
}

// VisibleHotspots returns the hotspots of the current viewpoint that
// fall inside the field-of-view window centred on the current yaw. A
// hotspot is visible when its circular distance from the yaw is at most
// half the field of view, which is the same as lying within the full
// fov-degree window; the acceptance cone spans the field of view, not
// twice it. This governs rendering only; navigation eligibility is
// decided solely by OnTap.
func (n *Navigator) VisibleHotspots() []tour.Hotspot {
	vp, ok := n.tour.Viewpoint(n.state.currentViewpointID)
	if !ok {
		return nil
	}

	half := n.fov / 2
	visible := make([]tour.Hotspot, 0, len(vp.Hotspots))
	for _, hs := range vp.Hotspots {
		if CircularDistance(n.state.currentYaw, hs.YawDegrees) <= half {
			visible = append(visible, hs)
		}
	}
	return visible
}

// Normalize wraps a yaw angle into [0,360).
func Normalize(yaw float64) float64 {
	yaw = math.Mod(yaw, 360)
	if yaw < 0 {
		yaw += 360
	}
	return yaw
}

// CircularDistance returns the shortest angular distance between two
// yaw values, in [0,180].
func CircularDistance(a, b float64) float64 {
	d := math.Abs(Normalize(a) - Normalize(b))
	return math.Min(d, 360-d)
}
