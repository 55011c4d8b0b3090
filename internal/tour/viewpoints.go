package tour

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/tourforge-core/internal/floorplan"
	"github.com/nerrad567/tourforge-core/internal/genservice"
)

// JobClient is the slice of the generation client this package needs.
// Tests inject a fake to avoid the real service.
type JobClient interface {
	Execute(ctx context.Context, kind genservice.JobKind, model string, input map[string]any) (string, error)
}

// Logger is the minimal logging interface this package requires.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// hotspotSchedule assigns yaw angles to connections in declaration
// order. Rooms with more than four connections wrap and angles repeat;
// the resulting marker overlap is accepted.
var hotspotSchedule = []float64{0, 90, 180, 270}

// Generator produces one Viewpoint per room: a panorama generation call
// plus directional hotspots derived from the room's connections.
//
// Thread Safety:
//   - Generate is safe to call concurrently; the graph is read-only and
//     each call owns its own job.
type Generator struct {
	client JobClient
	model  string
	policy genservice.Policy
	logger Logger
}

// NewGenerator creates a viewpoint generator.
//
// A nil logger is replaced with a no-op implementation.
func NewGenerator(client JobClient, model string, policy genservice.Policy, logger Logger) *Generator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Generator{
		client: client,
		model:  model,
		policy: policy,
		logger: logger,
	}
}

// Generate runs the full generation cycle for one room.
//
// Failures come back as typed errors rather than panics or partial
// viewpoints, so the orchestrator can keep the rest of the fan-out
// going. Retries happen inside, one fresh submission per attempt.
func (g *Generator) Generate(ctx context.Context, room floorplan.Room, graph *floorplan.Graph, style string) (Viewpoint, error) {
	prompt := BuildPrompt(room, graph, style)

	input := map[string]any{
		"prompt":  prompt,
		"room_id": room.ID,
		"style":   style,
	}

	imageURL, err := genservice.Retry(ctx, g.policy, func(ctx context.Context) (string, error) {
		return g.client.Execute(ctx, genservice.KindViewpoint, g.model, input)
	})
	if err != nil {
		g.logger.Warn("viewpoint generation failed",
			"room_id", room.ID,
			"error", err,
		)
		return Viewpoint{}, fmt.Errorf("viewpoint for %s: %w", room.ID, err)
	}

	return Viewpoint{
		ID:       CanonicalViewpointID(room.Type),
		RoomID:   room.ID,
		ImageURL: imageURL,
		Hotspots: Hotspots(room, graph),
	}, nil
}

// Hotspots computes the navigation markers for a room from the graph's
// connections, assigning yaw angles from the fixed rotation schedule in
// the order the connections were declared.
func Hotspots(room floorplan.Room, graph *floorplan.Graph) []Hotspot {
	hotspots := make([]Hotspot, 0, len(room.Connections))
	for i, targetID := range room.Connections {
		target, ok := graph.Room(targetID)
		if !ok {
			continue
		}
		hotspots = append(hotspots, Hotspot{
			TargetViewpointID: CanonicalViewpointID(target.Type),
			YawDegrees:        hotspotSchedule[i%len(hotspotSchedule)],
			Label:             target.Name,
		})
	}
	return hotspots
}

// BuildPrompt constructs the generation prompt for a room.
//
// The prompt is deterministic given (room, graph, style) so test
// fixtures reproduce exactly and cache keys stay stable.
func BuildPrompt(room floorplan.Room, graph *floorplan.Graph, style string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "360-degree equirectangular interior panorama of %s, a %s %s",
		room.Name, room.Size, room.Type)
	if room.Position != "" {
		fmt.Fprintf(&sb, " located at the %s", room.Position)
	}
	fmt.Fprintf(&sb, ", %s interior style", style)

	connected := graph.ConnectedRooms(room.ID)
	if len(connected) > 0 {
		names := make([]string, len(connected))
		for i, target := range connected {
			names[i] = target.Name
		}
		fmt.Fprintf(&sb, ", with visible transitions to %s", strings.Join(names, ", "))
	}

	return sb.String()
}
