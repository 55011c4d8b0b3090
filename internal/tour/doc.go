// Package tour builds the navigable output of a pipeline run.
//
// A Tour is a set of Viewpoints, one per successfully generated room,
// each carrying hotspots that link it to adjacent rooms. The Generator
// turns a room plus the floor-plan graph into a deterministic prompt,
// runs it through the generation service, and attaches hotspots placed
// on a fixed rotation schedule.
//
// Viewpoint identity is canonical per room type. The trade-off is
// documented on CanonicalViewpointID: same-typed rooms share a
// viewpoint ID and therefore a navigation target.
package tour
