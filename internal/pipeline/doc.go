// Package pipeline orchestrates tour generation from a floor-plan image.
//
// A run moves through fixed stages:
//
//	analysis ──► graph ──► dollhouse ──► viewpoints ──► assemble
//
// Analysis and graph building are fatal on failure. The dollhouse render
// degrades gracefully. The viewpoint stage fans out per room, waits for
// every room to settle, and assembles whatever succeeded into a tour
// marked completed or completed-with-gaps.
//
// Each run is tracked as an Execution row so progress survives restarts
// and can be inspected over the API. State lives in those per-run
// records; the engine itself holds no mutable counters.
package pipeline
