// Package floorplan models the spatial structure of an analysed floor plan.
//
// The analysis service returns free-form text: room names, loose type
// labels, and connections given as name fragments. This package is the
// quarantine zone for that fuzziness. The Builder validates the raw
// analysis, normalises types into a fixed vocabulary, merges synonymous
// duplicates, and resolves name fragments into exact room IDs:
//
//	RawAnalysis ──> Builder.Build ──> Graph
//	 (fuzzy text)                      (typed rooms, exact-ID edges)
//
// Everything downstream of Build assumes exact-ID joins and a read-only
// graph. Connections are directed and not guaranteed symmetric; edges
// whose endpoints cannot be resolved are dropped with a warning rather
// than invented.
package floorplan
