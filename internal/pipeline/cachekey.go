package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/nerrad567/tourforge-core/internal/floorplan"
)

// cacheDigest derives the deterministic cache key root for a graph and
// style. Equal keys mean interchangeable generation results; the store
// behind them promises nothing beyond key equality.
//
// The digest covers the apartment type, the sorted set of room types,
// and the style token. Room names and positions are deliberately
// excluded: they vary run to run in the analysis text while describing
// the same apartment shape.
func cacheDigest(graph *floorplan.Graph, style string) string {
	types := graph.RoomTypes()
	labels := make([]string, len(types))
	for i, t := range types {
		labels[i] = string(t)
	}
	sort.Strings(labels)

	var sb strings.Builder
	sb.WriteString(strings.ToLower(strings.TrimSpace(graph.ApartmentType)))
	sb.WriteString("|")
	sb.WriteString(strings.Join(labels, ","))
	sb.WriteString("|")
	sb.WriteString(strings.ToLower(strings.TrimSpace(style)))

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// DollhouseKey is the cache key for a graph's dollhouse render.
func DollhouseKey(graph *floorplan.Graph, style string) string {
	return "dollhouse:" + cacheDigest(graph, style)
}

// ViewpointKey is the cache key for one room's panorama.
func ViewpointKey(graph *floorplan.Graph, style, roomID string) string {
	return "viewpoint:" + cacheDigest(graph, style) + ":" + roomID
}
