package database

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Graph parameters for 4096-dim signatures.
const (
	HNSWMaxNeighbors = 16  // M
	HNSWEfSearch     = 100 // candidate pool size

	// HNSWSearchMultiplier over-fetches candidates so that enough distinct
	// identities remain after collapsing signatures per student.
	HNSWSearchMultiplier = 10
)

// Neighbor is an enrolled identity close to a query signature.
type Neighbor struct {
	StudentID  string
	Name       string
	RollNumber string
	Position   int     // index of the closest enrollment signature
	Similarity float64 // exact cosine similarity to that signature
}

type indexedIdentity struct {
	name       string
	rollNumber string
}

// RosterIndex is an in-memory HNSW graph over enrollment signatures. It backs
// diagnostics (nearest identities, near-duplicate enrollment reports); the
// matcher itself always scans the full roster.
type RosterIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[string]
	identities map[string]indexedIdentity
}

// NewRosterIndex creates a new empty index.
func NewRosterIndex() *RosterIndex {
	return &RosterIndex{
		identities: make(map[string]indexedIdentity),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return g
}

func nodeKey(studentID string, position int) string {
	return studentID + "#" + strconv.Itoa(position)
}

func parseNodeKey(key string) (string, int, error) {
	i := strings.LastIndexByte(key, '#')
	if i < 0 {
		return "", 0, fmt.Errorf("node key %q: missing position", key)
	}
	pos, err := strconv.Atoi(key[i+1:])
	if err != nil || pos < 0 {
		return "", 0, fmt.Errorf("node key %q: bad position", key)
	}
	return key[:i], pos, nil
}

// Build replaces the index contents with the given identities.
func (x *RosterIndex) Build(identities []Identity) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.graph = nil
	x.identities = make(map[string]indexedIdentity, len(identities))
	for i := range identities {
		x.addLocked(&identities[i])
	}
}

// Add indexes a single identity. Zero and wrongly sized signatures are skipped.
func (x *RosterIndex) Add(identity *Identity) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.addLocked(identity)
}

func (x *RosterIndex) addLocked(identity *Identity) {
	added := false
	for pos, sig := range identity.Signatures {
		if len(sig) != constants.SignatureDim || sig.IsZero() {
			continue
		}
		if x.graph == nil {
			x.graph = newGraph()
		}
		x.graph.Add(hnsw.MakeNode(nodeKey(identity.ID, pos), []float32(sig)))
		added = true
	}
	if added {
		x.identities[identity.ID] = indexedIdentity{name: identity.Name, rollNumber: identity.RollNumber}
	}
}

// Len returns the number of indexed signatures.
func (x *RosterIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.graph == nil {
		return 0
	}
	return x.graph.Len()
}

// IdentityCount returns the number of indexed identities.
func (x *RosterIndex) IdentityCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.identities)
}

// Nearest returns up to k distinct identities closest to sig, best first.
// excludeID skips one identity (used when checking a fresh enrollment
// against everyone else).
func (x *RosterIndex) Nearest(sig vision.Signature, k int, excludeID string) []Neighbor {
	if k <= 0 || len(sig) != constants.SignatureDim || sig.IsZero() {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || x.graph.Len() == 0 {
		return nil
	}

	nodes := x.graph.Search([]float32(sig), k*HNSWSearchMultiplier)

	best := make(map[string]Neighbor)
	for _, n := range nodes {
		studentID, pos, err := parseNodeKey(n.Key)
		if err != nil || studentID == excludeID {
			continue
		}
		sim := vision.Similarity(sig, vision.Signature(n.Value))
		if cur, ok := best[studentID]; ok && cur.Similarity >= sim {
			continue
		}
		meta := x.identities[studentID]
		best[studentID] = Neighbor{
			StudentID:  studentID,
			Name:       meta.name,
			RollNumber: meta.rollNumber,
			Position:   pos,
			Similarity: sim,
		}
	}

	out := make([]Neighbor, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].StudentID < out[j].StudentID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
