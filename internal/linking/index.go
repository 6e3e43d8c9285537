package linking

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/josephgoksu/LinkWing/internal/knowledge"
)

// Index answers "what entities could this string denote". Reads are
// lock-free against an immutable snapshot; Rebuild and ApplyDelta build a
// new snapshot and swap it in atomically, so readers never observe a
// partially updated structure.
type Index struct {
	snap atomic.Pointer[indexSnapshot]
	mu   sync.Mutex // serializes writers only
}

// indexSnapshot holds the normalized lookup structures. Never mutated
// after publication.
type indexSnapshot struct {
	byID    map[string]*IndexedEntity
	byName  map[string][]*IndexedEntity // normalized canonical name
	byAlias map[string][]*IndexedEntity // normalized alias
	byType  map[string][]*IndexedEntity // type bucket for fuzzy scans
	all     []*IndexedEntity
}

// FuzzyMatch is one fuzzy lookup hit with its retrieval similarity.
type FuzzyMatch struct {
	Entity     IndexedEntity
	Similarity float64
	ViaAlias   bool // Matched string was an alias, not the canonical name
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	idx := &Index{}
	idx.snap.Store(emptySnapshot())
	return idx
}

func emptySnapshot() *indexSnapshot {
	return &indexSnapshot{
		byID:    make(map[string]*IndexedEntity),
		byName:  make(map[string][]*IndexedEntity),
		byAlias: make(map[string][]*IndexedEntity),
		byType:  make(map[string][]*IndexedEntity),
	}
}

// Rebuild replaces the entire index from a store snapshot. Malformed
// entities (missing name) are skipped and logged, never fatal; the
// previous snapshot keeps serving reads until the new one is ready.
// Returns the number of entities indexed.
func (idx *Index) Rebuild(entities []knowledge.KnownEntity) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := emptySnapshot()
	for _, e := range entities {
		insertEntity(next, e)
	}
	idx.snap.Store(next)
	return len(next.byID)
}

// ApplyDelta applies an incremental change set without a full rebuild.
// The new snapshot shares nothing with the old one; writers copy, readers
// keep whichever pointer they loaded.
func (idx *Index) ApplyDelta(delta knowledge.EntityDelta) {
	if delta.Empty() {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.snap.Load()
	next := emptySnapshot()

	deleted := make(map[string]struct{}, len(delta.DeletedIDs))
	for _, id := range delta.DeletedIDs {
		deleted[id] = struct{}{}
	}
	replaced := make(map[string]knowledge.KnownEntity, len(delta.Updated))
	for _, e := range delta.Updated {
		replaced[e.ID] = e
	}

	for id, ie := range cur.byID {
		if _, gone := deleted[id]; gone {
			continue
		}
		if upd, ok := replaced[id]; ok {
			insertEntity(next, upd)
			continue
		}
		// Unchanged entries are re-linked into the fresh maps; the
		// IndexedEntity itself is immutable and safe to share.
		reinsert(next, ie)
	}
	for _, e := range delta.Added {
		if _, exists := next.byID[e.ID]; exists {
			continue
		}
		insertEntity(next, e)
	}

	idx.snap.Store(next)
}

// insertEntity normalizes and buckets one source entity.
func insertEntity(s *indexSnapshot, e knowledge.KnownEntity) {
	if e.Name == "" || e.ID == "" {
		slog.Warn("skipping malformed entity during index build", "id", e.ID, "type", e.Type)
		return
	}

	ie := &IndexedEntity{
		Entity:         e,
		NormalizedName: NormalizeName(e.Name),
	}
	for _, a := range e.Aliases {
		if na := NormalizeName(a); na != "" {
			ie.NormalizedAliases = append(ie.NormalizedAliases, na)
		}
	}
	reinsert(s, ie)
}

func reinsert(s *indexSnapshot, ie *IndexedEntity) {
	s.byID[ie.Entity.ID] = ie
	s.byName[ie.NormalizedName] = append(s.byName[ie.NormalizedName], ie)
	for _, na := range ie.NormalizedAliases {
		s.byAlias[na] = append(s.byAlias[na], ie)
	}
	s.byType[ie.Entity.Type] = append(s.byType[ie.Entity.Type], ie)
	s.all = append(s.all, ie)
}

// FindExact returns entities whose normalized canonical name equals the
// query. Absent matches return an empty slice, never an error.
func (idx *Index) FindExact(normalizedName, typeFilter string) []IndexedEntity {
	s := idx.snap.Load()
	return filterByType(s.byName[normalizedName], typeFilter)
}

// FindAlias returns entities with a normalized alias equal to the query.
func (idx *Index) FindAlias(normalizedAlias, typeFilter string) []IndexedEntity {
	s := idx.snap.Load()
	return filterByType(s.byAlias[normalizedAlias], typeFilter)
}

// GetByID returns the indexed projection of one entity, if present.
func (idx *Index) GetByID(id string) (IndexedEntity, bool) {
	s := idx.snap.Load()
	if ie, ok := s.byID[id]; ok {
		return *ie, true
	}
	return IndexedEntity{}, false
}

// FindFuzzy scans the type bucket (or the whole index when typeFilter is
// empty) for names within both the similarity floor and the edit-distance
// ceiling. Results are sorted by similarity desc, then popularity desc,
// and truncated to limit.
func (idx *Index) FindFuzzy(normalizedName, typeFilter string, minSimilarity float64, maxEditDistance, limit int) []FuzzyMatch {
	s := idx.snap.Load()

	bucket := s.all
	if typeFilter != "" {
		bucket = s.byType[typeFilter]
	}

	var matches []FuzzyMatch
	for _, ie := range bucket {
		if m, ok := bestFuzzy(ie, normalizedName, minSimilarity, maxEditDistance); ok {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Entity.Entity.PopularityScore > matches[j].Entity.Entity.PopularityScore
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// bestFuzzy evaluates one entity against the query, preferring the
// canonical name over aliases when both qualify.
func bestFuzzy(ie *IndexedEntity, query string, minSimilarity float64, maxEditDistance int) (FuzzyMatch, bool) {
	if qualifies(ie.NormalizedName, query, minSimilarity, maxEditDistance) {
		return FuzzyMatch{
			Entity:     *ie,
			Similarity: NameSimilarity(ie.NormalizedName, query),
		}, true
	}

	best := FuzzyMatch{}
	found := false
	for _, na := range ie.NormalizedAliases {
		if !qualifies(na, query, minSimilarity, maxEditDistance) {
			continue
		}
		sim := NameSimilarity(na, query)
		if !found || sim > best.Similarity {
			best = FuzzyMatch{Entity: *ie, Similarity: sim, ViaAlias: true}
			found = true
		}
	}
	return best, found
}

// qualifies enforces both fuzzy bounds.
func qualifies(candidate, query string, minSimilarity float64, maxEditDistance int) bool {
	if candidate == "" {
		return false
	}
	if NameSimilarity(candidate, query) < minSimilarity {
		return false
	}
	return EditDistance(candidate, query) <= maxEditDistance
}

// Size returns the number of indexed entities.
func (idx *Index) Size() int {
	return len(idx.snap.Load().byID)
}

// Stats reports index composition for the CLI and the API.
func (idx *Index) Stats() map[string]int {
	s := idx.snap.Load()
	aliases := 0
	for _, ies := range s.byAlias {
		aliases += len(ies)
	}
	return map[string]int{
		"entities": len(s.byID),
		"names":    len(s.byName),
		"aliases":  aliases,
		"types":    len(s.byType),
	}
}

func filterByType(entries []*IndexedEntity, typeFilter string) []IndexedEntity {
	out := make([]IndexedEntity, 0, len(entries))
	for _, ie := range entries {
		if typeFilter != "" && ie.Entity.Type != typeFilter {
			continue
		}
		out = append(out, *ie)
	}
	return out
}
