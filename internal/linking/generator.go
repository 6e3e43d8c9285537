package linking

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/josephgoksu/LinkWing/types"
)

// Default candidate generation options.
const (
	DefaultMaxCandidates   = 10
	DefaultMinSimilarity   = 0.6
	DefaultMaxEditDistance = 3
)

// Retrieval similarity assigned to non-fuzzy match types.
const (
	exactSimilarity = 1.0
	aliasSimilarity = 0.95
)

// GeneratorOptions controls candidate retrieval.
type GeneratorOptions struct {
	MaxCandidates   int
	MinSimilarity   float64
	MaxEditDistance int
	IncludeAliases  bool
	UseFuzzy        bool
	FilterByType    bool
	// Workers bounds GenerateBatch concurrency; defaults to runtime.NumCPU().
	Workers int
}

// DefaultGeneratorOptions returns the documented defaults.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		MaxCandidates:   DefaultMaxCandidates,
		MinSimilarity:   DefaultMinSimilarity,
		MaxEditDistance: DefaultMaxEditDistance,
		IncludeAliases:  true,
		UseFuzzy:        true,
		FilterByType:    true,
	}
}

// OptionsFromConfig maps application config onto generator options.
func OptionsFromConfig(cfg types.CandidatesConfig) GeneratorOptions {
	return GeneratorOptions{
		MaxCandidates:   cfg.MaxCandidates,
		MinSimilarity:   cfg.MinSimilarity,
		MaxEditDistance: cfg.MaxEditDistance,
		IncludeAliases:  cfg.IncludeAliases,
		UseFuzzy:        cfg.UseFuzzy,
		FilterByType:    cfg.FilterByType,
	}.normalized()
}

// normalized fills zero values with defaults so partially built options
// behave sanely.
func (o GeneratorOptions) normalized() GeneratorOptions {
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = DefaultMinSimilarity
	}
	if o.MaxEditDistance <= 0 {
		o.MaxEditDistance = DefaultMaxEditDistance
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// Generator retrieves candidate entities for mentions from the index.
type Generator struct {
	index *Index
}

// NewGenerator creates a generator over the given index.
func NewGenerator(index *Index) *Generator {
	return &Generator{index: index}
}

// Generate produces the deduplicated, ranked candidate set for one
// mention: exact lookups first, then aliases, then fuzzy retrieval,
// skipping entity ids already found at a higher precedence. An empty
// result is a valid outcome that downstream signals "cannot link".
func (g *Generator) Generate(mention EntityMention, opts GeneratorOptions) CandidateSet {
	opts = opts.normalized()

	query := mention.Normalized()
	typeFilter := ""
	if opts.FilterByType {
		typeFilter = mention.EntityType
	}

	seen := make(map[string]struct{})
	var candidates []LinkCandidate

	for _, ie := range g.index.FindExact(query, typeFilter) {
		if _, dup := seen[ie.Entity.ID]; dup {
			continue
		}
		seen[ie.Entity.ID] = struct{}{}
		candidates = append(candidates, newCandidate(ie, MatchExact, exactSimilarity))
	}

	if opts.IncludeAliases && len(candidates) < opts.MaxCandidates {
		for _, ie := range g.index.FindAlias(query, typeFilter) {
			if _, dup := seen[ie.Entity.ID]; dup {
				continue
			}
			seen[ie.Entity.ID] = struct{}{}
			candidates = append(candidates, newCandidate(ie, MatchAlias, aliasSimilarity))
		}
	}

	if opts.UseFuzzy && len(candidates) < opts.MaxCandidates {
		// Unbounded retrieval here; the merge step truncates. This keeps
		// TotalFound and WasTruncated accurate after dedupe.
		for _, fm := range g.index.FindFuzzy(query, typeFilter, opts.MinSimilarity, opts.MaxEditDistance, 0) {
			if _, dup := seen[fm.Entity.Entity.ID]; dup {
				continue
			}
			seen[fm.Entity.Entity.ID] = struct{}{}
			mt := MatchFuzzy
			if fm.ViaAlias {
				mt = MatchFuzzyAlias
			}
			candidates = append(candidates, newCandidate(fm.Entity, mt, fm.Similarity))
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Popularity > candidates[j].Popularity
	})

	total := len(candidates)
	truncated := total > opts.MaxCandidates
	if truncated {
		candidates = candidates[:opts.MaxCandidates]
	}

	return CandidateSet{
		Mention:      mention,
		Candidates:   candidates,
		WasTruncated: truncated,
		TotalFound:   total,
	}
}

// GenerateBatch retrieves candidates for many mentions through a fixed
// worker pool. Index reads are safe for unbounded concurrent readers; the
// pool exists to bound CPU, not to guard shared state. Respects context
// cancellation and returns whatever was completed.
func (g *Generator) GenerateBatch(ctx context.Context, mentions []EntityMention, opts GeneratorOptions) map[string]CandidateSet {
	opts = opts.normalized()

	results := make(map[string]CandidateSet, len(mentions))
	if len(mentions) == 0 {
		return results
	}

	jobs := make(chan EntityMention)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := opts.Workers
	if workers > len(mentions) {
		workers = len(mentions)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				cs := g.Generate(m, opts)
				mu.Lock()
				results[m.ID] = cs
				mu.Unlock()
			}
		}()
	}

	for _, m := range mentions {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results
		case jobs <- m:
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

func newCandidate(ie IndexedEntity, mt MatchType, similarity float64) LinkCandidate {
	return LinkCandidate{
		EntityID:         ie.Entity.ID,
		Name:             ie.Entity.Name,
		Type:             ie.Entity.Type,
		Properties:       ie.Entity.Properties,
		RelatedEntityIDs: ie.Entity.RelatedEntityIDs,
		Popularity:       ie.Entity.PopularityScore,
		MatchType:        mt,
		Similarity:       similarity,
	}
}
