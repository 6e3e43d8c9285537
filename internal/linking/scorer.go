package linking

import (
	"fmt"
	"sort"
)

// Scoring constants. Factors return a neutral 0.5 where a signal is
// unavailable rather than failing or zeroing out the candidate.
const (
	typeMismatchScore = 0.3 // Low, not zero: type-ambiguous mentions stay viable
	neutralScore      = 0.5
	noOverlapPenalty  = 0.3
)

// Scorer computes the five independent per-candidate signals and combines
// them with the session weights. It is pure: identical inputs always
// yield identical scores.
type Scorer struct{}

// NewScorer creates a scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes all factors for one candidate.
func (s *Scorer) Score(mention EntityMention, candidate LinkCandidate, ctx *Context) LinkingScores {
	scores := LinkingScores{
		NameSimilarity:    s.nameSimilarity(mention, candidate),
		TypeCompatibility: s.typeCompatibility(mention, candidate),
		ContextRelevance:  s.contextRelevance(mention, candidate),
		CoOccurrence:      s.coOccurrence(candidate, ctx),
		Popularity:        candidate.Popularity,
	}
	scores.Combined = combine(scores, ctx.Weights)
	return scores
}

// ScoreAll scores and ranks a full candidate set, descending by combined
// score. Ranks are 1-based.
func (s *Scorer) ScoreAll(mention EntityMention, candidates []LinkCandidate, ctx *Context) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredCandidate{
			Candidate: c,
			Scores:    s.Score(mention, c, ctx),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Scores.Combined > scored[j].Scores.Combined
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

// nameSimilarity recomputes similarity against the candidate's canonical
// name. Generation may have matched via an alias, so the retrieval
// similarity is not reused here.
func (s *Scorer) nameSimilarity(mention EntityMention, candidate LinkCandidate) float64 {
	return NameSimilarity(mention.Normalized(), NormalizeName(candidate.Name))
}

// typeCompatibility is 1.0 on a type hint match, else a fixed low score.
func (s *Scorer) typeCompatibility(mention EntityMention, candidate LinkCandidate) float64 {
	if mention.EntityType != "" && mention.EntityType == candidate.Type {
		return 1.0
	}
	return typeMismatchScore
}

// contextRelevance is the Jaccard similarity between significant words in
// the mention's surrounding context and significant words drawn from the
// candidate's property keys and values. Neutral when either side has no
// signal; never fails.
func (s *Scorer) contextRelevance(mention EntityMention, candidate LinkCandidate) float64 {
	if mention.SurroundingContext == "" || len(candidate.Properties) == 0 {
		return neutralScore
	}

	mentionWords := SignificantWords(mention.SurroundingContext)

	candidateWords := make(map[string]struct{})
	for k, v := range candidate.Properties {
		for w := range SignificantWords(k) {
			candidateWords[w] = struct{}{}
		}
		for w := range SignificantWords(fmt.Sprintf("%v", v)) {
			candidateWords[w] = struct{}{}
		}
	}
	if len(mentionWords) == 0 || len(candidateWords) == 0 {
		return neutralScore
	}

	return jaccard(mentionWords, candidateWords)
}

// coOccurrence rewards candidates related to entities already linked in
// the session. The overlap fraction is rescaled into [0.5, 1.0] so the
// factor never drags a score below neutral when evidence agrees; no prior
// links (or no relations to test) is neutral, and relations that all miss
// the session's links are a slight penalty.
func (s *Scorer) coOccurrence(candidate LinkCandidate, ctx *Context) float64 {
	if !ctx.HasPriorLinks() {
		return neutralScore
	}
	if len(candidate.RelatedEntityIDs) == 0 {
		return neutralScore
	}

	resolved := ctx.ResolvedIDs()
	overlap := 0
	for _, id := range candidate.RelatedEntityIDs {
		if _, ok := resolved[id]; ok {
			overlap++
		}
	}
	if overlap == 0 {
		return noOverlapPenalty
	}

	fraction := float64(overlap) / float64(len(candidate.RelatedEntityIDs))
	return 0.5 + fraction*0.5
}

// combine applies the validated session weights.
func combine(s LinkingScores, w Weights) float64 {
	return s.NameSimilarity*w.NameSimilarity +
		s.TypeCompatibility*w.TypeCompatibility +
		s.ContextRelevance*w.ContextRelevance +
		s.CoOccurrence*w.CoOccurrence +
		s.Popularity*w.Popularity
}
