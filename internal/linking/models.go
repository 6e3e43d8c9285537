package linking

import (
	"github.com/josephgoksu/LinkWing/internal/knowledge"
)

// MatchType describes how a candidate was retrieved from the index.
// The set is closed; every consumer switches exhaustively over it.
type MatchType string

const (
	MatchExact      MatchType = "exact"       // Normalized name equality
	MatchAlias      MatchType = "alias"       // Normalized alias equality
	MatchFuzzy      MatchType = "fuzzy"       // Approximate match on the canonical name
	MatchFuzzyAlias MatchType = "fuzzy_alias" // Approximate match on an alias
	MatchPartial    MatchType = "partial"     // Reserved: substring/token match
	MatchPhonetic   MatchType = "phonetic"    // Reserved: sound-alike match
)

// Method is the resolution method recorded on a LinkedEntity.
type Method string

const (
	MethodExactMatch        Method = "exact_match"
	MethodScoredRanking     Method = "scored_ranking"
	MethodLLMDisambiguation Method = "llm_disambiguation"
	// MethodHumanReview is applied only by the review workflow's write
	// path; the decision engine never emits it directly.
	MethodHumanReview Method = "human_review"
	MethodUnlinked    Method = "unlinked"
)

// Span is a character range in the source document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// EntityMention is a span of text believed to refer to some entity,
// produced by the upstream recognizer. Immutable once created; the engine
// trusts span and type hint as given.
type EntityMention struct {
	ID                 string `json:"id"`
	Value              string `json:"value"`
	NormalizedValue    string `json:"normalizedValue,omitempty"`
	EntityType         string `json:"entityType,omitempty"` // Type hint, may be empty
	Span               Span   `json:"span"`
	SurroundingContext string `json:"surroundingContext,omitempty"`
	DocumentID         string `json:"documentId"`
}

// Normalized returns the mention's normalized value, deriving it from the
// raw value when the recognizer did not supply one.
func (m EntityMention) Normalized() string {
	if m.NormalizedValue != "" {
		return m.NormalizedValue
	}
	return NormalizeName(m.Value)
}

// IndexedEntity is the index-local projection of a KnownEntity. Built at
// rebuild/delta time, never mutated by readers.
type IndexedEntity struct {
	Entity            knowledge.KnownEntity
	NormalizedName    string
	NormalizedAliases []string
}

// LinkCandidate is an entity plausibly denoted by a mention, prior to
// composite scoring.
type LinkCandidate struct {
	EntityID         string         `json:"entityId"`
	Name             string         `json:"name"`
	Type             string         `json:"type"`
	Properties       map[string]any `json:"properties,omitempty"`
	RelatedEntityIDs []string       `json:"relatedEntityIds,omitempty"`
	Popularity       float64        `json:"popularity"`
	MatchType        MatchType      `json:"matchType"`
	Similarity       float64        `json:"similarity"` // Raw retrieval similarity in [0,1]
}

// CandidateSet is the deduplicated, ranked retrieval result for one mention.
// Candidates are ordered by similarity desc, then popularity desc; no
// entity id appears twice; len(Candidates) <= the configured cap.
type CandidateSet struct {
	Mention      EntityMention   `json:"mention"`
	Candidates   []LinkCandidate `json:"candidates"`
	WasTruncated bool            `json:"wasTruncated"`
	TotalFound   int             `json:"totalFound"`
}

// Empty reports whether retrieval produced no candidates. This is a
// normal outcome, not an error; downstream it yields Unlinked.
func (cs CandidateSet) Empty() bool {
	return len(cs.Candidates) == 0
}

// LinkingScores holds the five per-factor sub-scores, each in [0,1], and
// the weighted combination.
type LinkingScores struct {
	NameSimilarity    float64 `json:"nameSimilarity"`
	TypeCompatibility float64 `json:"typeCompatibility"`
	ContextRelevance  float64 `json:"contextRelevance"`
	CoOccurrence      float64 `json:"coOccurrence"`
	Popularity        float64 `json:"popularity"`
	Combined          float64 `json:"combined"`
}

// ScoredCandidate is a candidate with its composite scores and 1-based
// rank (rank 1 = highest combined score).
type ScoredCandidate struct {
	Candidate LinkCandidate `json:"candidate"`
	Scores    LinkingScores `json:"scores"`
	Rank      int           `json:"rank"`
}

// LinkedEntity is the final outcome for one mention.
// Invariant: ResolvedEntityID is non-empty iff Method != MethodUnlinked.
type LinkedEntity struct {
	Mention          EntityMention          `json:"mention"`
	ResolvedEntityID string                 `json:"resolvedEntityId,omitempty"`
	ResolvedEntity   *knowledge.KnownEntity `json:"resolvedEntity,omitempty"`
	Confidence       float64                `json:"confidence"`
	Scores           *LinkingScores         `json:"scores,omitempty"`
	TopCandidates    []ScoredCandidate      `json:"topCandidates,omitempty"` // Retained for audit
	Method           Method                 `json:"method"`
	NeedsReview      bool                   `json:"needsReview"`
	Reason           string                 `json:"reason,omitempty"`
}

// Resolved reports whether the mention was linked to an entity.
func (le LinkedEntity) Resolved() bool {
	return le.Method != MethodUnlinked
}

// SessionStats summarizes one document session for the batch surfaces.
type SessionStats struct {
	Total             int            `json:"total"`
	ByMethod          map[Method]int `json:"byMethod"`
	NeedsReview       int            `json:"needsReview"`
	AverageConfidence float64        `json:"averageConfidence"`
}
