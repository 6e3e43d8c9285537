package linking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorer_NameSimilarity_UsesCanonicalName(t *testing.T) {
	s := NewScorer()
	lctx := DefaultContext(false)

	mention := EntityMention{Value: "GET /users", EntityType: "Endpoint"}
	// Matched via alias; the name factor is still computed against the
	// canonical name, which here is identical to the mention.
	candidate := LinkCandidate{
		EntityID:  "ent-users",
		Name:      "GET /users",
		Type:      "Endpoint",
		MatchType: MatchAlias,
	}

	scores := s.Score(mention, candidate, lctx)
	assert.Equal(t, 1.0, scores.NameSimilarity)
}

func TestScorer_TypeCompatibility(t *testing.T) {
	s := NewScorer()

	match := s.typeCompatibility(
		EntityMention{EntityType: "Endpoint"},
		LinkCandidate{Type: "Endpoint"},
	)
	assert.Equal(t, 1.0, match)

	mismatch := s.typeCompatibility(
		EntityMention{EntityType: "Parameter"},
		LinkCandidate{Type: "Endpoint"},
	)
	assert.Equal(t, typeMismatchScore, mismatch)

	// An absent hint cannot confirm compatibility
	noHint := s.typeCompatibility(
		EntityMention{},
		LinkCandidate{Type: "Endpoint"},
	)
	assert.Equal(t, typeMismatchScore, noHint)
}

func TestScorer_ContextRelevance(t *testing.T) {
	s := NewScorer()

	props := map[string]any{"description": "Returns the paginated list of users"}

	// Overlapping context words score above zero
	overlap := s.contextRelevance(
		EntityMention{Value: "users", SurroundingContext: "the paginated users response"},
		LinkCandidate{Properties: props},
	)
	assert.Greater(t, overlap, 0.0)
	assert.LessOrEqual(t, overlap, 1.0)

	// Disjoint vocabularies score zero
	disjoint := s.contextRelevance(
		EntityMention{Value: "users", SurroundingContext: "billing invoice currency"},
		LinkCandidate{Properties: props},
	)
	assert.Equal(t, 0.0, disjoint)
	assert.Less(t, disjoint, overlap)
}

func TestScorer_ContextRelevance_NeutralWithoutSignal(t *testing.T) {
	s := NewScorer()

	// No surrounding context
	assert.Equal(t, neutralScore, s.contextRelevance(
		EntityMention{Value: "users"},
		LinkCandidate{Properties: map[string]any{"description": "something"}},
	))
	// No candidate properties
	assert.Equal(t, neutralScore, s.contextRelevance(
		EntityMention{Value: "users", SurroundingContext: "some words here"},
		LinkCandidate{},
	))
}

func TestScorer_CoOccurrence(t *testing.T) {
	s := NewScorer()

	related := LinkCandidate{RelatedEntityIDs: []string{"ent-users"}}
	unrelated := LinkCandidate{RelatedEntityIDs: []string{"ent-orders"}}
	noRelations := LinkCandidate{}

	// No prior links in the session: neutral for everything
	fresh := DefaultContext(false)
	assert.Equal(t, neutralScore, s.coOccurrence(related, fresh))
	assert.Equal(t, neutralScore, s.coOccurrence(noRelations, fresh))

	// After a resolved link the related candidate is boosted, the
	// unrelated one penalized, and one with no relations stays neutral.
	linked := DefaultContext(false)
	linked.RecordLink(LinkedEntity{ResolvedEntityID: "ent-users", Method: MethodExactMatch})

	assert.Equal(t, 1.0, s.coOccurrence(related, linked))
	assert.Equal(t, noOverlapPenalty, s.coOccurrence(unrelated, linked))
	assert.Equal(t, neutralScore, s.coOccurrence(noRelations, linked))
}

func TestScorer_CoOccurrence_MonotonicInOverlap(t *testing.T) {
	s := NewScorer()

	lctx := DefaultContext(false)
	lctx.RecordLink(LinkedEntity{ResolvedEntityID: "ent-a", Method: MethodExactMatch})
	lctx.RecordLink(LinkedEntity{ResolvedEntityID: "ent-b", Method: MethodExactMatch})

	half := s.coOccurrence(LinkCandidate{RelatedEntityIDs: []string{"ent-a", "ent-x"}}, lctx)
	full := s.coOccurrence(LinkCandidate{RelatedEntityIDs: []string{"ent-a", "ent-b"}}, lctx)

	assert.InDelta(t, 0.75, half, 1e-9)
	assert.InDelta(t, 1.0, full, 1e-9)
	assert.Greater(t, full, half)
}

func TestScorer_Deterministic(t *testing.T) {
	s := NewScorer()
	lctx := DefaultContext(false)
	lctx.RecordLink(LinkedEntity{ResolvedEntityID: "ent-users", Method: MethodExactMatch})

	mention := EntityMention{
		Value:              "limit",
		EntityType:         "Parameter",
		SurroundingContext: "maximum number of users per page",
	}
	candidate := LinkCandidate{
		EntityID:         "ent-limit",
		Name:             "limit",
		Type:             "Parameter",
		Properties:       map[string]any{"description": "Maximum number of users per page"},
		RelatedEntityIDs: []string{"ent-users"},
		Popularity:       0.6,
		MatchType:        MatchExact,
	}

	first := s.Score(mention, candidate, lctx)
	second := s.Score(mention, candidate, lctx)
	assert.Equal(t, first, second)
}

func TestScorer_CombinedIsWeightedSum(t *testing.T) {
	scores := LinkingScores{
		NameSimilarity:    1.0,
		TypeCompatibility: 1.0,
		ContextRelevance:  0.5,
		CoOccurrence:      0.5,
		Popularity:        0.6,
	}
	got := combine(scores, DefaultWeights())

	// 1.0*0.30 + 1.0*0.20 + 0.5*0.20 + 0.5*0.15 + 0.6*0.15
	assert.InDelta(t, 0.765, got, 1e-9)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestScorer_ScoreAll_RanksDescending(t *testing.T) {
	s := NewScorer()
	lctx := DefaultContext(false)

	mention := EntityMention{Value: "user", EntityType: "Schema"}
	candidates := []LinkCandidate{
		{EntityID: "ent-weak", Name: "invoice", Type: "Term", Popularity: 0.1, MatchType: MatchFuzzy},
		{EntityID: "ent-strong", Name: "User", Type: "Schema", Popularity: 0.7, MatchType: MatchExact},
	}

	scored := s.ScoreAll(mention, candidates, lctx)
	require.Len(t, scored, 2)

	assert.Equal(t, "ent-strong", scored[0].Candidate.EntityID)
	assert.Equal(t, 1, scored[0].Rank)
	assert.Equal(t, 2, scored[1].Rank)
	assert.GreaterOrEqual(t, scored[0].Scores.Combined, scored[1].Scores.Combined)
}
