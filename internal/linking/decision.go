package linking

import (
	"context"
	"log/slog"
	"time"
)

// Reasons recorded on terminal outcomes.
const (
	reasonNoCandidates   = "no candidates found"
	reasonBelowThreshold = "best score below fallback threshold"
	reasonCancelled      = "session cancelled before linking"
)

// DefaultDisambiguationTimeout bounds the external model call.
const DefaultDisambiguationTimeout = 20 * time.Second

// DisambiguationRequest carries one ambiguous mention and its top scored
// candidates to the external disambiguator.
type DisambiguationRequest struct {
	Mention       EntityMention
	Candidates    []ScoredCandidate
	ContextWindow string
}

// DisambiguationResult is the adapter's answer: a candidate index or none.
type DisambiguationResult struct {
	// SelectedIndex is an index into Candidates; -1 means no selection.
	SelectedIndex  int
	ConfidenceBand string // high, medium, low
	Reasoning      string
}

// NoSelection reports whether the disambiguator declined to pick.
func (r DisambiguationResult) NoSelection() bool {
	return r.SelectedIndex < 0
}

// Disambiguator is the narrow adapter boundary to the external model.
// The engine treats it as a black box returning a selection or none;
// errors and malformed responses are downgraded to "no selection".
type Disambiguator interface {
	Disambiguate(ctx context.Context, req DisambiguationRequest) (DisambiguationResult, error)
}

// Engine applies the confidence-banded decision procedure to scored
// candidates and produces the final LinkedEntity outcome per mention.
type Engine struct {
	scorer        *Scorer
	disambiguator Disambiguator // nil disables the external fallback
	timeout       time.Duration
}

// NewEngine creates a decision engine. A nil disambiguator disables the
// external fallback step regardless of the session flag.
func NewEngine(scorer *Scorer, d Disambiguator, timeout time.Duration) *Engine {
	if scorer == nil {
		scorer = NewScorer()
	}
	if timeout <= 0 {
		timeout = DefaultDisambiguationTimeout
	}
	return &Engine{scorer: scorer, disambiguator: d, timeout: timeout}
}

// Link decides one mention. Exactly one terminal outcome is produced;
// ResolvedEntityID is set iff Method != MethodUnlinked.
func (e *Engine) Link(ctx context.Context, cs CandidateSet, lctx *Context) LinkedEntity {
	mention := cs.Mention

	// Step 1: nothing to rank.
	if cs.Empty() {
		return LinkedEntity{
			Mention: mention,
			Method:  MethodUnlinked,
			Reason:  reasonNoCandidates,
		}
	}

	// Single unambiguous exact match short-circuits with full confidence.
	// Multiple exact hits are genuinely ambiguous and go through scoring.
	if exact, ok := soleExactCandidate(cs); ok {
		scored := e.scorer.ScoreAll(mention, cs.Candidates, lctx)
		le := LinkedEntity{
			Mention:          mention,
			ResolvedEntityID: exact.EntityID,
			Confidence:       1.0,
			Scores:           scoresFor(scored, exact.EntityID),
			TopCandidates:    topN(scored, lctx.AuditCandidates),
			Method:           MethodExactMatch,
			Reason:           "exact name and type match",
		}
		le.NeedsReview = inReviewBand(le.Confidence, lctx.Thresholds)
		return le
	}

	// Step 2: score and rank everything.
	scored := e.scorer.ScoreAll(mention, cs.Candidates, lctx)
	best := scored[0]
	top := topN(scored, lctx.AuditCandidates)

	// Step 3: confident acceptance.
	if best.Scores.Combined >= lctx.Thresholds.MinAcceptConfidence {
		method := MethodScoredRanking
		if best.Candidate.MatchType == MatchExact && best.Scores.Combined >= 1.0-weightTolerance {
			method = MethodExactMatch
		}
		return e.accept(mention, best, top, method, "best candidate above accept threshold", lctx)
	}

	// Step 4: ambiguous mid-band results may defer to the external model.
	gap := 1.0
	if len(scored) > 1 {
		gap = best.Scores.Combined - scored[1].Scores.Combined
	}
	if lctx.EnableExternalFallback && e.disambiguator != nil &&
		best.Scores.Combined >= lctx.Thresholds.ExternalFallbackThreshold &&
		gap < lctx.Thresholds.AmbiguityGap {
		if selected, ok := e.disambiguate(ctx, mention, top); ok {
			return e.accept(mention, selected, top, MethodLLMDisambiguation, "selected by external disambiguator", lctx)
		}
		// No selection: fall through to the threshold bands below.
	}

	// Step 5: acceptable but uncertain.
	if best.Scores.Combined >= lctx.Thresholds.ExternalFallbackThreshold {
		return e.accept(mention, best, top, MethodScoredRanking, "accepted below confidence threshold", lctx)
	}

	// Step 6: nothing credible.
	return LinkedEntity{
		Mention:       mention,
		Method:        MethodUnlinked,
		Reason:        reasonBelowThreshold,
		TopCandidates: top,
	}
}

// disambiguate invokes the external adapter with a bounded timeout. Any
// error or malformed selection is treated as "no selection"; the failure
// is never fatal to the session.
func (e *Engine) disambiguate(ctx context.Context, mention EntityMention, top []ScoredCandidate) (ScoredCandidate, bool) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.disambiguator.Disambiguate(callCtx, DisambiguationRequest{
		Mention:       mention,
		Candidates:    top,
		ContextWindow: mention.SurroundingContext,
	})
	if err != nil {
		slog.Warn("external disambiguation failed, falling back to scored ranking",
			"mention", mention.Value, "err", err)
		return ScoredCandidate{}, false
	}
	if result.NoSelection() || result.SelectedIndex >= len(top) {
		return ScoredCandidate{}, false
	}
	return top[result.SelectedIndex], true
}

// accept builds a resolved outcome and applies the review band.
func (e *Engine) accept(mention EntityMention, chosen ScoredCandidate, top []ScoredCandidate, method Method, reason string, lctx *Context) LinkedEntity {
	scores := chosen.Scores
	le := LinkedEntity{
		Mention:          mention,
		ResolvedEntityID: chosen.Candidate.EntityID,
		Confidence:       scores.Combined,
		Scores:           &scores,
		TopCandidates:    top,
		Method:           method,
		Reason:           reason,
	}
	le.NeedsReview = inReviewBand(le.Confidence, lctx.Thresholds)
	return le
}

// inReviewBand applies the band test to any resolved outcome, including
// LLM-confirmed links. The band is defined purely on confidence,
// independent of method.
func inReviewBand(confidence float64, t Thresholds) bool {
	return confidence >= t.ReviewLowerBound && confidence < t.ReviewUpperBound
}

// soleExactCandidate returns the exact-match candidate when exactly one
// exists in the set.
func soleExactCandidate(cs CandidateSet) (LinkCandidate, bool) {
	var found LinkCandidate
	count := 0
	for _, c := range cs.Candidates {
		if c.MatchType == MatchExact {
			found = c
			count++
		}
	}
	return found, count == 1
}

// scoresFor finds the audit scores of the chosen entity.
func scoresFor(scored []ScoredCandidate, entityID string) *LinkingScores {
	for _, sc := range scored {
		if sc.Candidate.EntityID == entityID {
			s := sc.Scores
			return &s
		}
	}
	return nil
}

// topN copies the first n scored candidates for audit retention.
func topN(scored []ScoredCandidate, n int) []ScoredCandidate {
	if n <= 0 || n > len(scored) {
		n = len(scored)
	}
	out := make([]ScoredCandidate, n)
	copy(out, scored[:n])
	return out
}
