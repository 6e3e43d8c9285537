package linking

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/josephgoksu/LinkWing/types"
)

// weightTolerance is the allowed deviation of the weight sum from 1.0.
const weightTolerance = 1e-3

// Default decision thresholds.
const (
	DefaultMinAcceptConfidence       = 0.80
	DefaultExternalFallbackThreshold = 0.50
	DefaultReviewLowerBound          = 0.30
	DefaultReviewUpperBound          = 0.70
	DefaultAmbiguityGap              = 0.15
	DefaultAuditCandidates           = 5
)

var validate = validator.New()

// Weights are the five scoring factor weights. They must sum to 1.0
// within weightTolerance.
type Weights struct {
	NameSimilarity    float64 `validate:"min=0,max=1"`
	TypeCompatibility float64 `validate:"min=0,max=1"`
	ContextRelevance  float64 `validate:"min=0,max=1"`
	CoOccurrence      float64 `validate:"min=0,max=1"`
	Popularity        float64 `validate:"min=0,max=1"`
}

// Sum returns the total weight mass.
func (w Weights) Sum() float64 {
	return w.NameSimilarity + w.TypeCompatibility + w.ContextRelevance + w.CoOccurrence + w.Popularity
}

// DefaultWeights returns the standard weight distribution.
func DefaultWeights() Weights {
	return Weights{
		NameSimilarity:    0.30,
		TypeCompatibility: 0.20,
		ContextRelevance:  0.20,
		CoOccurrence:      0.15,
		Popularity:        0.15,
	}
}

// Thresholds are the confidence bands driving the decision engine.
type Thresholds struct {
	MinAcceptConfidence       float64 `validate:"min=0,max=1"`
	ExternalFallbackThreshold float64 `validate:"min=0,max=1"`
	ReviewLowerBound          float64 `validate:"min=0,max=1"`
	ReviewUpperBound          float64 `validate:"min=0,max=1"`
	AmbiguityGap              float64 `validate:"min=0,max=1"`
}

// DefaultThresholds returns the documented default bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAcceptConfidence:       DefaultMinAcceptConfidence,
		ExternalFallbackThreshold: DefaultExternalFallbackThreshold,
		ReviewLowerBound:          DefaultReviewLowerBound,
		ReviewUpperBound:          DefaultReviewUpperBound,
		AmbiguityGap:              DefaultAmbiguityGap,
	}
}

// Context is the immutable per-session configuration plus the ordered
// list of results already produced earlier in the same session, which
// feeds co-occurrence scoring of subsequent mentions. It is not safe for
// concurrent use; a session owns exactly one Context.
type Context struct {
	Weights                Weights
	Thresholds             Thresholds
	EnableExternalFallback bool
	// AuditCandidates is how many top scored candidates each result retains.
	AuditCandidates int

	// AlreadyLinked accumulates in mention order within one document.
	AlreadyLinked []LinkedEntity
	resolvedIDs   map[string]struct{}
}

// NewContext validates the configuration and builds a fresh session
// context. Invalid weights or thresholds are a configuration error,
// rejected before any scoring occurs.
func NewContext(w Weights, t Thresholds, enableFallback bool, auditCandidates int) (*Context, error) {
	if err := validate.Struct(w); err != nil {
		return nil, fmt.Errorf("%w: weights out of range: %v", types.ErrConfiguration, err)
	}
	if err := validate.Struct(t); err != nil {
		return nil, fmt.Errorf("%w: thresholds out of range: %v", types.ErrConfiguration, err)
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return nil, fmt.Errorf("%w: weights must sum to 1.0, got %.4f", types.ErrConfiguration, sum)
	}
	if t.ReviewLowerBound > t.ReviewUpperBound {
		return nil, fmt.Errorf("%w: review lower bound %.2f exceeds upper bound %.2f",
			types.ErrConfiguration, t.ReviewLowerBound, t.ReviewUpperBound)
	}
	if auditCandidates <= 0 {
		auditCandidates = DefaultAuditCandidates
	}

	return &Context{
		Weights:                w,
		Thresholds:             t,
		EnableExternalFallback: enableFallback,
		AuditCandidates:        auditCandidates,
		resolvedIDs:            make(map[string]struct{}),
	}, nil
}

// DefaultContext builds a context with default weights and thresholds.
func DefaultContext(enableFallback bool) *Context {
	ctx, err := NewContext(DefaultWeights(), DefaultThresholds(), enableFallback, DefaultAuditCandidates)
	if err != nil {
		// Defaults are statically valid.
		panic(err)
	}
	return ctx
}

// ContextFromConfig builds a session context from application config.
func ContextFromConfig(cfg types.LinkingConfig) (*Context, error) {
	w := Weights{
		NameSimilarity:    cfg.Weights.NameSimilarity,
		TypeCompatibility: cfg.Weights.TypeCompatibility,
		ContextRelevance:  cfg.Weights.ContextRelevance,
		CoOccurrence:      cfg.Weights.CoOccurrence,
		Popularity:        cfg.Weights.Popularity,
	}
	t := Thresholds{
		MinAcceptConfidence:       cfg.Thresholds.MinAcceptConfidence,
		ExternalFallbackThreshold: cfg.Thresholds.ExternalFallbackThreshold,
		ReviewLowerBound:          cfg.Thresholds.ReviewLowerBound,
		ReviewUpperBound:          cfg.Thresholds.ReviewUpperBound,
		AmbiguityGap:              cfg.Thresholds.AmbiguityGap,
	}
	return NewContext(w, t, cfg.EnableExternalFallback, cfg.AuditCandidates)
}

// RecordLink appends a result to the accumulated session state. Only
// resolved entities contribute to co-occurrence.
func (c *Context) RecordLink(le LinkedEntity) {
	c.AlreadyLinked = append(c.AlreadyLinked, le)
	if le.Resolved() && le.ResolvedEntityID != "" {
		c.resolvedIDs[le.ResolvedEntityID] = struct{}{}
	}
}

// ResolvedIDs returns the set of entity ids linked so far in the session.
func (c *Context) ResolvedIDs() map[string]struct{} {
	return c.resolvedIDs
}

// HasPriorLinks reports whether any earlier mention in the session was
// resolved to an entity.
func (c *Context) HasPriorLinks() bool {
	return len(c.resolvedIDs) > 0
}
