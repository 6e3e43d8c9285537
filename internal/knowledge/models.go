package knowledge

import "time"

// KnownEntity is one canonical entity in the knowledge store.
// The linking engine consumes these as an immutable snapshot; it never
// mutates them and references them by ID only.
type KnownEntity struct {
	ID               string         `json:"id" yaml:"id"`                                       // Unique identifier (ent-xxx)
	Name             string         `json:"name" yaml:"name"`                                   // Canonical name
	Type             string         `json:"type" yaml:"type"`                                   // Entity type (e.g. Endpoint, Parameter)
	Aliases          []string       `json:"aliases,omitempty" yaml:"aliases,omitempty"`         // Alternative surface forms
	Properties       map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`   // Free-form properties
	RelatedEntityIDs []string       `json:"relatedEntityIds,omitempty" yaml:"related,omitempty"` // Graph neighbours, by id
	PopularityScore  float64        `json:"popularityScore" yaml:"popularity"`                  // Precomputed importance in [0,1]
	UpdatedAt        time.Time      `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// EntityDelta describes an incremental change set from the store's change
// feed, consumed by the index without a full rebuild.
type EntityDelta struct {
	Added      []KnownEntity `json:"added,omitempty"`
	Updated    []KnownEntity `json:"updated,omitempty"`
	DeletedIDs []string      `json:"deletedIds,omitempty"`
}

// Empty reports whether the delta carries no changes.
func (d EntityDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.DeletedIDs) == 0
}

// LinkRecord is a persisted linking outcome. Records flagged needs_review
// form the review queue's read model; the review workflow writes its
// decision back through ApplyReview.
type LinkRecord struct {
	ID               string    `json:"id"`
	DocumentID       string    `json:"documentId"`
	MentionValue     string    `json:"mentionValue"`
	ResolvedEntityID string    `json:"resolvedEntityId,omitempty"`
	Method           string    `json:"method"`
	Confidence       float64   `json:"confidence"`
	Reason           string    `json:"reason,omitempty"`
	NeedsReview      bool      `json:"needsReview"`
	CreatedAt        time.Time `json:"createdAt"`
	ReviewedAt       time.Time `json:"reviewedAt,omitempty"`
}
