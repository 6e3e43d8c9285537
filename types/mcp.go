/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

// MentionInput is one mention as supplied by an MCP client.
type MentionInput struct {
	Value      string `json:"value" mcp:"Mention text as it appears in the document (required)"`
	EntityType string `json:"entityType,omitempty" mcp:"Entity type hint, e.g. Endpoint or Parameter"`
	Context    string `json:"context,omitempty" mcp:"Surrounding text around the mention"`
}

// LinkMentionsParams for linking a document's mentions in order
type LinkMentionsParams struct {
	DocumentID string         `json:"documentId,omitempty" mcp:"Document identifier for this linking session"`
	Mentions   []MentionInput `json:"mentions" mcp:"Mentions to link, in document order (required)"`
	Persist    bool           `json:"persist,omitempty" mcp:"Save outcomes to the record store (sqlite backend only)"`
}

// LinkedMention is one linking outcome in an MCP response.
type LinkedMention struct {
	Value            string  `json:"value"`
	ResolvedEntityID string  `json:"resolvedEntityId,omitempty"`
	ResolvedName     string  `json:"resolvedName,omitempty"`
	Method           string  `json:"method"`
	Confidence       float64 `json:"confidence"`
	NeedsReview      bool    `json:"needsReview,omitempty"`
	Reason           string  `json:"reason,omitempty"`
}

// LinkMentionsResponse summarizes one document session.
type LinkMentionsResponse struct {
	DocumentID  string          `json:"documentId"`
	Results     []LinkedMention `json:"results"`
	Linked      int             `json:"linked"`
	NeedsReview int             `json:"needsReview"`
}

// FindEntityParams for candidate lookup against the index
type FindEntityParams struct {
	Query      string `json:"query" mcp:"Name or alias to look up (required)"`
	EntityType string `json:"entityType,omitempty" mcp:"Restrict matches to this entity type"`
	Limit      int    `json:"limit,omitempty" mcp:"Maximum candidates to return (default 10)"`
}

// EntityCandidate is one retrieval result for find-entity.
type EntityCandidate struct {
	EntityID   string  `json:"entityId"`
	Name       string  `json:"name"`
	Type       string  `json:"type,omitempty"`
	MatchType  string  `json:"matchType"`
	Similarity float64 `json:"similarity"`
	Popularity float64 `json:"popularity"`
}

// FindEntityResponse lists candidates for a query.
type FindEntityResponse struct {
	Query      string            `json:"query"`
	Candidates []EntityCandidate `json:"candidates"`
	TotalFound int               `json:"totalFound"`
}

// AddEntityParams for creating or updating a knowledge base entity
type AddEntityParams struct {
	ID         string   `json:"id,omitempty" mcp:"Entity id to update; omit to create"`
	Name       string   `json:"name" mcp:"Canonical name (required)"`
	EntityType string   `json:"entityType,omitempty" mcp:"Entity type, e.g. Endpoint or Parameter"`
	Aliases    []string `json:"aliases,omitempty" mcp:"Alternative surface forms"`
	Related    []string `json:"related,omitempty" mcp:"Related entity ids"`
	Popularity float64  `json:"popularity,omitempty" mcp:"Popularity score in [0,1]"`
}

// EntityResponse returns a stored entity.
type EntityResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	EntityType string   `json:"entityType,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
	Popularity float64  `json:"popularity"`
}
