package server

import "github.com/josephgoksu/LinkWing/internal/linking"

// LinkRequest is the payload for POST /api/link
type LinkRequest struct {
	DocumentID string                  `json:"documentId"`
	Mentions   []linking.EntityMention `json:"mentions"`
	Persist    bool                    `json:"persist"` // If true, save outcomes to the record store
}

// LinkResponse is the response for POST /api/link
type LinkResponse struct {
	DocumentID string                 `json:"documentId"`
	Results    []linking.LinkedEntity `json:"results"`
	Stats      linking.SessionStats   `json:"stats"`
}

// ReviewRequest is the payload for POST /api/review/{id}. An empty
// EntityID rejects the pending link.
type ReviewRequest struct {
	EntityID string `json:"entityId"`
}

// RebuildResponse is the response for POST /api/index/rebuild
type RebuildResponse struct {
	Indexed int `json:"indexed"`
}
