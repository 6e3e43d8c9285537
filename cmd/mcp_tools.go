/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/josephgoksu/LinkWing/internal/knowledge"
	"github.com/josephgoksu/LinkWing/internal/linking"
	"github.com/josephgoksu/LinkWing/types"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// linkMentionsHandler runs one document session per tool call
func linkMentionsHandler(c *components) mcp.ToolHandlerFor[types.LinkMentionsParams, types.LinkMentionsResponse] {
	return func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[types.LinkMentionsParams]) (*mcp.CallToolResultFor[types.LinkMentionsResponse], error) {
		args := params.Arguments

		if len(args.Mentions) == 0 {
			return nil, types.NewLinkError("MISSING_MENTIONS", "At least one mention is required", nil)
		}
		if args.Persist && c.records == nil {
			return nil, types.NewLinkError("NO_RECORD_STORE", "Persisting outcomes requires the sqlite knowledge backend", nil)
		}

		docID := args.DocumentID
		if docID == "" {
			docID = "doc-mcp"
		}

		mentions := make([]linking.EntityMention, 0, len(args.Mentions))
		for _, m := range args.Mentions {
			if strings.TrimSpace(m.Value) == "" {
				return nil, types.NewLinkError("EMPTY_MENTION", "Mention values must be non-empty", nil)
			}
			mentions = append(mentions, linking.EntityMention{
				Value:              m.Value,
				EntityType:         m.EntityType,
				SurroundingContext: m.Context,
			})
		}

		lctx, err := c.newContext()
		if err != nil {
			return nil, types.NewLinkError("BAD_CONFIGURATION", err.Error(), nil)
		}

		results, stats, err := c.session.LinkDocument(ctx, docID, mentions, lctx)
		if err != nil {
			return nil, fmt.Errorf("linking session: %w", err)
		}

		if args.Persist {
			records := make([]knowledge.LinkRecord, 0, len(results))
			for _, le := range results {
				records = append(records, linking.ToRecord(le))
			}
			if err := c.records.SaveLinkRecords(ctx, records); err != nil {
				return nil, fmt.Errorf("persist outcomes: %w", err)
			}
		}

		resp := types.LinkMentionsResponse{
			DocumentID:  docID,
			Results:     make([]types.LinkedMention, 0, len(results)),
			Linked:      stats.Total - stats.ByMethod[linking.MethodUnlinked],
			NeedsReview: stats.NeedsReview,
		}
		for _, le := range results {
			lm := types.LinkedMention{
				Value:            le.Mention.Value,
				ResolvedEntityID: le.ResolvedEntityID,
				Method:           string(le.Method),
				Confidence:       le.Confidence,
				NeedsReview:      le.NeedsReview,
				Reason:           le.Reason,
			}
			if le.ResolvedEntity != nil {
				lm.ResolvedName = le.ResolvedEntity.Name
			}
			resp.Results = append(resp.Results, lm)
		}

		text := fmt.Sprintf("Linked %d of %d mentions in %s", resp.Linked, stats.Total, docID)
		if resp.NeedsReview > 0 {
			text += fmt.Sprintf(" (%d flagged for review)", resp.NeedsReview)
		}

		return &mcp.CallToolResultFor[types.LinkMentionsResponse]{
			Content:           []mcp.Content{&mcp.TextContent{Text: text}},
			StructuredContent: resp,
		}, nil
	}
}

// findEntityHandler exposes raw candidate retrieval
func findEntityHandler(c *components) mcp.ToolHandlerFor[types.FindEntityParams, types.FindEntityResponse] {
	return func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[types.FindEntityParams]) (*mcp.CallToolResultFor[types.FindEntityResponse], error) {
		args := params.Arguments

		if strings.TrimSpace(args.Query) == "" {
			return nil, types.NewLinkError("MISSING_QUERY", "Query is required", nil)
		}

		opts := linking.OptionsFromConfig(c.cfg.Linking.Candidates)
		if args.Limit > 0 {
			opts.MaxCandidates = args.Limit
		}

		set := linking.NewGenerator(c.index).Generate(linking.EntityMention{
			Value:      args.Query,
			EntityType: args.EntityType,
		}, opts)

		resp := types.FindEntityResponse{
			Query:      args.Query,
			Candidates: make([]types.EntityCandidate, 0, len(set.Candidates)),
			TotalFound: set.TotalFound,
		}
		for _, cand := range set.Candidates {
			resp.Candidates = append(resp.Candidates, types.EntityCandidate{
				EntityID:   cand.EntityID,
				Name:       cand.Name,
				Type:       cand.Type,
				MatchType:  string(cand.MatchType),
				Similarity: cand.Similarity,
				Popularity: cand.Popularity,
			})
		}

		return &mcp.CallToolResultFor[types.FindEntityResponse]{
			Content: []mcp.Content{&mcp.TextContent{
				Text: fmt.Sprintf("Found %d candidates for %q", resp.TotalFound, args.Query),
			}},
			StructuredContent: resp,
		}, nil
	}
}

// addEntityHandler upserts an entity and refreshes the index
func addEntityHandler(c *components) mcp.ToolHandlerFor[types.AddEntityParams, types.EntityResponse] {
	return func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[types.AddEntityParams]) (*mcp.CallToolResultFor[types.EntityResponse], error) {
		args := params.Arguments

		if strings.TrimSpace(args.Name) == "" {
			return nil, types.NewLinkError("MISSING_NAME", "Entity name is required", map[string]interface{}{
				"field": "name",
			})
		}
		if args.Popularity < 0 || args.Popularity > 1 {
			return nil, types.NewLinkError("INVALID_POPULARITY", "Popularity must be in [0,1]", nil)
		}

		saved, err := c.store.Put(ctx, knowledge.KnownEntity{
			ID:               args.ID,
			Name:             strings.TrimSpace(args.Name),
			Type:             args.EntityType,
			Aliases:          args.Aliases,
			RelatedEntityIDs: args.Related,
			PopularityScore:  args.Popularity,
		})
		if err != nil {
			return nil, fmt.Errorf("save entity: %w", err)
		}

		var delta knowledge.EntityDelta
		if _, exists := c.index.GetByID(saved.ID); exists {
			delta.Updated = []knowledge.KnownEntity{saved}
		} else {
			delta.Added = []knowledge.KnownEntity{saved}
		}
		c.index.ApplyDelta(delta)

		return &mcp.CallToolResultFor[types.EntityResponse]{
			Content: []mcp.Content{&mcp.TextContent{
				Text: fmt.Sprintf("Saved entity '%s' with ID: %s", saved.Name, saved.ID),
			}},
			StructuredContent: types.EntityResponse{
				ID:         saved.ID,
				Name:       saved.Name,
				EntityType: saved.Type,
				Aliases:    saved.Aliases,
				Popularity: saved.PopularityScore,
			},
		}, nil
	}
}
