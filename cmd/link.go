/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/josephgoksu/LinkWing/internal/knowledge"
	"github.com/josephgoksu/LinkWing/internal/linking"
	"github.com/spf13/cobra"
)

var (
	linkFile    string
	linkDocID   string
	linkType    string
	linkContext string
	linkPersist bool
	linkJSON    bool
)

var linkCmd = &cobra.Command{
	Use:   "link [mention]...",
	Short: "Link entity mentions to knowledge base entities",
	Long: `Link resolves mentions against the knowledge base, in order, so that
earlier links inform later ones through co-occurrence.

Mentions come either from a JSON file (--file) or from the command line.
The file accepts either a document request ({"documentId": ..., "mentions": [...]})
or a bare mention array.

Examples:
  linkwing link "GET /users" "limit" --type Endpoint
  linkwing link --file mentions.json --doc doc-42 --persist
  linkwing link "payment" --context "the checkout flow charges via the payment service" --json`,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)

	linkCmd.Flags().StringVarP(&linkFile, "file", "f", "", "JSON file with mentions to link")
	linkCmd.Flags().StringVar(&linkDocID, "doc", "", "document id for this linking session")
	linkCmd.Flags().StringVarP(&linkType, "type", "t", "", "entity type hint applied to command-line mentions")
	linkCmd.Flags().StringVar(&linkContext, "context", "", "surrounding text applied to command-line mentions")
	linkCmd.Flags().BoolVar(&linkPersist, "persist", false, "save outcomes to the record store (sqlite backend)")
	linkCmd.Flags().BoolVar(&linkJSON, "json", false, "print raw JSON results")
}

func runLink(cmd *cobra.Command, args []string) error {
	docID, mentions, err := collectMentions(args)
	if err != nil {
		return err
	}
	if len(mentions) == 0 {
		return fmt.Errorf("no mentions given; pass them as arguments or via --file")
	}

	ctx := cmd.Context()
	c, err := buildComponents(ctx, true)
	if err != nil {
		return err
	}
	defer c.close()

	if linkPersist && c.records == nil {
		return fmt.Errorf("--persist requires the sqlite knowledge backend")
	}

	lctx, err := c.newContext()
	if err != nil {
		return err
	}

	results, stats, err := c.session.LinkDocument(ctx, docID, mentions, lctx)
	if err != nil {
		return fmt.Errorf("linking session: %w", err)
	}

	if linkPersist {
		records := make([]knowledge.LinkRecord, 0, len(results))
		for _, le := range results {
			records = append(records, linking.ToRecord(le))
		}
		if err := c.records.SaveLinkRecords(ctx, records); err != nil {
			return fmt.Errorf("persist outcomes: %w", err)
		}
	}

	if linkJSON {
		return json.NewEncoder(os.Stdout).Encode(struct {
			DocumentID string                 `json:"documentId"`
			Results    []linking.LinkedEntity `json:"results"`
			Stats      linking.SessionStats   `json:"stats"`
		}{docID, results, stats})
	}

	printLinkResults(results, stats)
	return nil
}

// collectMentions merges --file content and positional arguments.
func collectMentions(args []string) (string, []linking.EntityMention, error) {
	docID := linkDocID
	var mentions []linking.EntityMention

	if linkFile != "" {
		data, err := os.ReadFile(linkFile)
		if err != nil {
			return "", nil, fmt.Errorf("read mentions file: %w", err)
		}

		var req linking.DocumentRequest
		if err := json.Unmarshal(data, &req); err != nil || len(req.Mentions) == 0 {
			// Bare mention array form
			var list []linking.EntityMention
			if err := json.Unmarshal(data, &list); err != nil {
				return "", nil, fmt.Errorf("parse mentions file %s: %w", linkFile, err)
			}
			mentions = list
		} else {
			mentions = req.Mentions
			if docID == "" {
				docID = req.DocumentID
			}
		}
	}

	for _, arg := range args {
		mentions = append(mentions, linking.EntityMention{
			Value:              arg,
			EntityType:         linkType,
			SurroundingContext: linkContext,
		})
	}

	if docID == "" {
		docID = "doc-cli"
	}
	return docID, mentions, nil
}

func printLinkResults(results []linking.LinkedEntity, stats linking.SessionStats) {
	for _, le := range results {
		switch {
		case !le.Resolved():
			fmt.Printf("✗ %-30q unlinked (%s)\n", le.Mention.Value, le.Reason)
		case le.ResolvedEntity != nil:
			fmt.Printf("✓ %-30q → %s (%s, %s, confidence %.2f)%s\n",
				le.Mention.Value, le.ResolvedEntity.Name, le.ResolvedEntityID,
				le.Method, le.Confidence, reviewMarker(le))
		default:
			fmt.Printf("✓ %-30q → %s (%s, confidence %.2f)%s\n",
				le.Mention.Value, le.ResolvedEntityID, le.Method, le.Confidence, reviewMarker(le))
		}
	}

	fmt.Printf("\n%d mentions", stats.Total)
	if resolved := stats.Total - stats.ByMethod[linking.MethodUnlinked]; resolved > 0 {
		fmt.Printf(", %d linked (avg confidence %.2f)", resolved, stats.AverageConfidence)
	}
	if stats.NeedsReview > 0 {
		fmt.Printf(", %d flagged for review", stats.NeedsReview)
	}
	fmt.Println()
}

func reviewMarker(le linking.LinkedEntity) string {
	if le.NeedsReview {
		return " [needs review]"
	}
	return ""
}
