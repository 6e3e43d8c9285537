/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	reviewLimit    int
	reviewJSON     bool
	reviewEntityID string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the human review queue",
	Long: `Low-confidence links land in a review queue when persisted with the
sqlite backend. "review list" shows pending records, oldest first;
"review apply" confirms a link against an entity or, with no --entity,
rejects it.`,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending review records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := buildComponents(ctx, false)
		if err != nil {
			return err
		}
		defer c.close()

		if c.records == nil {
			return fmt.Errorf("review queue requires the sqlite knowledge backend")
		}

		queue, err := c.records.ListReviewQueue(ctx, reviewLimit)
		if err != nil {
			return fmt.Errorf("list review queue: %w", err)
		}

		if reviewJSON {
			return json.NewEncoder(os.Stdout).Encode(queue)
		}
		if len(queue) == 0 {
			fmt.Println("Review queue is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RECORD\tDOCUMENT\tMENTION\tLINKED TO\tCONFIDENCE\tREASON")
		for _, rec := range queue {
			target := rec.ResolvedEntityID
			if target == "" {
				target = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
				rec.ID, rec.DocumentID, rec.MentionValue, target, rec.Confidence, rec.Reason)
		}
		return w.Flush()
	},
}

var reviewApplyCmd = &cobra.Command{
	Use:   "apply <record-id>",
	Short: "Confirm or reject a pending link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := buildComponents(ctx, false)
		if err != nil {
			return err
		}
		defer c.close()

		if c.records == nil {
			return fmt.Errorf("review queue requires the sqlite knowledge backend")
		}

		if err := c.records.ApplyReview(ctx, args[0], reviewEntityID); err != nil {
			return fmt.Errorf("apply review %s: %w", args[0], err)
		}

		if reviewEntityID != "" {
			fmt.Printf("Confirmed %s → %s\n", args[0], reviewEntityID)
		} else {
			fmt.Printf("Rejected %s (marked unlinked)\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewListCmd, reviewApplyCmd)

	reviewListCmd.Flags().IntVar(&reviewLimit, "limit", 50, "maximum records to show")
	reviewListCmd.Flags().BoolVar(&reviewJSON, "json", false, "print raw JSON")
	reviewApplyCmd.Flags().StringVar(&reviewEntityID, "entity", "", "entity id to confirm; omit to reject the link")
}
