/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/josephgoksu/LinkWing/internal/knowledge"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the entity index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildComponents(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer c.close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c.index.Stats())
	},
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index from the knowledge store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := buildComponents(ctx, false)
		if err != nil {
			return err
		}
		defer c.close()

		entities, err := c.store.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("load entities: %w", err)
		}
		n := c.index.Rebuild(entities)
		fmt.Printf("Indexed %d entities\n", n)
		return nil
	},
}

var indexWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the knowledge file and apply changes incrementally",
	Long: `Watch follows the YAML snapshot on disk and applies added, updated,
and deleted entities to the in-memory index as they happen. Only the
file backend has a file to watch; the sqlite backend does not need this.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := buildComponents(ctx, false)
		if err != nil {
			return err
		}
		defer c.close()

		if c.fileStore == nil {
			return fmt.Errorf("index watch requires the file knowledge backend")
		}

		watcher, err := knowledge.NewWatcher(c.fileStore, func(delta knowledge.EntityDelta) {
			c.index.ApplyDelta(delta)
			fmt.Printf("Applied delta: +%d ~%d -%d (index size %d)\n",
				len(delta.Added), len(delta.Updated), len(delta.DeletedIDs), c.index.Size())
		})
		if err != nil {
			return err
		}

		fmt.Printf("Watching %s (Ctrl+C to stop)\n", c.fileStore.Path())
		return watcher.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexStatsCmd, indexRebuildCmd, indexWatchCmd)
}
