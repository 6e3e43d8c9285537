/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/josephgoksu/LinkWing/internal/knowledge"
	"github.com/spf13/cobra"
)

var (
	entityTypeFilter string
	entityJSON       bool

	entityAddName       string
	entityAddType       string
	entityAddAliases    []string
	entityAddRelated    []string
	entityAddPopularity float64
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Manage knowledge base entities",
}

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities in the knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := buildComponents(ctx, false)
		if err != nil {
			return err
		}
		defer c.close()

		entities, err := c.store.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list entities: %w", err)
		}

		if entityTypeFilter != "" {
			filtered := entities[:0]
			for _, e := range entities {
				if e.Type == entityTypeFilter {
					filtered = append(filtered, e)
				}
			}
			entities = filtered
		}

		if entityJSON {
			return json.NewEncoder(os.Stdout).Encode(entities)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tALIASES\tPOPULARITY")
		for _, e := range entities {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
				e.ID, e.Name, e.Type, strings.Join(e.Aliases, ","), e.PopularityScore)
		}
		return w.Flush()
	},
}

var entityShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := buildComponents(ctx, false)
		if err != nil {
			return err
		}
		defer c.close()

		entity, err := c.store.GetByID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get entity %s: %w", args[0], err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entity)
	},
}

var entityAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update an entity",
	Long: `Add creates an entity, or updates one when combined with --id.

Examples:
  linkwing entity add --name "GET /users" --type Endpoint --alias "list users" --popularity 0.9
  linkwing entity add --name limit --type Parameter --related ent-a1b2c3d4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if entityAddName == "" {
			return fmt.Errorf("--name is required")
		}

		ctx := cmd.Context()
		c, err := buildComponents(ctx, false)
		if err != nil {
			return err
		}
		defer c.close()

		id, _ := cmd.Flags().GetString("id")
		saved, err := c.store.Put(ctx, knowledge.KnownEntity{
			ID:               id,
			Name:             entityAddName,
			Type:             entityAddType,
			Aliases:          entityAddAliases,
			RelatedEntityIDs: entityAddRelated,
			PopularityScore:  entityAddPopularity,
		})
		if err != nil {
			return fmt.Errorf("save entity: %w", err)
		}

		fmt.Printf("Saved %s (%s)\n", saved.Name, saved.ID)
		return nil
	},
}

var entityDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := buildComponents(ctx, false)
		if err != nil {
			return err
		}
		defer c.close()

		if err := c.store.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("delete entity %s: %w", args[0], err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(entityCmd)
	entityCmd.AddCommand(entityListCmd, entityShowCmd, entityAddCmd, entityDeleteCmd)

	entityListCmd.Flags().StringVarP(&entityTypeFilter, "type", "t", "", "filter by entity type")
	entityListCmd.Flags().BoolVar(&entityJSON, "json", false, "print raw JSON")

	entityAddCmd.Flags().String("id", "", "entity id to update; omit to create")
	entityAddCmd.Flags().StringVar(&entityAddName, "name", "", "canonical name (required)")
	entityAddCmd.Flags().StringVarP(&entityAddType, "type", "t", "", "entity type")
	entityAddCmd.Flags().StringArrayVar(&entityAddAliases, "alias", nil, "alias, repeatable")
	entityAddCmd.Flags().StringArrayVar(&entityAddRelated, "related", nil, "related entity id, repeatable")
	entityAddCmd.Flags().Float64Var(&entityAddPopularity, "popularity", 0, "popularity score in [0,1]")
}
