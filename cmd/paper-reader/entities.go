// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-reader/internal/entitydb"
	"github.com/pdiddy/paper-reader/pkg/types"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List, import, export, and delete entities",
	Long: `Entities manages the entities of papers in the local database, or
through the entity API when --api-url is set. Import and export always use
the local database.`,
}

// --- list subcommand ---

var entitiesListCmd = &cobra.Command{
	Use:   "list <paper>",
	Short: "List the entities of a paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntitiesList,
}

func runEntitiesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, closeFn, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	paper := types.ParsePaperID(args[0])
	entities, err := backend.GetEntities(context.Background(), paper.ID)
	if err != nil {
		return err
	}

	if typ, _ := cmd.Flags().GetString("type"); typ != "" {
		filtered := entities[:0]
		for _, e := range entities {
			if string(e.Type) == typ {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	format, _ := cmd.Flags().GetString("format")
	return writeEntities(os.Stdout, entities, format)
}

func writeEntities(w io.Writer, entities []types.Entity, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entities)
	case "yaml":
		return yaml.NewEncoder(w).Encode(entities)
	case "table", "":
	default:
		return fmt.Errorf("unsupported format %q: use table, json, or yaml", format)
	}

	if len(entities) == 0 {
		fmt.Fprintln(w, "No entities found.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-9s  %-4s  %s\n", "ID", "Type", "Page", "Content")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range entities {
		page := "-"
		if b, ok := e.FirstBox(); ok {
			page = fmt.Sprint(b.Page + 1)
		}
		fmt.Fprintf(w, "%-36s  %-9s  %-4s  %s\n", e.ID, e.Type, page, truncate(entityContent(e), 45))
	}
	fmt.Fprintf(w, "\n%d entities\n", len(entities))
	return nil
}

// entityContent is the text an entity is known by.
func entityContent(e types.Entity) string {
	switch {
	case e.Attributes.Name != "":
		return e.Attributes.Name
	case e.Attributes.Tex != "":
		return e.Attributes.Tex
	case e.Attributes.Text != "":
		return e.Attributes.Text
	case e.Attributes.PaperID != "":
		return "cites " + e.Attributes.PaperID
	}
	return ""
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// --- delete subcommand ---

var entitiesDeleteCmd = &cobra.Command{
	Use:   "delete <paper> <id>...",
	Short: "Delete entities from a paper",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runEntitiesDelete,
}

func runEntitiesDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, closeFn, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	paper := types.ParsePaperID(args[0])
	failed := 0
	for _, id := range args[1:] {
		if err := backend.DeleteEntity(context.Background(), paper.ID, id); err != nil {
			fmt.Fprintf(os.Stdout, "failed  %s: %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "deleted %s\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d entit(ies) failed deletion", failed)
	}
	return nil
}

// --- import subcommand ---

var entitiesImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import papers and entities from YAML or JSON dump files",
	Long: `Import reads dump files of the form

  papers: [...]
  entities:
    <paper>: [...]

and writes them to the local database. Entities and papers with existing
ids are replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEntitiesImport,
}

func runEntitiesImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, path := range args {
		if _, err := db.ImportFile(context.Background(), path, os.Stdout); err != nil {
			return err
		}
	}
	return nil
}

// --- export subcommand ---

var entitiesExportCmd = &cobra.Command{
	Use:   "export <paper>...",
	Short: "Export entities of papers and all paper metadata to a dump file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEntitiesExport,
}

func runEntitiesExport(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ids := make([]string, len(args))
	for i, a := range args {
		ids[i] = types.ParsePaperID(a).ID
	}
	dump, err := db.Export(context.Background(), ids...)
	if err != nil {
		return err
	}
	if err := entitydb.WriteDump(out, dump); err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", out)
	return nil
}

// --- stats subcommand ---

var entitiesStatsCmd = &cobra.Command{
	Use:   "stats <paper>",
	Short: "Count a paper's entities by type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		st, err := db.PaperStats(context.Background(), types.ParsePaperID(args[0]).ID)
		if err != nil {
			return err
		}
		return yaml.NewEncoder(os.Stdout).Encode(st)
	},
}

func init() {
	entitiesListCmd.Flags().String("type", "", "filter by entity type: symbol, term, citation, sentence, equation")
	entitiesListCmd.Flags().String("format", "table", "output format: table, json, or yaml")
	entitiesExportCmd.Flags().String("out", "export.yaml", "output file (.yaml, .yml, or .json)")

	entitiesCmd.AddCommand(entitiesListCmd)
	entitiesCmd.AddCommand(entitiesDeleteCmd)
	entitiesCmd.AddCommand(entitiesImportCmd)
	entitiesCmd.AddCommand(entitiesExportCmd)
	entitiesCmd.AddCommand(entitiesStatsCmd)

	rootCmd.AddCommand(entitiesCmd)
}
