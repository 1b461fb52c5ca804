// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-reader/internal/find"
	"github.com/pdiddy/paper-reader/internal/reader"
	"github.com/pdiddy/paper-reader/pkg/types"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find symbols, terms, or text in a paper",
	Long: `Find runs the reader's search modes without a viewer. Symbol and term
searches start from a selected entity and list every matching entity in
document order. Text search lists sentences containing the query.`,
}

var findSymbolCmd = &cobra.Command{
	Use:   "symbol <paper> <symbol-id>...",
	Short: "List symbols matching the selected symbols",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEntitySearch(cmd, args, types.EntitySymbol)
	},
}

var findTermCmd = &cobra.Command{
	Use:   "term <paper> <term-id>...",
	Short: "List terms with the same name as the selected terms",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEntitySearch(cmd, args, types.EntityTerm)
	},
}

var findTextCmd = &cobra.Command{
	Use:   "text <paper> <query>...",
	Short: "List sentences containing the query",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTextSearch,
}

func runEntitySearch(cmd *cobra.Command, args []string, want types.EntityType) error {
	r, _, closeFn, err := loadReader(context.Background(), args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	r.SetMultiselect(len(args) > 2)
	for _, id := range args[1:] {
		e, ok := r.Entity(id)
		if !ok {
			return fmt.Errorf("no entity %s in %s", id, args[0])
		}
		if e.Type != want {
			return fmt.Errorf("entity %s is a %s, not a %s", id, e.Type, want)
		}
		r.SelectEntityAnnotation(id, "", "")
	}

	if want == types.EntitySymbol {
		filters, _ := cmd.Flags().GetStringSlice("filter")
		if len(filters) > 0 {
			q := find.Query{SymbolFilters: make([]find.SymbolFilter, len(filters))}
			for i, f := range filters {
				q.SymbolFilters[i] = find.SymbolFilter(f)
			}
			r.SetFindQuery(q)
		}
	}
	return printMatches(cmd, r)
}

func runTextSearch(cmd *cobra.Command, args []string) error {
	r, _, closeFn, err := loadReader(context.Background(), args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	r.StartTextSearch()
	r.SetFindQuery(find.Query{Text: strings.Join(args[1:], " ")})
	return printMatches(cmd, r)
}

func printMatches(cmd *cobra.Command, r *reader.Reader) error {
	st := r.Find()
	matches := make([]types.Entity, 0, len(st.MatchedEntities))
	for _, id := range st.MatchedEntities {
		if e, ok := r.Entity(id); ok {
			matches = append(matches, e)
		}
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Find    find.State     `json:"find"`
			Matches []types.Entity `json:"matches"`
		}{st, matches})
	}

	if len(matches) == 0 {
		fmt.Println("No matches found.")
		return nil
	}
	for i, e := range matches {
		marker := " "
		if i == st.MatchIndex {
			marker = ">"
		}
		page := "-"
		if b, ok := e.FirstBox(); ok {
			page = fmt.Sprint(b.Page + 1)
		}
		fmt.Printf("%s %3d  %-36s  p.%-3s  %s\n", marker, i+1, e.ID, page, truncate(entityContent(e), 60))
	}
	fmt.Printf("\n%d matches (%s)\n", len(matches), st.Mode)
	return nil
}

func init() {
	findCmd.PersistentFlags().Bool("json", false, "output the find state and matches as JSON")
	findSymbolCmd.Flags().StringSlice("filter", nil, "symbol filters: exact-match, partial-match (default both)")

	findCmd.AddCommand(findSymbolCmd)
	findCmd.AddCommand(findTermCmd)
	findCmd.AddCommand(findTextCmd)

	rootCmd.AddCommand(findCmd)
}
