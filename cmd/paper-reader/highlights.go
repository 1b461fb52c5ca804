// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-reader/internal/highlights"
	"github.com/pdiddy/paper-reader/pkg/types"
)

var highlightsCmd = &cobra.Command{
	Use:   "highlights <paper>",
	Short: "Rank and list the faceted highlights of a paper",
	Long: `Highlights loads the paper's highlight corpus, keeps highlights above
the score threshold, applies the quantity budget per facet, and lists the
visible highlights grouped by section in reading order.`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlights,
}

func runHighlights(cmd *cobra.Command, args []string) error {
	if err := bindCommandFlags(cmd, map[string]string{
		"highlights.corpus":          "corpus",
		"highlights.quantity":        "quantity",
		"highlights.score_threshold": "threshold",
	}); err != nil {
		return err
	}
	r, cfg, closeFn, err := loadReader(context.Background(), args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	if cfg.Highlights.Corpus == "" {
		return fmt.Errorf("no highlight corpus configured: use --corpus or highlights.corpus")
	}
	engine := r.Highlights()
	if engine == nil {
		return fmt.Errorf("paper %s: %w", args[0], highlights.ErrNoCorpus)
	}

	facets, _ := cmd.Flags().GetStringSlice("toggle-facet")
	for _, f := range facets {
		r.ToggleFacet(types.Facet(f))
	}
	sections, _ := cmd.Flags().GetStringSlice("show-section")
	known := engine.Sections()
	for _, s := range sections {
		if !slices.Contains(known, types.SectionKey(s)) {
			return fmt.Errorf("no highlights in section %q; sections: %s", s, strings.Join(known, ", "))
		}
		r.ShowAllHighlightsForSection(s, true)
	}

	groups := engine.BySection()
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(groups)
	case "text", "":
	default:
		return fmt.Errorf("unsupported format %q: use text, json, or yaml", format)
	}

	multipliers := engine.FacetMultipliers()
	budgets := make([]string, 0, len(types.Facets))
	for _, f := range types.Facets {
		budgets = append(budgets, fmt.Sprintf("%s x%.2f", f, multipliers[f]))
	}
	fmt.Printf("quantity %d (%s), facets %v\n\n", engine.Quantity(), strings.Join(budgets, ", "), engine.SelectedFacets())
	total := 0
	for _, g := range groups {
		fmt.Printf("## %s\n", g.Section)
		for _, h := range g.Highlights {
			fmt.Printf("  [%-9s %.2f] %s\n", h.Label, h.Score, truncate(h.Text, 80))
		}
		fmt.Println()
		total += len(g.Highlights)
	}
	fmt.Printf("%d highlights in %d sections\n", total, len(groups))
	return nil
}

func init() {
	f := highlightsCmd.Flags()
	f.String("corpus", "", "highlight corpus file (JSON or YAML)")
	f.Int("quantity", 0, "quantity control, 0-100 (default 50)")
	f.Float64("threshold", 0, "minimum score (default 0.9)")
	f.StringSlice("toggle-facet", nil, "facets to toggle off: objective, novelty, method, result")
	f.StringSlice("show-section", nil, "sections to show every highlight of")
	f.String("format", "text", "output format: text, json, or yaml")

	rootCmd.AddCommand(highlightsCmd)
}
