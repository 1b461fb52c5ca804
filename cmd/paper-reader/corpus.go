// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-reader/internal/highlights"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Prepare highlight corpus files",
}

var corpusMergeCmd = &cobra.Command{
	Use:   "merge <dir>...",
	Short: "Merge per-paper highlight files into one corpus file per directory",
	Long: `Merge reads every <paper>.json array of highlights in each directory,
assigns sequential ids that continue across directories, and writes the
entries keyed by paper id to <dir>/` + highlights.MergedFileName + `.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCorpusMerge,
}

func runCorpusMerge(cmd *cobra.Command, args []string) error {
	papers, _ := cmd.Flags().GetStringSlice("paper")
	dropEmpty, _ := cmd.Flags().GetBool("drop-empty-sections")
	nextID, _ := cmd.Flags().GetInt("start-id")

	opts := highlights.MergeOptions{Papers: papers, DropEmptySections: dropEmpty}
	for _, dir := range args {
		res, err := highlights.MergeDirectory(dir, opts, nextID)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed  %s: %v\n", dir, err)
			return err
		}
		fmt.Fprintf(os.Stdout, "merged  %s (%d papers, %d entries)\n", res.Path, res.Papers, res.Entries)
		nextID = res.NextID
	}
	return nil
}

func init() {
	corpusMergeCmd.Flags().StringSlice("paper", nil, "only merge these paper ids")
	corpusMergeCmd.Flags().Bool("drop-empty-sections", true, "drop entries without a section")
	corpusMergeCmd.Flags().Int("start-id", 0, "first id to assign")

	corpusCmd.AddCommand(corpusMergeCmd)
	rootCmd.AddCommand(corpusCmd)
}
