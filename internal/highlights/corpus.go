// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package highlights

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// MergedFileName is the file MergeDirectory writes into each input directory.
const MergedFileName = "skimmingData.json"

// ReadCorpusFile reads a corpus file keyed by paper id. Files ending in
// .yaml or .yml are parsed as YAML, anything else as JSON.
func ReadCorpusFile(path string) (map[string]types.HighlightCorpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}

	var corpora map[string]types.HighlightCorpus
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &corpora)
	default:
		err = json.Unmarshal(data, &corpora)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	return corpora, nil
}

// LoadCorpus returns the corpus for paperID from a corpus file.
func LoadCorpus(path, paperID string) (types.HighlightCorpus, error) {
	corpora, err := ReadCorpusFile(path)
	if err != nil {
		return types.HighlightCorpus{}, err
	}
	c, ok := corpora[paperID]
	if !ok {
		return types.HighlightCorpus{}, fmt.Errorf("paper %s in %s: %w", paperID, path, ErrNoCorpus)
	}
	return c, nil
}

// MergeOptions controls MergeDirectory.
type MergeOptions struct {
	// Papers restricts the merge to these paper ids. Empty means all.
	Papers []string

	// DropEmptySections removes entries whose "section" field is empty.
	DropEmptySections bool
}

// MergeResult reports what MergeDirectory wrote.
type MergeResult struct {
	Dir     string
	Path    string
	Papers  int
	Entries int
	NextID  int
}

// MergeDirectory reads every <paper>.json array in dir, gives each entry a
// sequential string id starting at nextID, and writes the entries keyed by
// paper id to dir/skimmingData.json. Files are visited in name order so ids
// are stable across runs.
func MergeDirectory(dir string, opts MergeOptions, nextID int) (MergeResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return MergeResult{}, fmt.Errorf("reading %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	wanted := map[string]bool{}
	for _, p := range opts.Papers {
		wanted[p] = true
	}

	merged := map[string][]map[string]any{}
	res := MergeResult{Dir: dir, Path: filepath.Join(dir, MergedFileName)}
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		paperID := strings.TrimSuffix(name, ext)
		if entry.IsDir() || ext != ".json" || name == MergedFileName {
			continue
		}
		if len(wanted) > 0 && !wanted[paperID] {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return MergeResult{}, fmt.Errorf("reading %s: %w", name, err)
		}
		var items []map[string]any
		if err := json.Unmarshal(data, &items); err != nil {
			return MergeResult{}, fmt.Errorf("parsing %s: %w", name, err)
		}

		kept := make([]map[string]any, 0, len(items))
		for _, item := range items {
			item["id"] = strconv.Itoa(nextID)
			nextID++
			if opts.DropEmptySections {
				if s, _ := item["section"].(string); s == "" {
					continue
				}
			}
			kept = append(kept, item)
		}
		merged[paperID] = kept
		res.Papers++
		res.Entries += len(kept)
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return MergeResult{}, fmt.Errorf("encoding merged data: %w", err)
	}
	if err := os.WriteFile(res.Path, out, 0o644); err != nil {
		return MergeResult{}, fmt.Errorf("writing %s: %w", res.Path, err)
	}
	res.NextID = nextID
	return res, nil
}
