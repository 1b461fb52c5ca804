// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entitydb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// Dump is the file format for importing and exporting a database. Entities
// are keyed by paper id.
type Dump struct {
	Papers   []types.Paper             `json:"papers" yaml:"papers"`
	Entities map[string][]types.Entity `json:"entities" yaml:"entities"`
}

// ImportSummary counts what an import wrote.
type ImportSummary struct {
	Papers   int
	Entities int
}

// ReadDump parses a dump file. Files ending in .yaml or .yml are YAML; all
// others are JSON.
func ReadDump(path string) (Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dump{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var d Dump
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &d)
	default:
		err = json.Unmarshal(data, &d)
	}
	if err != nil {
		return Dump{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return d, nil
}

// Import writes a dump in one transaction. Existing papers and entities with
// the same ids are replaced. Progress lines go to w.
func (d *DB) Import(ctx context.Context, dump Dump, w io.Writer) (ImportSummary, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var sum ImportSummary
	for _, p := range dump.Papers {
		if p.S2ID == "" {
			fmt.Fprintf(w, "skipped paper without s2_id: %q\n", p.Title)
			continue
		}
		if err := d.putPaper(ctx, tx, p); err != nil {
			return ImportSummary{}, err
		}
		sum.Papers++
	}

	for _, paperID := range slices.Sorted(maps.Keys(dump.Entities)) {
		entities := dump.Entities[paperID]
		fmt.Fprintf(w, "importing %s (%d entities)\n", paperID, len(entities))
		for _, e := range entities {
			if e.ID == "" {
				return ImportSummary{}, fmt.Errorf("paper %s: entity without id", paperID)
			}
			if err := d.insert(ctx, tx, paperID, e); err != nil {
				return ImportSummary{}, err
			}
			sum.Entities++
		}
	}

	if err := tx.Commit(); err != nil {
		return ImportSummary{}, fmt.Errorf("committing import: %w", err)
	}
	fmt.Fprintf(w, "\npapers: %d, entities: %d\n", sum.Papers, sum.Entities)
	return sum, nil
}

// ImportFile reads a dump file and imports it.
func (d *DB) ImportFile(ctx context.Context, path string, w io.Writer) (ImportSummary, error) {
	dump, err := ReadDump(path)
	if err != nil {
		return ImportSummary{}, err
	}
	return d.Import(ctx, dump, w)
}

// Export returns the entities of the given papers and the metadata of every
// stored paper.
func (d *DB) Export(ctx context.Context, paperIDs ...string) (Dump, error) {
	dump := Dump{Papers: []types.Paper{}, Entities: map[string][]types.Entity{}}
	for _, id := range paperIDs {
		entities, err := d.GetEntities(ctx, id)
		if err != nil {
			return Dump{}, err
		}
		dump.Entities[id] = entities
	}

	rows, err := d.db.QueryContext(ctx, `SELECT s2_id FROM papers ORDER BY s2_id`)
	if err != nil {
		return Dump{}, fmt.Errorf("listing papers: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Dump{}, fmt.Errorf("scanning paper id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Dump{}, err
	}
	if len(ids) > 0 {
		if dump.Papers, err = d.GetPapers(ctx, ids); err != nil {
			return Dump{}, err
		}
	}
	return dump, nil
}

// WriteDump encodes a dump as YAML or JSON by the path's extension.
func WriteDump(path string, dump Dump) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(dump)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
	default:
		data, err = json.MarshalIndent(dump, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
