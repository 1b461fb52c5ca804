// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package entitydb stores papers and their entities in SQLite. A DB
// implements api.Backend, so a reader can run against a local database and
// the serve command can expose it over HTTP.
package entitydb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-reader/internal/api"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// ErrNotFound is returned for unknown entities. It is api.ErrNotFound so
// callers can treat local and remote backends alike.
var ErrNotFound = api.ErrNotFound

// DB is the SQLite entity database.
type DB struct {
	db   *sql.DB
	path string
}

var _ api.Backend = (*DB)(nil)

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d := &DB{db: db, path: path}
	if err := d.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return d, nil
}

// Close releases the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

func (d *DB) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			s2_id TEXT PRIMARY KEY,
			arxiv_id TEXT,
			title TEXT,
			authors TEXT,
			abstract TEXT,
			url TEXT,
			venue TEXT,
			year INTEGER,
			citation_velocity INTEGER,
			influential_citation_count INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			paper_id TEXT NOT NULL,
			type TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			attributes TEXT NOT NULL,
			relationships TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_paper_id ON entities(paper_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type)`,
	}
	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (types.Entity, error) {
	var (
		e         types.Entity
		typ       string
		version   int
		attrsJSON string
		relsJSON  string
	)
	if err := row.Scan(&e.ID, &typ, &version, &attrsJSON, &relsJSON); err != nil {
		return types.Entity{}, err
	}
	e.Type = types.EntityType(typ)
	if err := json.Unmarshal([]byte(attrsJSON), &e.Attributes); err != nil {
		return types.Entity{}, fmt.Errorf("decoding attributes of %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(relsJSON), &e.Relationships); err != nil {
		return types.Entity{}, fmt.Errorf("decoding relationships of %s: %w", e.ID, err)
	}
	e.Attributes.Version = version
	return e, nil
}

func encodeEntity(e types.Entity) (attrs, rels string, err error) {
	a, err := json.Marshal(e.Attributes)
	if err != nil {
		return "", "", fmt.Errorf("encoding attributes: %w", err)
	}
	relationships := e.Relationships
	if relationships == nil {
		relationships = types.Relationships{}
	}
	r, err := json.Marshal(relationships)
	if err != nil {
		return "", "", fmt.Errorf("encoding relationships: %w", err)
	}
	return string(a), string(r), nil
}

const selectEntity = `SELECT id, type, version, attributes, relationships FROM entities`

// GetEntities returns every entity of a paper in insertion order.
func (d *DB) GetEntities(ctx context.Context, paperID string) ([]types.Entity, error) {
	rows, err := d.db.QueryContext(ctx, selectEntity+` WHERE paper_id = ? ORDER BY rowid`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	entities := []types.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// getEntity returns one entity of a paper.
func (d *DB) getEntity(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, paperID, id string) (types.Entity, error) {
	e, err := scanEntity(q.QueryRowContext(ctx, selectEntity+` WHERE paper_id = ? AND id = ?`, paperID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entity{}, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Entity{}, fmt.Errorf("reading entity %s: %w", id, err)
	}
	return e, nil
}

// PostEntity creates an entity with a new UUID.
func (d *DB) PostEntity(ctx context.Context, paperID string, data types.EntityCreateData) (types.Entity, error) {
	e := types.Entity{
		ID:            uuid.NewString(),
		Type:          data.Type,
		Attributes:    data.Attributes,
		Relationships: data.Relationships.Clone(),
	}
	if e.Relationships == nil {
		e.Relationships = types.Relationships{}
	}
	if err := d.insert(ctx, d.db, paperID, e); err != nil {
		return types.Entity{}, err
	}
	return e, nil
}

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

func (d *DB) insert(ctx context.Context, x execer, paperID string, e types.Entity) error {
	attrs, rels, err := encodeEntity(e)
	if err != nil {
		return err
	}
	_, err = x.ExecContext(ctx,
		`INSERT INTO entities (id, paper_id, type, version, attributes, relationships)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			paper_id=excluded.paper_id, type=excluded.type, version=excluded.version,
			attributes=excluded.attributes, relationships=excluded.relationships`,
		e.ID, paperID, string(e.Type), e.Attributes.Version, attrs, rels,
	)
	if err != nil {
		return fmt.Errorf("inserting entity %s: %w", e.ID, err)
	}
	return nil
}

// PatchEntity shallow-merges data over the stored entity and bumps its version.
func (d *DB) PatchEntity(ctx context.Context, paperID string, data types.EntityUpdateData) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	prev, err := d.getEntity(ctx, tx, paperID, data.ID)
	if err != nil {
		return err
	}
	if data.Type != "" && data.Type != prev.Type {
		return fmt.Errorf("patching %s: type %s does not match %s: %w", data.ID, data.Type, prev.Type, api.ErrRequestFailed)
	}
	next := data.Apply(prev)
	next.Attributes.Version = prev.Attributes.Version + 1

	attrs, rels, err := encodeEntity(next)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET version = ?, attributes = ?, relationships = ? WHERE id = ?`,
		next.Attributes.Version, attrs, rels, next.ID,
	); err != nil {
		return fmt.Errorf("updating entity %s: %w", data.ID, err)
	}
	return tx.Commit()
}

// DeleteEntity removes an entity.
func (d *DB) DeleteEntity(ctx context.Context, paperID, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM entities WHERE paper_id = ? AND id = ?`, paperID, id)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	return nil
}

// PutPaper inserts or replaces paper metadata.
func (d *DB) PutPaper(ctx context.Context, p types.Paper) error {
	return d.putPaper(ctx, d.db, p)
}

func (d *DB) putPaper(ctx context.Context, x execer, p types.Paper) error {
	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return fmt.Errorf("encoding authors: %w", err)
	}
	_, err = x.ExecContext(ctx,
		`INSERT INTO papers (s2_id, arxiv_id, title, authors, abstract, url, venue, year,
			citation_velocity, influential_citation_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(s2_id) DO UPDATE SET
			arxiv_id=excluded.arxiv_id, title=excluded.title, authors=excluded.authors,
			abstract=excluded.abstract, url=excluded.url, venue=excluded.venue, year=excluded.year,
			citation_velocity=excluded.citation_velocity,
			influential_citation_count=excluded.influential_citation_count`,
		p.S2ID, p.ArxivID, p.Title, string(authorsJSON), p.Abstract, p.URL, p.Venue, p.Year,
		p.CitationVelocity, p.InfluentialCitationCount,
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", p.S2ID, err)
	}
	return nil
}

// GetPapers returns metadata for the ids that are known, in request order.
func (d *DB) GetPapers(ctx context.Context, s2IDs []string) ([]types.Paper, error) {
	if len(s2IDs) == 0 {
		return []types.Paper{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(s2IDs)), ",")
	args := make([]any, len(s2IDs))
	for i, id := range s2IDs {
		args[i] = id
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT s2_id, COALESCE(arxiv_id, ''), COALESCE(title, ''), COALESCE(authors, '[]'),
			COALESCE(abstract, ''), COALESCE(url, ''), COALESCE(venue, ''), COALESCE(year, 0),
			COALESCE(citation_velocity, 0), COALESCE(influential_citation_count, 0)
		 FROM papers WHERE s2_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	byID := map[string]types.Paper{}
	for rows.Next() {
		var p types.Paper
		var authorsJSON string
		if err := rows.Scan(&p.S2ID, &p.ArxivID, &p.Title, &authorsJSON, &p.Abstract, &p.URL,
			&p.Venue, &p.Year, &p.CitationVelocity, &p.InfluentialCitationCount); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
			return nil, fmt.Errorf("decoding authors of %s: %w", p.S2ID, err)
		}
		byID[p.S2ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	papers := make([]types.Paper, 0, len(byID))
	for _, id := range s2IDs {
		if p, ok := byID[id]; ok {
			papers = append(papers, p)
			delete(byID, id)
		}
	}
	return papers, nil
}

// Stats holds entity counts for one paper.
type Stats struct {
	PaperID string                   `json:"paper_id" yaml:"paper_id"`
	Total   int                      `json:"total" yaml:"total"`
	ByType  map[types.EntityType]int `json:"by_type" yaml:"by_type"`
}

// PaperStats counts a paper's entities by type.
func (d *DB) PaperStats(ctx context.Context, paperID string) (Stats, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT type, count(*) FROM entities WHERE paper_id = ? GROUP BY type ORDER BY type`, paperID)
	if err != nil {
		return Stats{}, fmt.Errorf("counting entities: %w", err)
	}
	defer rows.Close()

	st := Stats{PaperID: paperID, ByType: map[types.EntityType]int{}}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return Stats{}, fmt.Errorf("scanning count: %w", err)
		}
		st.ByType[types.EntityType(typ)] = n
		st.Total += n
	}
	return st, rows.Err()
}
