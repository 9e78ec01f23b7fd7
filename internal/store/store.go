// Package store persists fetched patches and their parsed sections in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgallion1/patchgest/internal/patchdoc"
)

// ErrNotFound is returned when a patch version is not stored.
var ErrNotFound = errors.New("patch not found")

// Outcome reports what SavePatch did.
type Outcome string

const (
	OutcomeAdded     Outcome = "added"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// Patch is one stored patch announcement.
type Patch struct {
	Version     string    `json:"version"`
	SourceURL   string    `json:"source_url"`
	SourceSlug  string    `json:"source_slug"`
	RawText     string    `json:"-"`
	RawHTML     string    `json:"-"`
	ContentHash string    `json:"content_hash"`
	Sections    int       `json:"sections"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SectionFilter narrows Sections; empty fields match everything.
type SectionFilter struct {
	Category patchdoc.Category
	Size     patchdoc.Size
}

// Store manages the patch database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS patches (
			version      TEXT PRIMARY KEY,
			source_url   TEXT NOT NULL DEFAULT '',
			source_slug  TEXT NOT NULL DEFAULT '',
			raw_text     TEXT NOT NULL DEFAULT '',
			raw_html     TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS patch_sections (
			patch_version TEXT NOT NULL REFERENCES patches(version) ON DELETE CASCADE,
			ord           INTEGER NOT NULL,
			category      TEXT NOT NULL,
			size          TEXT NOT NULL DEFAULT 'all',
			h2            TEXT NOT NULL DEFAULT '',
			h4            TEXT NOT NULL DEFAULT '',
			text          TEXT NOT NULL DEFAULT '',
			lines_json    TEXT NOT NULL DEFAULT '[]',
			unit_tier     INTEGER,
			PRIMARY KEY (patch_version, ord)
		);
		CREATE INDEX IF NOT EXISTS idx_sections_lookup
			ON patch_sections(patch_version, category, size);
	`)
	return err
}

// SavePatch inserts p or, when its content hash changed, replaces the
// stored raw content and swaps its sections for blocks. Unchanged patches
// are left alone. Both writes commit in one transaction, so a failed section
// write never leaves the new content hash behind.
func (s *Store) SavePatch(ctx context.Context, p Patch, blocks []patchdoc.Block) (Outcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	outcome, err := upsertPatch(ctx, tx, p)
	if err != nil || outcome == OutcomeUnchanged {
		return outcome, err
	}
	if err := replaceSections(ctx, tx, p.Version, blocks); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit patch %s: %w", p.Version, err)
	}
	return outcome, nil
}

func upsertPatch(ctx context.Context, tx *sql.Tx, p Patch) (Outcome, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	var hash string
	err := tx.QueryRowContext(ctx,
		`SELECT content_hash FROM patches WHERE version = ?`, p.Version).Scan(&hash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO patches (version, source_url, source_slug, raw_text, raw_html, content_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Version, p.SourceURL, p.SourceSlug, p.RawText, p.RawHTML, p.ContentHash, now, now)
		if err != nil {
			return "", fmt.Errorf("insert patch %s: %w", p.Version, err)
		}
		return OutcomeAdded, nil
	case err != nil:
		return "", fmt.Errorf("lookup patch %s: %w", p.Version, err)
	case hash == p.ContentHash:
		return OutcomeUnchanged, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE patches
		SET source_url = ?, source_slug = ?, raw_text = ?, raw_html = ?, content_hash = ?, updated_at = ?
		WHERE version = ?`,
		p.SourceURL, p.SourceSlug, p.RawText, p.RawHTML, p.ContentHash, now, p.Version)
	if err != nil {
		return "", fmt.Errorf("update patch %s: %w", p.Version, err)
	}
	return OutcomeUpdated, nil
}

func replaceSections(ctx context.Context, tx *sql.Tx, version string, blocks []patchdoc.Block) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM patch_sections WHERE patch_version = ?`, version); err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO patch_sections (patch_version, ord, category, size, h2, h4, text, lines_json, unit_tier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range blocks {
		lines := b.Lines
		if lines == nil {
			lines = []string{}
		}
		linesJSON, err := json.Marshal(lines)
		if err != nil {
			return fmt.Errorf("marshal lines: %w", err)
		}
		var tier sql.NullInt64
		if b.UnitTier != nil {
			tier = sql.NullInt64{Int64: int64(*b.UnitTier), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, version, b.Order, string(b.Category), string(b.Size),
			b.H2, b.H4, b.Text, string(linesJSON), tier); err != nil {
			return fmt.Errorf("insert section %d: %w", b.Order, err)
		}
	}
	return nil
}

// ListPatches returns stored patches, newest version first.
func (s *Store) ListPatches(ctx context.Context) ([]Patch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.version, p.source_url, p.source_slug, p.content_hash, p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM patch_sections s WHERE s.patch_version = p.version)
		FROM patches p`)
	if err != nil {
		return nil, fmt.Errorf("list patches: %w", err)
	}
	defer rows.Close()

	var out []Patch
	for rows.Next() {
		var p Patch
		var created, updated string
		if err := rows.Scan(&p.Version, &p.SourceURL, &p.SourceSlug, &p.ContentHash, &created, &updated, &p.Sections); err != nil {
			return nil, fmt.Errorf("scan patch: %w", err)
		}
		p.CreatedAt = parseTime(created)
		p.UpdatedAt = parseTime(updated)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patches: %w", err)
	}
	sortPatchesDesc(out)
	return out, nil
}

// GetPatch returns one patch including its raw content.
func (s *Store) GetPatch(ctx context.Context, version string) (*Patch, error) {
	var p Patch
	var created, updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT p.version, p.source_url, p.source_slug, p.raw_text, p.raw_html, p.content_hash, p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM patch_sections s WHERE s.patch_version = p.version)
		FROM patches p WHERE p.version = ?`, version).
		Scan(&p.Version, &p.SourceURL, &p.SourceSlug, &p.RawText, &p.RawHTML, &p.ContentHash, &created, &updated, &p.Sections)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patch %s: %w", version, err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

// Sections returns the stored blocks of a patch in order.
func (s *Store) Sections(ctx context.Context, version string, f SectionFilter) ([]patchdoc.Block, error) {
	query := `SELECT ord, category, size, h2, h4, text, lines_json, unit_tier
		FROM patch_sections WHERE patch_version = ?`
	args := []any{version}
	var where []string
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.Size != "" {
		where = append(where, "size = ?")
		args = append(args, string(f.Size))
	}
	if len(where) > 0 {
		query += " AND " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ord"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	blocks := []patchdoc.Block{}
	for rows.Next() {
		var b patchdoc.Block
		var category, size, linesJSON string
		var tier sql.NullInt64
		if err := rows.Scan(&b.Order, &category, &size, &b.H2, &b.H4, &b.Text, &linesJSON, &tier); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		b.Category = patchdoc.Category(category)
		b.Size = patchdoc.Size(size)
		if err := json.Unmarshal([]byte(linesJSON), &b.Lines); err != nil || b.Lines == nil {
			b.Lines = []string{}
		}
		if tier.Valid {
			t := int(tier.Int64)
			b.UnitTier = &t
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return blocks, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// sortPatchesDesc orders patches by numeric version, newest first, so that
// 16.10 sorts above 16.9.
func sortPatchesDesc(ps []Patch) {
	sort.SliceStable(ps, func(i, j int) bool {
		ai, bi := versionKey(ps[i].Version), versionKey(ps[j].Version)
		if ai[0] != bi[0] {
			return ai[0] > bi[0]
		}
		if ai[1] != bi[1] {
			return ai[1] > bi[1]
		}
		return ps[i].Version > ps[j].Version
	})
}

func versionKey(v string) [2]int {
	major, minor, _ := strings.Cut(v, ".")
	a, _ := strconv.Atoi(major)
	b, _ := strconv.Atoi(minor)
	return [2]int{a, b}
}
