// Package store provides SQLite-backed persistence for completed wiki
// generation runs, so a wiki can be exported or viewed without
// regenerating it.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianshen/repowiki/internal/wiki"
)

// Run is a persisted generation run. Pages carry their content in
// structure order; Originals holds the first generated content of each
// page that recorded one.
type Run struct {
	ID        string
	RepoURL   string
	Language  string
	Structure *wiki.Structure
	Pages     []wiki.Page
	Originals map[string]string
	Warning   string
	CreatedAt time.Time
}

// RunSummary describes a stored run without its page content.
type RunSummary struct {
	ID        string
	RepoURL   string
	Language  string
	Title     string
	PageCount int
	CreatedAt time.Time
}

// Store wraps a SQLite database of generation runs.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures
// all required tables exist. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases and pragmas consistent.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			repo_url    TEXT NOT NULL,
			language    TEXT NOT NULL,
			structure   TEXT NOT NULL,
			warning     TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS runs_repo_language ON runs (repo_url, language)`,
		`CREATE TABLE IF NOT EXISTS pages (
			run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			page_id   TEXT NOT NULL,
			position  INTEGER NOT NULL,
			content   TEXT NOT NULL,
			original  TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, page_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", abbrev(stmt), err)
		}
	}
	return nil
}

func abbrev(stmt string) string {
	if len(stmt) > 40 {
		return stmt[:40]
	}
	return stmt
}

// SaveRun persists a run and its pages in one transaction. Saving a run id
// that already exists replaces it.
func (s *Store) SaveRun(run Run) error {
	if run.ID == "" || run.Structure == nil {
		return fmt.Errorf("save run: id and structure are required")
	}

	// Page content lives in the pages table.
	skeleton := *run.Structure
	skeleton.Pages = make([]wiki.Page, len(run.Structure.Pages))
	for i, p := range run.Structure.Pages {
		p.Content = ""
		skeleton.Pages[i] = p
	}
	structure, err := json.Marshal(skeleton)
	if err != nil {
		return fmt.Errorf("marshal structure: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO runs (id, repo_url, language, structure, warning, created_at)
		 VALUES (?, ?, ?, ?, ?, datetime('now'))`,
		run.ID, run.RepoURL, run.Language, string(structure), run.Warning,
	); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	for i, p := range run.Pages {
		if _, err := tx.Exec(
			`INSERT INTO pages (run_id, page_id, position, content, original)
			 VALUES (?, ?, ?, ?, ?)`,
			run.ID, p.ID, i, p.Content, run.Originals[p.ID],
		); err != nil {
			return fmt.Errorf("save page %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// LatestRun returns the most recent run for a repository in the given
// language. Returns nil if there is none.
func (s *Store) LatestRun(repoURL, language string) (*Run, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT id FROM runs WHERE repo_url = ? AND language = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		repoURL, language,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return s.GetRun(id)
}

// GetRun loads a run by id. Returns nil if the run is not found.
func (s *Store) GetRun(id string) (*Run, error) {
	var r Run
	var structure string
	err := s.db.QueryRow(
		`SELECT id, repo_url, language, structure, warning, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.RepoURL, &r.Language, &structure, &r.Warning, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if err := json.Unmarshal([]byte(structure), &r.Structure); err != nil {
		return nil, fmt.Errorf("unmarshal structure for run %s: %w", id, err)
	}

	rows, err := s.db.Query(
		`SELECT page_id, content, original FROM pages
		 WHERE run_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get pages: %w", err)
	}
	defer rows.Close()

	content := map[string]string{}
	r.Originals = map[string]string{}
	for rows.Next() {
		var pageID, c, orig string
		if err := rows.Scan(&pageID, &c, &orig); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		content[pageID] = c
		if orig != "" {
			r.Originals[pageID] = orig
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range r.Structure.Pages {
		c, ok := content[p.ID]
		if !ok || c == "" {
			c = wiki.NotGeneratedContent
		}
		p.Content = c
		r.Pages = append(r.Pages, p)
	}
	return &r, nil
}

// ListRuns returns summaries of stored runs for a repository, newest
// first. An empty repoURL lists every run.
func (s *Store) ListRuns(repoURL string) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.repo_url, r.language, r.structure, r.created_at,
		        (SELECT COUNT(*) FROM pages p WHERE p.run_id = r.id)
		 FROM runs r WHERE ? = '' OR r.repo_url = ?
		 ORDER BY r.created_at DESC, r.rowid DESC`,
		repoURL, repoURL,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var rs RunSummary
		var structure string
		if err := rows.Scan(&rs.ID, &rs.RepoURL, &rs.Language, &structure, &rs.CreatedAt, &rs.PageCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var st wiki.Structure
		if err := json.Unmarshal([]byte(structure), &st); err == nil {
			rs.Title = st.Title
		}
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its pages.
func (s *Store) DeleteRun(id string) error {
	if _, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
