package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

// Record is one document's denormalized extracted metadata.
type Record struct {
	Path        string
	Title       string
	Description string
	Preview     string
	Fingerprint string
	Tags        []string
	Dates       []string
	CreatedAt   time.Time
	IndexedAt   time.Time
}

// Upsert inserts or fully replaces the record for rec.Path, including its
// tag and date associations, within a single transaction. A reader never
// observes a partially updated record.
func (db *DB) Upsert(rec Record) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, description, preview, fingerprint, created_at, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			preview     = excluded.preview,
			fingerprint = excluded.fingerprint,
			created_at  = excluded.created_at,
			indexed_at  = excluded.indexed_at
	`, rec.Path, rec.Title, rec.Description, rec.Preview, rec.Fingerprint, rec.CreatedAt, rec.IndexedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// Replace tag associations: delete old then relink.
	if _, err := tx.Exec(`DELETE FROM document_tags WHERE path = ?`, rec.Path); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	for _, tag := range rec.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag); err != nil {
			return fmt.Errorf("index: insert tag: %w", err)
		}
		var tagID int64
		if err := tx.QueryRow(`SELECT id FROM tags WHERE name = ?`, tag).Scan(&tagID); err != nil {
			return fmt.Errorf("index: tag id: %w", err)
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO document_tags (path, tag_id) VALUES (?, ?)`, rec.Path, tagID); err != nil {
			return fmt.Errorf("index: link tag: %w", err)
		}
	}

	// Replace date associations.
	if _, err := tx.Exec(`DELETE FROM document_dates WHERE path = ?`, rec.Path); err != nil {
		return fmt.Errorf("index: clear dates: %w", err)
	}
	for _, date := range rec.Dates {
		if date == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO document_dates (path, date) VALUES (?, ?)`, rec.Path, date); err != nil {
			return fmt.Errorf("index: link date: %w", err)
		}
	}

	return tx.Commit()
}

// Delete removes a document and its associations. Deleting a path that is
// not indexed is a no-op.
func (db *DB) Delete(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM document_tags WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM document_dates WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// Get returns the stored record for path, or apperr.ErrNotFound when the
// path is not indexed.
func (db *DB) Get(path string) (*Record, error) {
	rec := Record{Path: path}
	var created sql.NullTime
	err := db.conn.QueryRow(`
		SELECT title, description, preview, fingerprint, created_at, indexed_at
		FROM documents WHERE path = ?
	`, path).Scan(&rec.Title, &rec.Description, &rec.Preview, &rec.Fingerprint, &created, &rec.IndexedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("index: get %s: %w", path, err)
	}
	if created.Valid {
		rec.CreatedAt = created.Time
	}

	rec.Tags, err = db.tagsFor(path)
	if err != nil {
		return nil, err
	}
	rec.Dates, err = db.datesFor(path)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// QueryByDate returns paths of documents with at least one extracted date
// in [from, to], both inclusive, in YYYY-MM-DD form.
func (db *DB) QueryByDate(from, to string) ([]string, error) {
	return db.pathQuery(`
		SELECT DISTINCT path FROM document_dates
		WHERE date >= ? AND date <= ?
		ORDER BY path
	`, from, to)
}

// QueryByTag returns paths of documents carrying the exact tag
// (case-insensitive).
func (db *DB) QueryByTag(tag string) ([]string, error) {
	return db.pathQuery(`
		SELECT DISTINCT dt.path
		FROM document_tags dt
		JOIN tags t ON t.id = dt.tag_id
		WHERE t.name = ?
		ORDER BY dt.path
	`, strings.ToLower(strings.TrimSpace(tag)))
}

// QueryByFilename returns paths whose vault-relative path contains the
// fragment (substring match).
func (db *DB) QueryByFilename(fragment string) ([]string, error) {
	return db.pathQuery(`
		SELECT path FROM documents
		WHERE path LIKE ? ESCAPE '\'
		ORDER BY CASE WHEN path = ? THEN 0 ELSE 1 END, length(path), path
	`, "%"+likeEscape(fragment)+"%", fragment)
}

// QueryByContent returns paths whose stored preview contains the keyword
// (substring match). Used only as the retrieval fallback.
func (db *DB) QueryByContent(keyword string) ([]string, error) {
	return db.pathQuery(`
		SELECT path FROM documents
		WHERE preview LIKE ? ESCAPE '\'
		ORDER BY path
	`, "%"+likeEscape(keyword)+"%")
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllFingerprints returns path → fingerprint for every indexed document.
func (db *DB) AllFingerprints() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, fingerprint FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all fingerprints: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, fp string
		if err := rows.Scan(&p, &fp); err != nil {
			return nil, err
		}
		out[p] = fp
	}
	return out, rows.Err()
}

// Stats returns the number of indexed documents and distinct tags.
func (db *DB) Stats() (documents, tags int, err error) {
	if err = db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&documents); err != nil {
		return 0, 0, fmt.Errorf("index: stats: %w", err)
	}
	if err = db.conn.QueryRow(`SELECT count(*) FROM tags`).Scan(&tags); err != nil {
		return 0, 0, fmt.Errorf("index: stats: %w", err)
	}
	return documents, tags, nil
}

func (db *DB) pathQuery(query string, args ...any) ([]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) tagsFor(path string) ([]string, error) {
	return db.pathQuery(`
		SELECT t.name FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		WHERE dt.path = ?
		ORDER BY t.name
	`, path)
}

func (db *DB) datesFor(path string) ([]string, error) {
	return db.pathQuery(`
		SELECT date FROM document_dates
		WHERE path = ?
		ORDER BY date
	`, path)
}

// likeEscape escapes LIKE wildcards so user input matches literally.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
