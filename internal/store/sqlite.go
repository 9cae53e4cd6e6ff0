package store

import (
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// metadataDB holds document and chunk rows in SQLite. The cross-process
// store lock serializes access, so a single connection is enough; WAL mode
// keeps readers cheap within the process.
type metadataDB struct {
	db *sql.DB
}

const metadataSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	author     TEXT NOT NULL,
	filename   TEXT NOT NULL,
	format     TEXT NOT NULL,
	length     INTEGER NOT NULL,
	indexed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	text        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
`

func openMetadata(path string) (*metadataDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening metadata db: %w", err)
	}

	// modernc.org/sqlite ignores DSN pragmas; set them via statements.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(metadataSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating metadata schema: %w", err)
	}

	return &metadataDB{db: db}, nil
}

// upsertDocument replaces the document row and all of its chunks in one
// transaction. Chunk IDs are derived from (document, seq) so a re-index
// overwrites in place; chunks beyond the new total are removed.
func (m *metadataDB) upsertDocument(doc Document, docID string, chunks []Chunk) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO documents (id, title, author, filename, format, length)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			filename = excluded.filename,
			format = excluded.format,
			length = excluded.length,
			indexed_at = CURRENT_TIMESTAMP`,
		docID, doc.Title, doc.Author, doc.Filename, doc.Format, doc.Length)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM chunks WHERE document_id = ? AND seq >= ?`, docID, len(chunks)); err != nil {
		return fmt.Errorf("trimming stale chunks: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (id, document_id, seq, total, text)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET total = excluded.total, text = excluded.text`)
	if err != nil {
		return fmt.Errorf("preparing chunk upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.Exec(c.ID, c.DocumentID, c.Seq, c.Total, c.Text); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// chunkRows fetches text and document metadata for the given chunk IDs,
// returned as a map keyed by chunk ID.
func (m *metadataDB) chunkRows(ids []string) (map[string]SimilarityHit, error) {
	out := make(map[string]SimilarityHit, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	stmt, err := m.db.Prepare(`
		SELECT c.id, c.text, d.title, d.author, d.filename, d.format, d.length
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.id = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing chunk lookup: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		var hit SimilarityHit
		err := stmt.QueryRow(id).Scan(&hit.ChunkID, &hit.Text,
			&hit.Meta.Title, &hit.Meta.Author, &hit.Meta.Filename,
			&hit.Meta.Format, &hit.Meta.Length)
		if err == sql.ErrNoRows {
			continue // vector index ahead of metadata; skip the stray hit
		}
		if err != nil {
			return nil, fmt.Errorf("looking up chunk %s: %w", id, err)
		}
		out[id] = hit
	}
	return out, nil
}

// documents lists every indexed book, sorted by filename.
func (m *metadataDB) documents() ([]DocumentMeta, error) {
	rows, err := m.db.Query(`SELECT title, author, filename, format, length FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentMeta
	for rows.Next() {
		var d DocumentMeta
		if err := rows.Scan(&d.Title, &d.Author, &d.Filename, &d.Format, &d.Length); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

// hasDocument reports whether a document row exists.
func (m *metadataDB) hasDocument(docID string) (bool, error) {
	var one int
	err := m.db.QueryRow(`SELECT 1 FROM documents WHERE id = ?`, docID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking document: %w", err)
	}
	return true, nil
}

// counts returns document and chunk totals.
func (m *metadataDB) counts() (Stats, error) {
	var s Stats
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&s.DocumentCount); err != nil {
		return s, fmt.Errorf("counting documents: %w", err)
	}
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&s.ChunkCount); err != nil {
		return s, fmt.Errorf("counting chunks: %w", err)
	}
	return s, nil
}

// reset removes every row.
func (m *metadataDB) reset() error {
	if _, err := m.db.Exec(`DELETE FROM chunks`); err != nil {
		return fmt.Errorf("resetting chunks: %w", err)
	}
	if _, err := m.db.Exec(`DELETE FROM documents`); err != nil {
		return fmt.Errorf("resetting documents: %w", err)
	}
	return nil
}

func (m *metadataDB) close() error {
	return m.db.Close()
}
