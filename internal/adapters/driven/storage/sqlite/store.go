// Package sqlite provides the SQLite-backed document index, chat store
// and job history. Keyword search uses an FTS5 virtual table; vector
// search scans stored embedding blobs and ranks by cosine similarity.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragdex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.ragdex/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragdex", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ChatStore returns a ChatStore interface backed by this store.
func (s *Store) ChatStore() driven.ChatStore {
	return &chatStore{store: s}
}

// JobStore returns a JobStore interface backed by this store.
func (s *Store) JobStore() driven.JobStore {
	return &jobStore{store: s}
}

func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g. "0001_init.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const chunkColumns = "c.id, c.document_id, c.chunk_index, c.content, c.char_start, c.char_end, c.embedding, c.tags, c.metadata, c.created_at"

// IndexChunks bulk-inserts embedded chunks and upserts the document
// rows they belong to. Chunks carry the document-level metadata bag;
// the document aggregate is derived from the first chunk seen per
// document id.
func (d *documentStore) IndexChunks(ctx context.Context, chunks []domain.EmbeddedChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool)
	for _, ch := range chunks {
		if !seen[ch.DocumentID] {
			if err := upsertDocument(ctx, tx, ch); err != nil {
				return 0, err
			}
			seen[ch.DocumentID] = true
		}

		tagsJSON, err := marshalList(ch.Tags)
		if err != nil {
			return 0, fmt.Errorf("marshalling tags: %w", err)
		}
		metaJSON, err := marshalMap(ch.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshalling metadata: %w", err)
		}

		createdAt := ch.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, chunk_index, content, char_start, char_end, embedding, tags, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ch.ID, ch.DocumentID, ch.Index, ch.Text, ch.CharStart, ch.CharEnd,
			float32SliceToBytes(ch.Embedding), tagsJSON, metaJSON, createdAt)
		if err != nil {
			return 0, fmt.Errorf("inserting chunk %d of document %s: %w", ch.Index, ch.DocumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(chunks), nil
}

func upsertDocument(ctx context.Context, tx *sql.Tx, ch domain.EmbeddedChunk) error {
	filename, _ := ch.Metadata["filename"].(string)
	sourceType, _ := ch.Metadata["source_type"].(string)

	tagsJSON, err := marshalList(ch.Tags)
	if err != nil {
		return fmt.Errorf("marshalling document tags: %w", err)
	}
	metaJSON, err := marshalMap(ch.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling document metadata: %w", err)
	}

	createdAt := ch.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, source_type, tags, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			source_type = excluded.source_type,
			tags = excluded.tags,
			metadata = excluded.metadata
	`, ch.DocumentID, filename, sourceType, tagsJSON, metaJSON, createdAt)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", ch.DocumentID, err)
	}
	return nil
}

// KeywordSearch runs a lexical FTS5 query. Terms are individually
// quoted and joined with OR so that raw user input cannot break the
// MATCH syntax. Scores are negated bm25 values, higher is better.
func (d *documentStore) KeywordSearch(ctx context.Context, query string, limit int, tags []string) ([]driven.SearchHit, error) {
	match := ftsMatchExpr(query)
	if match == "" || limit <= 0 {
		return nil, nil
	}

	q := `
		SELECT ` + chunkColumns + `, -bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ?`
	args := []any{match}

	filter, filterArgs := tagFilter(tags)
	q += filter
	args = append(args, filterArgs...)

	q += ` ORDER BY bm25(chunks_fts) LIMIT ?`
	args = append(args, limit)

	rows, err := d.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []driven.SearchHit
	for rows.Next() {
		ch, score, err := scanChunkWithScore(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, driven.SearchHit{Chunk: ch, Score: score})
	}
	return hits, rows.Err()
}

// VectorSearch scans all stored embeddings and ranks them by cosine
// similarity to the query vector. Linear scan is acceptable at the
// corpus sizes a single-user local index holds.
func (d *documentStore) VectorSearch(ctx context.Context, vector []float32, limit int, tags []string) ([]driven.SearchHit, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, nil
	}

	q := `
		SELECT ` + chunkColumns + `
		FROM chunks c
		WHERE c.embedding IS NOT NULL`
	filter, args := tagFilter(tags)
	q += filter

	rows, err := d.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []driven.SearchHit
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		sim := cosineSimilarity(vector, ch.Embedding)
		hits = append(hits, driven.SearchHit{Chunk: ch, Score: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// GetDocument returns the aggregate view of a document.
func (d *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := d.store.db.QueryRowContext(ctx, `
		SELECT d.id, d.filename, d.source_type, d.tags, d.metadata, d.created_at,
			(SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)
		FROM documents d WHERE d.id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents with chunk counts, newest first.
func (d *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT d.id, d.filename, d.source_type, d.tags, d.metadata, d.created_at,
			(SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)
		FROM documents d
		ORDER BY d.created_at DESC, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// GetDocumentChunks returns a document's chunks ordered by index.
func (d *documentStore) GetDocumentChunks(ctx context.Context, documentID string) ([]domain.EmbeddedChunk, error) {
	return d.chunkRange(ctx, documentID, 0, math.MaxInt32)
}

// GetNeighbours returns the chunks within +-window of the given index,
// including the centre chunk, ordered by index.
func (d *documentStore) GetNeighbours(ctx context.Context, documentID string, index, window int) ([]domain.EmbeddedChunk, error) {
	lo := index - window
	if lo < 0 {
		lo = 0
	}
	return d.chunkRange(ctx, documentID, lo, index+window)
}

func (d *documentStore) chunkRange(ctx context.Context, documentID string, lo, hi int) ([]domain.EmbeddedChunk, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c
		WHERE c.document_id = ? AND c.chunk_index BETWEEN ? AND ?
		ORDER BY c.chunk_index
	`, documentID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.EmbeddedChunk
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, ch)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document and all its chunks. Chunks are
// deleted explicitly rather than via cascade so the FTS sync triggers
// always fire.
func (d *documentStore) DeleteDocument(ctx context.Context, id string) (int, error) {
	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	chunksDeleted, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return int(chunksDeleted), nil
}

// FindDocumentBySource returns the id of an existing document with the
// same filename and source type.
func (d *documentStore) FindDocumentBySource(ctx context.Context, filename, sourceType string) (string, error) {
	var id string
	err := d.store.db.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE filename = ? AND source_type = ?",
		filename, sourceType).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("finding document by source: %w", err)
	}
	return id, nil
}

// UpdateDocumentTags replaces the tags on a document and its chunks.
func (d *documentStore) UpdateDocumentTags(ctx context.Context, documentID string, tags []string) (int, error) {
	tagsJSON, err := marshalList(tags)
	if err != nil {
		return 0, fmt.Errorf("marshalling tags: %w", err)
	}

	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE documents SET tags = ? WHERE id = ?", tagsJSON, documentID)
	if err != nil {
		return 0, fmt.Errorf("updating document tags: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.ErrNotFound
	}

	res, err = tx.ExecContext(ctx, "UPDATE chunks SET tags = ? WHERE document_id = ?", tagsJSON, documentID)
	if err != nil {
		return 0, fmt.Errorf("updating chunk tags: %w", err)
	}
	updated, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return int(updated), nil
}

// AllEmbeddingsByDocument returns every stored embedding grouped by
// document id.
func (d *documentStore) AllEmbeddingsByDocument(ctx context.Context) (map[string][][]float32, error) {
	rows, err := d.store.db.QueryContext(ctx,
		"SELECT document_id, embedding FROM chunks WHERE embedding IS NOT NULL ORDER BY document_id, chunk_index")
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	result := make(map[string][][]float32)
	for rows.Next() {
		var docID string
		var blob []byte
		if err := rows.Scan(&docID, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		result[docID] = append(result[docID], bytesToFloat32Slice(blob))
	}
	return result, rows.Err()
}

// Close is a no-op on the wrapper; the owning Store closes the database.
func (d *documentStore) Close() error {
	return nil
}

// ==================== Chat Store ====================

// chatStore implements driven.ChatStore.
type chatStore struct {
	store *Store
}

var _ driven.ChatStore = (*chatStore)(nil)

// SaveChat stores or replaces a chat.
func (c *chatStore) SaveChat(ctx context.Context, chat *domain.Chat) error {
	messages := chat.Messages
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshalling messages: %w", err)
	}

	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO chats (id, title, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`, chat.ID, chat.Title, string(messagesJSON), chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving chat: %w", err)
	}
	return nil
}

// GetChat retrieves a chat by id.
func (c *chatStore) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	var chat domain.Chat
	var messagesJSON string
	err := c.store.db.QueryRowContext(ctx,
		"SELECT id, title, messages, created_at, updated_at FROM chats WHERE id = ?", id).
		Scan(&chat.ID, &chat.Title, &messagesJSON, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting chat: %w", err)
	}

	if err := json.Unmarshal([]byte(messagesJSON), &chat.Messages); err != nil {
		return nil, fmt.Errorf("unmarshalling messages: %w", err)
	}
	chat.MessageCount = len(chat.Messages)
	return &chat, nil
}

// ListChats returns chat summaries newest first. Messages are not
// populated; the count comes from the stored JSON array length.
func (c *chatStore) ListChats(ctx context.Context) ([]domain.Chat, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, title, json_array_length(messages), created_at, updated_at
		FROM chats ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var chat domain.Chat
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.MessageCount, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// DeleteChat removes a chat.
func (c *chatStore) DeleteChat(ctx context.Context, id string) error {
	res, err := c.store.db.ExecContext(ctx, "DELETE FROM chats WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Job Store ====================

// jobStore implements driven.JobStore. Job snapshots are stored as a
// JSON payload; status and created_at are lifted into columns for
// filtering and ordering.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

// SaveJob stores or replaces a job record.
func (j *jobStore) SaveJob(ctx context.Context, job domain.JobView) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshalling job: %w", err)
	}

	_, err = j.store.db.ExecContext(ctx, `
		INSERT INTO jobs (id, payload, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			status = excluded.status
	`, job.ID, string(payload), string(job.Status), job.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id.
func (j *jobStore) GetJob(ctx context.Context, id string) (*domain.JobView, error) {
	var payload string
	err := j.store.db.QueryRowContext(ctx, "SELECT payload FROM jobs WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}

	var view domain.JobView
	if err := json.Unmarshal([]byte(payload), &view); err != nil {
		return nil, fmt.Errorf("unmarshalling job: %w", err)
	}
	return &view, nil
}

// ListJobs returns jobs newest first.
func (j *jobStore) ListJobs(ctx context.Context, limit int) ([]domain.JobView, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.store.db.QueryContext(ctx,
		"SELECT payload FROM jobs ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var views []domain.JobView
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		var view domain.JobView
		if err := json.Unmarshal([]byte(payload), &view); err != nil {
			return nil, fmt.Errorf("unmarshalling job: %w", err)
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

// ==================== Helper Functions ====================

// ftsMatchExpr builds a safe FTS5 MATCH expression from free-form user
// input. Each term is double-quoted so punctuation cannot be parsed as
// query syntax; terms are OR-ed to mirror best-match behaviour.
func ftsMatchExpr(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// tagFilter builds an inclusive tag predicate over the chunk's JSON
// tags column. Empty tags means no filtering.
func tagFilter(tags []string) (string, []any) {
	if len(tags) == 0 {
		return "", nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	args := make([]any, len(tags))
	for i, t := range tags {
		args[i] = t
	}
	return ` AND EXISTS (SELECT 1 FROM json_each(c.tags) WHERE json_each.value IN (` + placeholders + `))`, args
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity computes the cosine of the angle between two
// vectors. Returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(rows *sql.Rows) (domain.EmbeddedChunk, error) {
	var ch domain.EmbeddedChunk
	var blob []byte
	var tagsJSON, metaJSON string
	err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Index, &ch.Text, &ch.CharStart, &ch.CharEnd,
		&blob, &tagsJSON, &metaJSON, &ch.CreatedAt)
	if err != nil {
		return domain.EmbeddedChunk{}, fmt.Errorf("scanning chunk: %w", err)
	}
	return decodeChunk(ch, blob, tagsJSON, metaJSON)
}

func scanChunkWithScore(rows *sql.Rows) (domain.EmbeddedChunk, float64, error) {
	var ch domain.EmbeddedChunk
	var blob []byte
	var tagsJSON, metaJSON string
	var score float64
	err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Index, &ch.Text, &ch.CharStart, &ch.CharEnd,
		&blob, &tagsJSON, &metaJSON, &ch.CreatedAt, &score)
	if err != nil {
		return domain.EmbeddedChunk{}, 0, fmt.Errorf("scanning chunk: %w", err)
	}
	decoded, err := decodeChunk(ch, blob, tagsJSON, metaJSON)
	return decoded, score, err
}

func decodeChunk(ch domain.EmbeddedChunk, blob []byte, tagsJSON, metaJSON string) (domain.EmbeddedChunk, error) {
	ch.Embedding = bytesToFloat32Slice(blob)
	if err := json.Unmarshal([]byte(tagsJSON), &ch.Tags); err != nil {
		return domain.EmbeddedChunk{}, fmt.Errorf("unmarshalling chunk tags: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &ch.Metadata); err != nil {
		return domain.EmbeddedChunk{}, fmt.Errorf("unmarshalling chunk metadata: %w", err)
	}
	return ch, nil
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var tagsJSON, metaJSON string
	err := row.Scan(&doc.ID, &doc.Filename, &doc.SourceType, &tagsJSON, &metaJSON, &doc.CreatedAt, &doc.ChunkCount)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling document tags: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling document metadata: %w", err)
	}
	return &doc, nil
}

// marshalList marshals a string slice, defaulting nil to an empty array.
func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

// marshalMap marshals a metadata map, defaulting nil to an empty object.
func marshalMap(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	return string(b), err
}
