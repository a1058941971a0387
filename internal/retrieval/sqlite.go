package retrieval

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// rrfK is the reciprocal rank fusion constant: a chunk's fused score is the
// sum of 1/(rrfK + rank) over the ranked lists it appears in. 60 is the
// conventional value; smaller values overweight the top of each list.
const rrfK = 60

// Compile-time checks that SQLiteBackend implements both search backends.
var (
	_ HybridBackend = (*SQLiteBackend)(nil)
	_ TextBackend   = (*SQLiteBackend)(nil)
)

// SQLiteBackend serves both search paths from the document_chunks table:
// brute-force cosine similarity over embedding blobs for the vector list and
// the chunk_fts FTS5 index for the full-text list.
//
// Brute force is adequate into the tens of thousands of chunks per matter;
// beyond that an ANN-capable store should replace the vector phase.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend wraps an existing *sql.DB for chunk search and storage.
// The document_chunks and chunk_fts tables must already exist (created via
// migrations).
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// InsertChunks adds chunks in one transaction. The FTS index is maintained
// by triggers.
func (b *SQLiteBackend) InsertChunks(ctx context.Context, chunks []Chunk) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks
			(id, matter_id, file_id, file_name, file_type, page_number,
			 section_heading, timestamp_start, content, embedding,
			 embedding_provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		var blob []byte
		if len(c.Embedding) > 0 {
			blob = encodeFloat32s(c.Embedding)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := stmt.ExecContext(ctx,
			c.ID, c.MatterID, c.FileID, c.FileName, c.FileType,
			c.PageNumber, c.SectionHeading, c.TimestampStart, c.Content,
			blob, c.EmbeddingProvider, createdAt.Format(time.RFC3339))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteFileChunks removes all chunks belonging to a file.
func (b *SQLiteBackend) DeleteFileChunks(ctx context.Context, fileID string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM document_chunks WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("deleting chunks for file %s: %w", fileID, err)
	}
	return nil
}

// SearchHybrid ranks chunks by vector similarity and by full-text relevance,
// then fuses the two lists with reciprocal rank fusion. Chunks whose stored
// embedding dimensionality differs from the query vector's are excluded from
// the vector list: vectors from different providers are not comparable.
func (b *SQLiteBackend) SearchHybrid(ctx context.Context, query string, embedding []float32, scope Scope, limit int) ([]SearchResult, error) {
	vectorIDs, err := b.vectorRank(ctx, embedding, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("vector ranking: %w", err)
	}
	textIDs, err := b.textRank(ctx, query, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("text ranking: %w", err)
	}

	fused := make(map[string]float64)
	for rank, id := range vectorIDs {
		fused[id] += 1.0 / float64(rrfK+rank+1)
	}
	for rank, id := range textIDs {
		fused[id] += 1.0 / float64(rrfK+rank+1)
	}
	if len(fused) == 0 {
		return []SearchResult{}, nil
	}

	ids := make([]string, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if fused[ids[i]] != fused[ids[j]] {
			return fused[ids[i]] > fused[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}

	results, err := b.fetchChunks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Score = fused[results[i].ChunkID]
	}
	return results, nil
}

// SearchText is the degraded path: full-text only, uniform score 1.
func (b *SQLiteBackend) SearchText(ctx context.Context, query string, scope Scope, limit int) ([]SearchResult, error) {
	ids, err := b.textRank(ctx, query, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("text ranking: %w", err)
	}
	if len(ids) == 0 {
		return []SearchResult{}, nil
	}

	results, err := b.fetchChunks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Score = 1
	}
	return results, nil
}

// vectorRank returns chunk IDs ordered by cosine similarity to the query
// embedding, best first. Ties are broken by chunk ID so rank positions are
// stable across calls.
func (b *SQLiteBackend) vectorRank(ctx context.Context, embedding []float32, scope Scope, limit int) ([]string, error) {
	queryNorm := norm(embedding)
	if queryNorm == 0 {
		return nil, nil
	}

	where, args := scopeClause(scope)
	where = append(where, "embedding IS NOT NULL")

	q := "SELECT id, embedding FROM document_chunks WHERE " + strings.Join(where, " AND ")
	rows, err := b.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	type idScore struct {
		id    string
		score float64
	}
	var scored []idScore

	// Reusable buffer for decoding embeddings to avoid per-row allocations.
	var buf []float32

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}
		// A dimension mismatch means this chunk was embedded by a different
		// provider; its vector is incomparable, not merely dissimilar.
		if len(buf) != len(embedding) {
			continue
		}

		scored = append(scored, idScore{id: id, score: cosine(embedding, buf, queryNorm)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].id < scored[j].id
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.id
	}
	return ids, nil
}

// textRank returns chunk IDs ordered by BM25 relevance, best first.
func (b *SQLiteBackend) textRank(ctx context.Context, query string, scope Scope, limit int) ([]string, error) {
	match := ftsMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	where, args := scopeClause(scope)
	q := `SELECT c.id FROM chunk_fts
		JOIN document_chunks c ON c.rowid = chunk_fts.rowid
		WHERE chunk_fts MATCH ?`
	queryArgs := append([]any{match}, args...)
	for _, w := range where {
		q += " AND c." + w
	}
	q += " ORDER BY bm25(chunk_fts), c.id LIMIT ?"
	queryArgs = append(queryArgs, limit)

	rows, err := b.db.QueryContext(ctx, q, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying full-text index: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (b *SQLiteBackend) fetchChunks(ctx context.Context, ids []string) ([]SearchResult, error) {
	if len(ids) == 0 {
		return []SearchResult{}, nil
	}

	queryArgs := make([]any, len(ids))
	for i, id := range ids {
		queryArgs[i] = id
	}
	q := `SELECT id, file_id, content, page_number, section_heading,
			file_name, file_type, timestamp_start
		FROM document_chunks WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`

	rows, err := b.db.QueryContext(ctx, q, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("fetching chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]SearchResult, len(ids))
	for rows.Next() {
		var r SearchResult
		var page sql.NullInt64
		var section sql.NullString
		var ts sql.NullFloat64
		if err := rows.Scan(&r.ChunkID, &r.FileID, &r.Content, &page,
			&section, &r.SourceFileName, &r.SourceFileType, &ts); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if page.Valid {
			p := int(page.Int64)
			r.PageNumber = &p
		}
		if section.Valid && section.String != "" {
			s := section.String
			r.SectionHeading = &s
		}
		if ts.Valid {
			t := ts.Float64
			r.TimestampStart = &t
		}
		byID[r.ChunkID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	// Preserve the caller's id ordering (IN queries do not).
	results := make([]SearchResult, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			results = append(results, r)
		}
	}
	return results, nil
}

// scopeClause builds WHERE conditions restricting a query to the scope.
func scopeClause(scope Scope) ([]string, []any) {
	where := []string{"matter_id = ?"}
	args := []any{scope.MatterID}

	if scope.FileType != "" {
		where = append(where, "file_type = ?")
		args = append(args, scope.FileType)
	}
	if len(scope.FileIDs) > 0 {
		where = append(where, "file_id IN (?"+strings.Repeat(",?", len(scope.FileIDs)-1)+")")
		for _, id := range scope.FileIDs {
			args = append(args, id)
		}
	}
	return where, args
}

// ftsMatchExpr converts free text into a safe FTS5 MATCH expression:
// alphanumeric tokens, each quoted, joined with OR. Returns "" when the
// query contains no usable tokens.
func ftsMatchExpr(query string) string {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, ``) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into dst, reusing its
// backing array when large enough.
func decodeFloat32sInto(dst []float32, data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(data))
	}
	n := len(data) / 4
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return dst, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine computes cosine similarity as dot(a,b) / (|a| * |b|).
// aNorm is the precomputed L2 norm of a.
func cosine(a, b []float32, aNorm float64) float64 {
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return dot / (aNorm * bNorm)
}
