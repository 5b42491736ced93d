package postgres

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/verdant/store"
)

// insertMemoryVectorStmt never overwrites: memories are append-only and a
// duplicate ID fails on the primary key.
var insertMemoryVectorStmt = `
		INSERT INTO memory_vector (id, embedding, metadata)
		VALUES (` + placeholders(3) + `)
		RETURNING created_ts
	`

// UpsertMemoryVector appends a memory vector. A duplicate ID is an error.
func (d *DB) UpsertMemoryVector(ctx context.Context, upsert *store.MemoryVector) error {
	metadata, err := json.Marshal(upsert.Metadata)
	if err != nil {
		return errors.Wrap(err, "failed to marshal memory metadata")
	}
	if upsert.Metadata == nil {
		metadata = []byte("{}")
	}

	if err := d.db.QueryRowContext(ctx, insertMemoryVectorStmt,
		upsert.ID,
		pgvector.NewVector(upsert.Embedding),
		string(metadata),
	).Scan(&upsert.CreatedTs); err != nil {
		return errors.Wrapf(err, "failed to insert memory vector %q", upsert.ID)
	}
	return nil
}

// MemoryVectorSearch performs cosine similarity search using pgvector.
func (d *DB) MemoryVectorSearch(ctx context.Context, opts *store.MemoryVectorSearchOptions) ([]*store.MemoryVectorWithScore, error) {
	query, args := buildMemoryVectorSearch(opts)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memory vectors")
	}
	defer rows.Close()

	list := []*store.MemoryVectorWithScore{}
	for rows.Next() {
		var (
			mv       store.MemoryVector
			vector   pgvector.Vector
			metadata []byte
			score    float32
		)
		if err := rows.Scan(&mv.ID, &vector, &metadata, &mv.CreatedTs, &score); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory vector")
		}
		mv.Embedding = vector.Slice()
		if err := json.Unmarshal(metadata, &mv.Metadata); err != nil {
			return nil, errors.Wrapf(err, "failed to decode metadata of memory vector %s", mv.ID)
		}
		list = append(list, &store.MemoryVectorWithScore{MemoryVector: &mv, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// buildMemoryVectorSearch renders the search query. Filter keys are validated
// by the store and sorted so the statement text is stable.
func buildMemoryVectorSearch(opts *store.MemoryVectorSearchOptions) (string, []any) {
	where, args := []string{"1 = 1"}, []any{}

	keys := make([]string, 0, len(opts.Filter))
	for k := range opts.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		where = append(where, "metadata->>"+placeholder(len(args)+1)+"::text = "+placeholder(len(args)+2))
		args = append(args, k, opts.Filter[k])
	}

	// The <=> operator computes cosine distance (1 - cosine_similarity),
	// so ordering by distance ASC returns the most similar first.
	vecIdx := len(args) + 1
	query := `
		SELECT id, embedding, metadata, created_ts, 1 - (embedding <=> ` + placeholder(vecIdx) + `) AS score
		FROM memory_vector
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> ` + placeholder(vecIdx) + `
		LIMIT ` + placeholder(vecIdx+1)
	args = append(args, pgvector.NewVector(opts.Vector), opts.Limit)

	return query, args
}
