package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/verdant/internal/profile"
	"github.com/hrygo/verdant/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the PostgreSQL database at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// Open the PostgreSQL connection
	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema if it does not exist yet.
// The vector column width follows the configured embedding dimensions.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schemaSQL(d.profile.EmbeddingDimensions)); err != nil {
		return errors.Wrap(err, "failed to migrate postgres schema")
	}
	return nil
}

func schemaSQL(dims int) string {
	if dims <= 0 {
		dims = 1024
	}
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS persona (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	plant_id BIGINT NOT NULL,
	nickname TEXT NOT NULL DEFAULT '',
	plant_name TEXT NOT NULL DEFAULT '',
	species TEXT NOT NULL DEFAULT '',
	personality TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
	UNIQUE (user_id, plant_id)
);

CREATE TABLE IF NOT EXISTS chat_message (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	plant_id BIGINT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
);

CREATE INDEX IF NOT EXISTS idx_chat_message_user_plant ON chat_message (user_id, plant_id, id);

CREATE TABLE IF NOT EXISTS memory_vector (
	id TEXT PRIMARY KEY,
	embedding vector(%d) NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
);

CREATE INDEX IF NOT EXISTS idx_memory_vector_metadata ON memory_vector USING GIN (metadata);
CREATE INDEX IF NOT EXISTS idx_memory_vector_embedding ON memory_vector USING hnsw (embedding vector_cosine_ops);
`, dims)
}

func placeholder(n int) string {
	return "$" + fmt.Sprint(n)
}

func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
