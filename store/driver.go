package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// Persona model related methods.
	UpsertPersona(ctx context.Context, upsert *UpsertPersona) (*Persona, error)
	ListPersonas(ctx context.Context, find *FindPersona) ([]*Persona, error)

	// ChatMessage model related methods.
	CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)

	// MemoryVector model related methods.
	UpsertMemoryVector(ctx context.Context, upsert *MemoryVector) error
	MemoryVectorSearch(ctx context.Context, opts *MemoryVectorSearchOptions) ([]*MemoryVectorWithScore, error)
}
