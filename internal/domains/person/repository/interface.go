package repository

import (
	"context"

	"familytree-backend/internal/domains/person/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface is the Record Store for people.
type RepositoryInterface interface {
	Create(ctx context.Context, p *model.Person) (*model.Person, error)
	// GetByID returns model.ErrPersonNotFound when the id is unknown. Reads may be served from cache.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Person, error)
	// GetByIDDirect is GetByID without the cache, for read-modify-write paths.
	GetByIDDirect(ctx context.Context, id uuid.UUID) (*model.Person, error)
	// List returns one page ordered by first_name, person_id and the total matching the filter.
	List(ctx context.Context, filter model.ListFilter) ([]model.Person, int64, error)
	// Update overwrites every mutable column, photo included.
	Update(ctx context.Context, p *model.Person) (*model.Person, error)
	// UpdateDetails overwrites every mutable column except photo.
	UpdateDetails(ctx context.Context, p *model.Person) (*model.Person, error)
	SetPhoto(ctx context.Context, id uuid.UUID, photo *string) error
	// Delete removes one row and returns it as it was.
	Delete(ctx context.Context, id uuid.UUID) (*model.Person, error)
	// DeleteMany removes every matching row and returns the deleted rows. Unknown ids are ignored.
	DeleteMany(ctx context.Context, ids []uuid.UUID) ([]model.Person, error)
	// ListPhotoNames returns every photo name referenced by a row.
	ListPhotoNames(ctx context.Context) ([]string, error)
}

// Querier is the part of *pgxpool.Pool the repository uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PoolProvider hands out the shared pool, opening it on first use.
type PoolProvider interface {
	GetPool(ctx context.Context) (*pgxpool.Pool, error)
}
