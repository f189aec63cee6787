package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"familytree-backend/internal/domains/person/model"
	"familytree-backend/internal/shared/utils"
	"familytree-backend/pkg/cache"
	"familytree-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type postgresRepository struct {
	querier func(ctx context.Context) (Querier, error)
	cache   cache.Cache
}

func NewPostgresRepository(db PoolProvider, cache cache.Cache) RepositoryInterface {
	return newRepository(func(ctx context.Context) (Querier, error) {
		pool, err := db.GetPool(ctx)
		if err != nil {
			return nil, err
		}
		return pool, nil
	}, cache)
}

func newRepository(querier func(ctx context.Context) (Querier, error), cache cache.Cache) *postgresRepository {
	return &postgresRepository{
		querier: querier,
		cache:   cache,
	}
}

// Cache key constants
const (
	personCacheKeyPrefix = "person:"
	peopleListKeyPrefix  = "people:list:"
	cacheTTL             = 15 * time.Minute
)

const personColumns = `person_id, first_name, father_last_name, mother_last_name, gender, birthday, photo, created_at, updated_at`

func scanPerson(row pgx.Row) (*model.Person, error) {
	var p model.Person
	err := row.Scan(
		&p.PersonID,
		&p.FirstName,
		&p.FatherLastName,
		&p.MotherLastName,
		&p.Gender,
		&p.Birthday,
		&p.Photo,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPeople(rows pgx.Rows) ([]model.Person, error) {
	defer rows.Close()

	people := make([]model.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating people: %w", err)
	}
	return people, nil
}

// mapWriteError turns constraint violations into ErrInvalidPerson.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23514", "22001", "22P02": // unique, check, string too long, invalid text
			return fmt.Errorf("%w: %s", model.ErrInvalidPerson, pgErr.Message)
		}
	}
	return fmt.Errorf("failed to %s person: %w", op, err)
}

func (r *postgresRepository) Create(ctx context.Context, p *model.Person) (*model.Person, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	query := `
        INSERT INTO people (first_name, father_last_name, mother_last_name, gender, birthday, photo)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + personColumns

	created, err := scanPerson(q.QueryRow(ctx, query,
		p.FirstName,
		p.FatherLastName,
		p.MotherLastName,
		p.Gender,
		p.Birthday,
		p.Photo,
	))
	if err != nil {
		return nil, mapWriteError("create", err)
	}

	r.invalidateListCache(ctx)
	return created, nil
}

// GetByID retrieves a person by UUID with caching
func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	cacheKey := personCacheKeyPrefix + id.String()

	var cached model.Person
	if hit, err := r.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	p, err := r.GetByIDDirect(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, p, cacheTTL); err != nil {
		log.Debug().Err(err).Str("key", cacheKey).Msg("cache set failed")
	}
	return p, nil
}

// GetByIDDirect reads the row from PostgreSQL, bypassing the cache.
func (r *postgresRepository) GetByIDDirect(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + personColumns + ` FROM people WHERE person_id = $1`

	p, err := scanPerson(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPersonNotFound
		}
		return nil, fmt.Errorf("failed to get person by id: %w", err)
	}
	return p, nil
}

type cachedPage struct {
	Items []model.Person `json:"items"`
	Total int64          `json:"total"`
}

// BuildWhere renders the filter conditions as a WHERE clause with positional args starting at $1.
func BuildWhere(conds []model.Condition) (string, []interface{}) {
	if len(conds) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(conds))
	args := make([]interface{}, 0, len(conds))
	for i, c := range conds {
		col := pq.QuoteIdentifier(c.Field)
		switch c.Kind {
		case model.MatchEquals:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, i+1))
			args = append(args, c.Value)
		default:
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", col, i+1))
			args = append(args, utils.ContainsPattern(c.Value))
		}
	}
	return " WHERE " + utils.JoinWithAnd(clauses), args
}

func (r *postgresRepository) List(ctx context.Context, filter model.ListFilter) ([]model.Person, int64, error) {
	cacheable := filter.Limit <= model.MaxLimit
	cacheKey := peopleListKeyPrefix + filter.CacheKey()
	if cacheable {
		var page cachedPage
		if hit, err := r.cache.Get(ctx, cacheKey, &page); err == nil && hit {
			return page.Items, page.Total, nil
		}
	}

	q, err := r.querier(ctx)
	if err != nil {
		return nil, 0, err
	}

	where, args := BuildWhere(filter.Conditions)

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM people`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count people: %w", err)
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + personColumns + ` FROM people`)
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(` ORDER BY first_name ASC, person_id ASC`)
	queryBuilder.WriteString(fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2))
	args = append(args, filter.Limit, filter.Offset())

	rows, err := q.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query people: %w", err)
	}
	people, err := collectPeople(rows)
	if err != nil {
		return nil, 0, err
	}

	if cacheable {
		if err := r.cache.Set(ctx, cacheKey, cachedPage{Items: people, Total: total}, cacheTTL); err != nil {
			log.Debug().Err(err).Str("key", cacheKey).Msg("cache set failed")
		}
	}
	return people, total, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *model.Person) (*model.Person, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	query := `
        UPDATE people
        SET
            first_name = $1,
            father_last_name = $2,
            mother_last_name = $3,
            gender = $4,
            birthday = $5,
            photo = $6,
            updated_at = NOW()
        WHERE person_id = $7
        RETURNING ` + personColumns

	updated, err := scanPerson(q.QueryRow(ctx, query,
		p.FirstName,
		p.FatherLastName,
		p.MotherLastName,
		p.Gender,
		p.Birthday,
		p.Photo,
		p.PersonID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPersonNotFound
		}
		return nil, mapWriteError("update", err)
	}

	r.invalidate(ctx, p.PersonID)
	return updated, nil
}

func (r *postgresRepository) UpdateDetails(ctx context.Context, p *model.Person) (*model.Person, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	query := `
        UPDATE people
        SET
            first_name = $1,
            father_last_name = $2,
            mother_last_name = $3,
            gender = $4,
            birthday = $5,
            updated_at = NOW()
        WHERE person_id = $6
        RETURNING ` + personColumns

	updated, err := scanPerson(q.QueryRow(ctx, query,
		p.FirstName,
		p.FatherLastName,
		p.MotherLastName,
		p.Gender,
		p.Birthday,
		p.PersonID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPersonNotFound
		}
		return nil, mapWriteError("update", err)
	}

	r.invalidate(ctx, p.PersonID)
	return updated, nil
}

func (r *postgresRepository) SetPhoto(ctx context.Context, id uuid.UUID, photo *string) error {
	q, err := r.querier(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx,
		`UPDATE people SET photo = $1, updated_at = NOW() WHERE person_id = $2`,
		photo, id,
	)
	if err != nil {
		return mapWriteError("set photo of", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPersonNotFound
	}

	r.invalidate(ctx, id)
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	deleted, err := scanPerson(q.QueryRow(ctx,
		`DELETE FROM people WHERE person_id = $1 RETURNING `+personColumns,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPersonNotFound
		}
		return nil, fmt.Errorf("failed to delete person: %w", err)
	}

	r.invalidate(ctx, id)
	return deleted, nil
}

func (r *postgresRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) ([]model.Person, error) {
	if len(ids) == 0 {
		return []model.Person{}, nil
	}

	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	deleted, err := database.WithTransactionResult(ctx, q, func(tx pgx.Tx) ([]model.Person, error) {
		rows, err := tx.Query(ctx,
			`DELETE FROM people WHERE person_id = ANY($1) RETURNING `+personColumns,
			ids,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to delete people: %w", err)
		}
		return collectPeople(rows)
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, ids...)
	return deleted, nil
}

func (r *postgresRepository) ListPhotoNames(ctx context.Context) ([]string, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT photo FROM people WHERE photo IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to list photo names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan photo name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photo names: %w", err)
	}
	return names, nil
}

func (r *postgresRepository) invalidate(ctx context.Context, ids ...uuid.UUID) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = personCacheKeyPrefix + id.String()
	}
	if len(keys) > 0 {
		if err := r.cache.Delete(ctx, keys...); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate person cache")
		}
	}
	r.invalidateListCache(ctx)
}

func (r *postgresRepository) invalidateListCache(ctx context.Context) {
	if err := r.cache.DeletePattern(ctx, peopleListKeyPrefix+"*"); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate people list cache")
	}
}
