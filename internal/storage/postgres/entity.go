package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

// EntityRepository implements world.Store over the world_entities table.
// Attributes are stored as JSONB; ownership is a foreign key so removing an
// owner cascades to its children.
//
// Numbers round-trip through JSON and come back as float64.
type EntityRepository struct {
	db *pgxpool.Pool
}

var _ world.Store = (*EntityRepository)(nil)

// NewEntityRepository creates an EntityRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with migrations
// applied.
func NewEntityRepository(db *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{db: db}
}

// Find implements world.Store.
func (r *EntityRepository) Find(ctx context.Context, q world.Query) ([]*world.Entity, error) {
	if !q.Kind.Valid() {
		return nil, fmt.Errorf("finding entities: unknown kind %q", q.Kind)
	}

	var (
		where = []string{"kind = $1"}
		args  = []any{string(q.Kind)}
	)
	if q.NameFilter() {
		args = append(args, q.Name)
		where = append(where, fmt.Sprintf("COALESCE(attrs ->> 'name', '') = $%d", len(args)))
	}
	if q.Parent != "" {
		parent, err := uuid.Parse(q.Parent)
		if err != nil {
			return []*world.Entity{}, nil
		}
		args = append(args, parent.String())
		where = append(where, fmt.Sprintf("parent_id = $%d::uuid", len(args)))
	}

	rows, err := r.db.Query(ctx,
		`SELECT id::text, kind, attrs::text FROM world_entities WHERE `+
			strings.Join(where, " AND ")+` ORDER BY seq ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("finding %s entities: %w", q.Kind, err)
	}
	defer rows.Close()

	out := make([]*world.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s entities: %w", q.Kind, err)
	}
	return out, nil
}

// Create implements world.Store. A child whose owner does not exist is
// rejected with world.ErrRejected.
func (r *EntityRepository) Create(ctx context.Context, kind world.Kind, attrs world.Attributes) (*world.Entity, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("creating entity: unknown kind %q", kind)
	}

	e := &world.Entity{Kind: kind, Attrs: world.Merge(attrs)}
	var parent *string
	if p := e.Parent(); p != "" {
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("creating %s: owner %q: %w", kind, p, world.ErrRejected)
		}
		s := id.String()
		parent = &s
	}

	body, err := json.Marshal(e.Attrs)
	if err != nil {
		return nil, fmt.Errorf("encoding %s attributes: %w", kind, err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO world_entities (kind, parent_id, attrs)
		VALUES ($1, $2::uuid, $3::text::jsonb)
		RETURNING id::text, attrs::text`,
		string(kind), parent, string(body),
	).Scan(&e.ID, jsonAttrs{&e.Attrs})
	if err != nil {
		if isForeignKeyError(err) {
			return nil, fmt.Errorf("creating %s: owner %q: %w", kind, *parent, world.ErrRejected)
		}
		return nil, fmt.Errorf("inserting %s: %w", kind, err)
	}
	return e, nil
}

// Update implements world.Store. Ownership is fixed at creation; an
// ownership field in attrs is stored but does not move the entity.
func (r *EntityRepository) Update(ctx context.Context, id string, attrs world.Attributes) (*world.Entity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("updating %q: %w", id, world.ErrNotFound)
	}
	body, err := json.Marshal(world.Merge(attrs))
	if err != nil {
		return nil, fmt.Errorf("encoding attributes for %q: %w", id, err)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE world_entities
		SET attrs = attrs || $2::text::jsonb, updated_at = NOW()
		WHERE id = $1::uuid
		RETURNING id::text, kind, attrs::text`,
		id, string(body),
	)
	e, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("updating %q: %w", id, world.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("updating %q: %w", id, err)
	}
	return e, nil
}

// Remove implements world.Store. Owned entities go with their owner through
// ON DELETE CASCADE.
func (r *EntityRepository) Remove(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("removing %q: %w", id, world.ErrNotFound)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM world_entities WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("removing %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("removing %q: %w", id, world.ErrNotFound)
	}
	return nil
}

// Count returns the number of stored entities.
func (r *EntityRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM world_entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entities: %w", err)
	}
	return n, nil
}

// jsonAttrs scans a JSON text column into world.Attributes.
type jsonAttrs struct {
	dst *world.Attributes
}

// Scan implements sql.Scanner.
func (j jsonAttrs) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case nil:
		*j.dst = world.Attributes{}
		return nil
	default:
		return fmt.Errorf("scanning attributes: unsupported type %T", src)
	}
	attrs := world.Attributes{}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return fmt.Errorf("decoding attributes: %w", err)
	}
	*j.dst = attrs
	return nil
}

func scanEntity(row pgx.Row) (*world.Entity, error) {
	var (
		e    world.Entity
		kind string
	)
	if err := row.Scan(&e.ID, &kind, jsonAttrs{&e.Attrs}); err != nil {
		return nil, err
	}
	e.Kind = world.Kind(kind)
	return &e, nil
}

// isForeignKeyError reports a foreign_key_violation (SQLSTATE 23503).
func isForeignKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23503"
	}
	return false
}
