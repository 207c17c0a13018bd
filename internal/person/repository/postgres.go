package repository

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firestoretut/personstore/internal/person"
)

// PostgresRepo implements Store on a single table. The seq column keeps
// insertion order for ties in sorted queries.
type PostgresRepo struct {
	pool  *pgxpool.Pool
	table string
}

var pgColumns = map[string]string{
	person.FieldFirstName: "first_name",
	person.FieldLastName:  "last_name",
	person.FieldAge:       "age",
}

// NewPostgresRepo creates the table when it does not exist yet.
func NewPostgresRepo(ctx context.Context, pool *pgxpool.Pool, table string) (*PostgresRepo, error) {
	if table == "" {
		table = strings.ToLower(person.DefaultCollection)
	}
	r := &PostgresRepo{pool: pool, table: pgx.Identifier{table}.Sanitize()}
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id         TEXT PRIMARY KEY,
			seq        BIGSERIAL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name  TEXT NOT NULL DEFAULT '',
			age        INTEGER NOT NULL DEFAULT 0 CHECK (age >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, r.table)
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create %s: %w", table, err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (age)`,
		pgx.Identifier{table + "_age_idx"}.Sanitize(), r.table)); err != nil {
		return nil, fmt.Errorf("index %s: %w", table, err)
	}
	return r, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, p person.Person) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}
	query := `INSERT INTO ` + r.table + ` (id, first_name, last_name, age) VALUES ($1, $2, $3, $4)`
	if _, err := r.pool.Exec(ctx, query, id, p.FirstName, p.LastName, p.Age); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PostgresRepo) Query(ctx context.Context, q person.Query) ([]person.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	where, args := pgWhere(q)
	query := `SELECT id, first_name, last_name, age FROM ` + r.table + where
	if q.OrderBy != "" {
		query += ` ORDER BY ` + pgColumns[q.OrderBy] + `, seq`
	} else {
		query += ` ORDER BY seq`
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []person.Document{}
	for rows.Next() {
		var d person.Document
		if err := rows.Scan(&d.ID, &d.Person.FirstName, &d.Person.LastName, &d.Person.Age); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MergeUpdate(ctx context.Context, id string, patch person.Patch) error {
	query := `
		UPDATE ` + r.table + `
		SET first_name = COALESCE($2, first_name),
		    last_name  = COALESCE($3, last_name),
		    age        = COALESCE($4, age)
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, patch.FirstName, patch.LastName, patch.Age)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return person.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Remove(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+r.table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return person.ErrNotFound
	}
	return nil
}

// RemoveField resets the column to its default; columns cannot be absent.
func (r *PostgresRepo) RemoveField(ctx context.Context, id string, field string) error {
	col, ok := pgColumns[field]
	query := `UPDATE ` + r.table + ` SET ` + col + ` = DEFAULT WHERE id = $1`
	if !ok {
		query = `UPDATE ` + r.table + ` SET id = id WHERE id = $1`
	}
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return person.ErrNotFound
	}
	return nil
}

func pgWhere(q person.Query) (string, []any) {
	if len(q.Filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(q.Filters))
	args := make([]any, 0, len(q.Filters))
	for _, f := range q.Filters {
		if n, ok := f.Value.(int); ok && f.Field == person.FieldAge {
			if cond, fixed := int4Bound(f.Op, n); fixed {
				parts = append(parts, cond)
				continue
			}
		}
		args = append(args, f.Value)
		op := string(f.Op)
		if f.Op == person.OpEq {
			op = "="
		}
		parts = append(parts, fmt.Sprintf("%s %s $%d", pgColumns[f.Field], op, len(args)))
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// int4Bound resolves an age comparison whose operand lies outside the int4
// range of the column. Such an operand cannot be encoded as a parameter, and
// its outcome is the same for every row.
func int4Bound(op person.Op, n int) (string, bool) {
	switch {
	case n > math.MaxInt32:
		if op == person.OpLt {
			return "TRUE", true
		}
		return "FALSE", true
	case n < math.MinInt32:
		if op == person.OpGt {
			return "TRUE", true
		}
		return "FALSE", true
	}
	return "", false
}
