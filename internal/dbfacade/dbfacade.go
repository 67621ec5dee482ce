// Package dbfacade implements C4: a thin DDL facade over a PostgreSQL
// connection used to prepare a restore destination (drop/create schemas,
// drop tables) ahead of handing control to pg_restore.
//
// Every call opens and closes its own connection rather than pooling:
// restores are infrequent, long-lived operations and a pool would only
// add lifecycle complexity with no benefit here.
package dbfacade

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

// Facade issues DDL against a single destination server.
type Facade struct {
	dest types.Destination
	db   string
}

// New returns a Facade targeting the given destination and database.
func New(dest types.Destination, database string) *Facade {
	return &Facade{dest: dest, db: database}
}

func (f *Facade) connString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		f.dest.Host, f.dest.Port, f.dest.Role, f.dest.Password, f.db,
	)
}

func (f *Facade) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, f.connString())
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d: %w", f.dest.Host, f.dest.Port, err)
	}
	return conn, nil
}

// DropSchemas drops every named schema, cascading to its contents, if it
// exists.
func (f *Facade) DropSchemas(ctx context.Context, schemas map[string]struct{}) error {
	conn, err := f.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	for schema := range schemas {
		stmt := fmt.Sprintf("drop schema if exists %s cascade", quoteIdent(schema))
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("drop schema %q: %w", schema, err)
		}
	}
	return nil
}

// CreateSchemas creates every named schema if it does not already exist.
func (f *Facade) CreateSchemas(ctx context.Context, schemas map[string]struct{}) error {
	conn, err := f.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	for schema := range schemas {
		stmt := fmt.Sprintf("create schema if not exists %s", quoteIdent(schema))
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema %q: %w", schema, err)
		}
	}
	return nil
}

// DropTables drops every named table if it exists.
func (f *Facade) DropTables(ctx context.Context, tables map[types.TableDescription]struct{}) error {
	conn, err := f.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	for table := range tables {
		stmt := fmt.Sprintf(
			"drop table if exists %s.%s",
			quoteIdent(table.Schema), quoteIdent(table.Name),
		)
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("drop table %q.%q: %w", table.Schema, table.Name, err)
		}
	}
	return nil
}

// quoteIdent double-quotes a SQL identifier, escaping embedded double
// quotes by doubling them, per the standard SQL identifier-quoting rule.
// An earlier revision of this facade escaped an embedded quote as `"'`
// instead, which produces invalid SQL for any identifier containing one.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
