package db

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
)

const (
	createUsersQuery    = "CREATE TABLE IF NOT EXISTS users (id TEXT PRIMARY KEY, tz TEXT NOT NULL);"
	selectTimezoneQuery = "SELECT tz FROM users WHERE id = $1;"
	upsertTimezoneQuery = "INSERT INTO users (id, tz) VALUES ($1, $2) ON CONFLICT(id) DO UPDATE SET tz=excluded.tz;"
)

// Querier is the subset of a pgx pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Source hands out connections for a logical database.
type Source interface {
	Conn(ctx context.Context, name string) (Querier, error)
}

// DB stores user preferences in the users table of one logical database.
type DB struct {
	source Source
	name   string
}

func NewDB(source Source, name string) *DB {
	return &DB{
		source: source,
		name:   name,
	}
}

// GetTimezone returns the stored abbreviation, or false when the user never set one.
func (db *DB) GetTimezone(ctx context.Context, userID snowflake.ID) (tz string, ok bool, err error) {
	conn, err := db.source.Conn(ctx, db.name)
	if err != nil {
		return "", false, err
	}
	err = conn.QueryRow(ctx, selectTimezoneQuery, userID.String()).Scan(&tz)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, pkgerrors.Wrap(err, "selecting timezone")
	}
	return tz, true, nil
}

func (db *DB) SetTimezone(ctx context.Context, userID snowflake.ID, tz string) error {
	conn, err := db.source.Conn(ctx, db.name)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, upsertTimezoneQuery, userID.String(), tz)
	return pkgerrors.Wrap(err, "upserting timezone")
}
