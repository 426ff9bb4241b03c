// Package dedup implements idempotent event consumption: claiming a
// uniquely-constrained key decides whether an inbound event's effect has
// already been applied. The claim must run inside the same transaction as
// the effect it protects, so both commit or roll back together.
package dedup

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// Execer is the slice of pgx.Tx the guard needs.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Claim runs insertSQL against the given transaction. It returns true when
// the key was inserted (first delivery wins) and false when the insert was
// rejected by a uniqueness violation, meaning the key was already claimed.
// A duplicate is a normal condition, not an error.
func Claim(ctx context.Context, tx Execer, insertSQL string, args ...any) (bool, error) {
	if _, err := tx.Exec(ctx, insertSQL, args...); err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
