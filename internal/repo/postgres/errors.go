package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const constraintEventsSlug = "events_slug_key"

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func isSlugViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraintEventsSlug
}
