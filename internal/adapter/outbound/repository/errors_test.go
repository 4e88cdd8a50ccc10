package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, IsNotFoundError(pgx.ErrNoRows))
	assert.True(t, IsNotFoundError(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotFoundError(errors.New("other")))
}

func TestIsConstraintViolationError(t *testing.T) {
	for _, code := range []string{"23505", "23503", "23514", "23502"} {
		assert.True(t, IsConstraintViolationError(&pgconn.PgError{Code: code}), code)
	}
	assert.True(t, IsConstraintViolationError(ErrAlreadyExists))
	assert.True(t, IsConstraintViolationError(ErrForeignKeyViolation))
	assert.False(t, IsConstraintViolationError(&pgconn.PgError{Code: "42601"}))
	assert.False(t, IsConstraintViolationError(nil))
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(&pgconn.PgError{Code: "08006"}))
	assert.True(t, IsConnectionError(&pgconn.PgError{Code: "57P01"}))
	assert.True(t, IsConnectionError(ErrConnectionFailed))
	assert.False(t, IsConnectionError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsConnectionError(nil))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "find job"))

	err := WrapError(pgx.ErrNoRows, "find job")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "find job failed")

	err = WrapError(&pgconn.PgError{Code: "23505"}, "save job")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = WrapError(&pgconn.PgError{Code: "23503"}, "save error")
	assert.ErrorIs(t, err, ErrForeignKeyViolation)

	err = WrapError(&pgconn.PgError{Code: "23514"}, "save job")
	assert.ErrorIs(t, err, ErrConstraintViolation)

	err = WrapError(&pgconn.PgError{Code: "08006"}, "ping")
	assert.ErrorIs(t, err, ErrConnectionFailed)

	plain := errors.New("boom")
	assert.ErrorIs(t, WrapError(plain, "query"), plain)
}
