package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
)

var userRowColumns = []string{"id", "username", "name", "role", "email", "phone", "password_hash", "is_active", "created_at"}

func TestUserCreateDuplicateUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	err := repo.Create(context.Background(), &model.User{Username: "nurse", Name: "Nurse Kim", Role: model.RoleNurse})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindConflict, appErr.Kind)
	assert.Contains(t, appErr.Details, "username")
}

func TestUserGetByUsernameMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE username = \\$1").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestUserFirstActiveByRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("WHERE role = \\$1 AND is_active ORDER BY id ASC LIMIT 1").
		WithArgs(model.RoleNurse).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(3, "kim", "Nurse Kim", "nurse", nil, nil, "hash", true, time.Now()))

	user, err := repo.FirstActiveByRole(context.Background(), model.RoleNurse)
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "Nurse Kim", user.Name)
	assert.Nil(t, user.Email)
}

func TestUserDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("DELETE FROM users WHERE id = \\$1").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 99)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestUserListByRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE role = \$1`).
		WithArgs("coach").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY name ASC, id ASC LIMIT \$2 OFFSET \$3`).
		WithArgs("coach", 20, 20).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(5, "lee", "Coach Lee", "coach", "lee@fd.example", nil, "hash", true, time.Now()))

	users, total, err := repo.List(context.Background(), &model.UserFilter{
		Pagination: model.Pagination{Page: 2, PageSize: 20},
		Role:       "coach",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	require.NotNil(t, users[0].Email)
	assert.Equal(t, "lee@fd.example", *users[0].Email)
}
