package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clauselens/clauselens/internal/core/domain"
)

func TestUserRepositoryCreateUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	user := &domain.User{
		ID:           "u-1",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(user.ID, user.Email, user.PasswordHash, user.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepositoryCreateUserDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.CreateUser(context.Background(), &domain.User{ID: "u-1", Email: "ada@example.com"})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want conflict kind", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepositoryGetUserByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT id, email, password_hash, created_at\s+FROM users\s+WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByEmail(context.Background(), "ghost@example.com")
	if !domain.IsKind(err, domain.ErrUserNotFound) {
		t.Fatalf("err = %v, want user not found kind", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepositoryGetUserByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, email, password_hash, created_at\s+FROM users\s+WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("u-1", "ada@example.com", "$2a$10$hash", now))

	user, err := repo.GetUserByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email = %s", user.Email)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
