package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

func stubOpenDB(t *testing.T, pingErr error) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	ping := mock.ExpectPing()
	if pingErr != nil {
		ping.WillReturnError(pingErr)
		mock.ExpectClose()
	}

	orig := openDB
	openDB = func(dsn string) (*sql.DB, error) { return db, nil }
	t.Cleanup(func() { openDB = orig })
	return mock
}

func TestNewPostgresRepositoryManager_Success(t *testing.T) {
	mock := stubOpenDB(t, nil)

	m, err := NewPostgresRepositoryManager(context.Background(), "postgres://x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var _ RepositoryManager = m
	var _ users.Repository = m.Users()
	var _ refreshtokens.Repository = m.RefreshTokens()

	mock.ExpectClose()
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewPostgresRepositoryManager_PingError(t *testing.T) {
	mock := stubOpenDB(t, errors.New("refused"))

	if _, err := NewPostgresRepositoryManager(context.Background(), "postgres://x"); err == nil {
		t.Fatal("expected ping error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("db must be closed after failed ping: %v", err)
	}
}

func TestRunMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{db: db}

	gooseUpContext = func(ctx context.Context, got *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if got != db || dir != "." {
			return errors.New("unexpected arguments")
		}
		return nil
	}
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
