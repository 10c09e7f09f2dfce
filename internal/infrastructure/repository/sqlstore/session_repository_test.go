package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T, driver string) (*SessionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewSessionRepository(db, driver, "alice")
	repo.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return repo, mock
}

func TestGetMissingKeyIsNotAnError(t *testing.T) {
	repo, mock := newRepoWithMock(t, DriverSQLite)
	mock.ExpectQuery("SELECT value FROM agent_session").
		WithArgs("alice", "auth_token").
		WillReturnError(sql.ErrNoRows)

	value, ok, err := repo.Get(context.Background(), "auth_token")
	if err != nil || ok || value != "" {
		t.Fatalf("Get() = %q, %v, %v", value, ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetUpsertsWithinNamespace(t *testing.T) {
	repo, mock := newRepoWithMock(t, DriverPostgres)
	mock.ExpectExec("INSERT INTO agent_session").
		WithArgs("alice", "active_task_id", "task-9", time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT value FROM agent_session").
		WithArgs("alice", "active_task_id").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("task-9"))

	if err := repo.Set(context.Background(), "active_task_id", "task-9"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, ok, err := repo.Get(context.Background(), "active_task_id")
	if err != nil || !ok || value != "task-9" {
		t.Fatalf("Get() = %q, %v, %v", value, ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteWrapsDriverError(t *testing.T) {
	repo, mock := newRepoWithMock(t, DriverSQLite)
	mock.ExpectExec("DELETE FROM agent_session").
		WithArgs("alice", "user_config").
		WillReturnError(errors.New("disk I/O error"))

	err := repo.Delete(context.Background(), "user_config")
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaLocksOnPostgres(t *testing.T) {
	repo, mock := newRepoWithMock(t, DriverPostgres)
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS agent_session").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaSkipsLockOnSQLite(t *testing.T) {
	repo, mock := newRepoWithMock(t, DriverSQLite)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS agent_session").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestOpenDBRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenDB("mysql", "dsn"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
