package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hitoshi/weatherdesk/internal/model"
)

const (
	insertSearchQuery = `(?s)^INSERT\s+INTO\s+search_records\s*\(id,\s*owner_id,\s*city,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*$`
	listSearchQuery   = `(?s)^SELECT\s+id,\s*owner_id,\s*city,\s*created_at\s+FROM\s+search_records\s+WHERE\s+owner_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC,\s*id\s+DESC\s+LIMIT\s+\$2\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresSearchRepo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresSearchRepo(db), mock, db
}

// PostgresSearchRepoはSearchRepositoryインターフェースを満たすことを検証
func TestPostgresSearchRepo_ImplementsInterface(t *testing.T) {
	var _ SearchRepository = (*PostgresSearchRepo)(nil)
}

func TestPostgresSearchRepo_Create_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &model.SearchRecord{
		ID:        "6f1d3a2e-0a4b-4c55-9d0e-3f8a1b2c3d4e",
		OwnerID:   "user-1",
		City:      "Paris",
		CreatedAt: createdAt,
	}

	mock.ExpectExec(insertSearchQuery).
		WithArgs(rec.ID, "user-1", "Paris", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresSearchRepo_Create_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertSearchQuery).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &model.SearchRecord{ID: "x", OwnerID: "u", City: "Oslo"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to insert search record") || !strings.Contains(err.Error(), "db down") {
		t.Errorf("expected wrapped db error, got %v", err)
	}
}

func TestPostgresSearchRepo_ListRecentByOwner_ReturnsRowsInOrder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	newer := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "owner_id", "city", "created_at"}).
		AddRow("id-2", "user-1", "Tokyo", newer).
		AddRow("id-1", "user-1", "Osaka", older)

	mock.ExpectQuery(listSearchQuery).
		WithArgs("user-1", model.RecentSearchLimit).
		WillReturnRows(rows)

	got, err := repo.ListRecentByOwner(context.Background(), "user-1", model.RecentSearchLimit)
	if err != nil {
		t.Fatalf("ListRecentByOwner error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "id-2" || got[0].City != "Tokyo" {
		t.Errorf("first record = %+v, want id-2/Tokyo", got[0])
	}
	if got[1].ID != "id-1" || got[1].OwnerID != "user-1" {
		t.Errorf("second record = %+v, want id-1/user-1", got[1])
	}
	if !got[0].CreatedAt.Equal(newer) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, newer)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresSearchRepo_ListRecentByOwner_EmptyReturnsEmptySlice(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listSearchQuery).
		WithArgs("nobody", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "city", "created_at"}))

	got, err := repo.ListRecentByOwner(context.Background(), "nobody", 5)
	if err != nil {
		t.Fatalf("ListRecentByOwner error: %v", err)
	}
	// JSONで null ではなく [] を返すため、nilではなく空スライスであること
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestPostgresSearchRepo_ListRecentByOwner_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listSearchQuery).
		WithArgs("user-1", 5).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListRecentByOwner(context.Background(), "user-1", 5)
	if err == nil || !strings.Contains(err.Error(), "failed to list search records") {
		t.Fatalf("expected wrapped list error, got %v", err)
	}
}

func TestPostgresSearchRepo_ListRecentByOwner_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "city", "created_at"}).
		AddRow("id-1", "user-1", "Lima", "not-a-time")
	mock.ExpectQuery(listSearchQuery).
		WithArgs("user-1", 5).
		WillReturnRows(rows)

	_, err := repo.ListRecentByOwner(context.Background(), "user-1", 5)
	if err == nil || !strings.Contains(err.Error(), "failed to scan search record") {
		t.Fatalf("expected scan error, got %v", err)
	}
}

func TestPostgresSearchRepo_ListRecentByOwner_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "city", "created_at"}).
		AddRow("id-1", "user-1", "Lima", time.Now()).
		RowError(0, errors.New("broken row"))
	mock.ExpectQuery(listSearchQuery).
		WithArgs("user-1", 5).
		WillReturnRows(rows)

	_, err := repo.ListRecentByOwner(context.Background(), "user-1", 5)
	if err == nil {
		t.Fatal("expected error from row iteration, got nil")
	}
}
