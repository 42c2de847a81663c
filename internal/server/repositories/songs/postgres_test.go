package songs

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var cols = []string{"id", "created_by", "title", "artist", "difficulty", "category", "bpm", "duration", "notes",
	"key_signature", "time_signature", "description", "created_at", "updated_at"}

const notesJSON = `[{"key":"C4","start_time":0,"duration":500}]`

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)INSERT\s+INTO\s+songs\s*\(created_by,\s*title,.*RETURNING\s+id,\s*created_at,\s*updated_at`
	now := time.Now()

	mock.ExpectQuery(q).
		WithArgs("u1", "Ode", "Beethoven", "beginner", "Classical", 100, 500, []byte(notesJSON), "C major", "4/4", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("s1", now, now))
	mock.ExpectQuery(q).
		WithArgs(nil, "Seed", "Traditional", "beginner", "Traditional", 120, 0, []byte(`[]`), "C major", "3/4", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("s2", now, now))
	mock.ExpectQuery(q).WillReturnError(&pgconn.PgError{Code: "23503"})

	got, err := repo.Create(context.Background(), &models.Song{
		CreatedBy: "u1", Title: "Ode", Artist: "Beethoven", Difficulty: "beginner", Category: "Classical",
		BPM: 100, Duration: 500, Notes: []models.SongNote{{Key: "C4", StartTime: 0, Duration: 500}},
		KeySignature: "C major", TimeSignature: "4/4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "s1" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected song: %+v", got)
	}

	if _, err := repo.Create(context.Background(), &models.Song{
		Title: "Seed", Artist: "Traditional", Difficulty: "beginner", Category: "Traditional",
		BPM: 120, KeySignature: "C major", TimeSignature: "3/4",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := repo.Create(context.Background(), &models.Song{CreatedBy: "gone", Title: "t"}); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT\s+id,\s*created_by,.*FROM\s+songs\s+WHERE\s+id\s*=\s*\$1`
	now := time.Now()

	mock.ExpectQuery(q).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("s1", nil, "Ode", "Beethoven", "beginner", "Classical", 100, 500, []byte(notesJSON), "C major", "4/4", "", now, now))
	mock.ExpectQuery(q).WithArgs("s2").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WithArgs("s3").WillReturnError(errors.New("down"))

	got, err := repo.GetByID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CreatedBy != "" || len(got.Notes) != 1 || got.Notes[0].Key != "C4" || got.Notes[0].Duration != 500 {
		t.Fatalf("unexpected song: %+v", got)
	}

	if _, err := repo.GetByID(context.Background(), "s2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "s3"); err == nil || !regexp.MustCompile(`db error: .*down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByIDForUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+songs\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE`).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("s1", "u1", "Ode", "Beethoven", "beginner", "Classical", 100, 0, []byte(`[]`), "C major", "4/4", "", now, now))

	got, err := repo.GetByIDForUpdate(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CreatedBy != "u1" {
		t.Fatalf("unexpected song: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestList_Filters(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+songs\s+WHERE.*category.*difficulty.*ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$3\s+OFFSET\s+\$4`).
		WithArgs("Classical", "advanced", 10, 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("s1", "u1", "Ode", "Beethoven", "advanced", "Classical", 100, 500, []byte(notesJSON), "C major", "4/4", "", now, now).
			AddRow("s2", nil, "Air", "Bach", "advanced", "Classical", 60, 0, []byte(`[]`), "D major", "4/4", "", now, now))

	got, err := repo.List(context.Background(), models.SongFilter{Category: "Classical", Difficulty: "advanced", Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Title != "Air" {
		t.Fatalf("unexpected songs: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestList_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+songs`).WillReturnError(errors.New("down"))

	if _, err := repo.List(context.Background(), models.SongFilter{Limit: 10}); err == nil || !regexp.MustCompile(`failed to select songs: .*down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `DELETE\s+FROM\s+songs\s+WHERE\s+id\s*=\s*\$1`
	mock.ExpectExec(q).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("s2").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(context.Background(), "s2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
