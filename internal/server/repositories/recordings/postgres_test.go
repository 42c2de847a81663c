package recordings

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
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var cols = []string{"id", "user_id", "title", "description", "notes", "duration", "tempo", "category", "midi_key", "created_at", "updated_at"}

const notesJSON = `[{"note":"C","octave":4,"start_time":0,"end_time":250,"velocity":0.8}]`

func TestCreate_EncodesNotes(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)INSERT\s+INTO\s+recordings\s*\(user_id,\s*title,\s*description,\s*notes,\s*duration,\s*tempo,\s*category\)`
	now := time.Now()

	mock.ExpectQuery(q).
		WithArgs("u1", "Take 1", "", []byte(notesJSON), 250, 120, "practice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("r1", now, now))

	rec := &models.Recording{
		UserID: "u1", Title: "Take 1", Duration: 250, Tempo: 120, Category: "practice",
		Notes: []models.RecordedNote{{Note: "C", Octave: 4, StartTime: 0, EndTime: 250, Velocity: 0.8}},
	}
	got, err := repo.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "r1" {
		t.Fatalf("unexpected id %q", got.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_NilNotesStoredAsEmptyArray(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT\s+INTO\s+recordings`).
		WithArgs("u1", "Silence", "", []byte(`[]`), 0, 120, "personal").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("r1", now, now))

	if _, err := repo.Create(context.Background(), &models.Recording{UserID: "u1", Title: "Silence", Tempo: 120, Category: "personal"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT\s+id,\s*user_id,.*FROM\s+recordings\s+WHERE\s+id\s*=\s*\$1`
	now := time.Now()

	mock.ExpectQuery(q).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r1", "u1", "Take 1", "", []byte(notesJSON), 250, 120, "practice", "recordings/u1/r1.mid", now, now))
	mock.ExpectQuery(q).WithArgs("r2").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r2", "u1", "Take 2", "", []byte(`[]`), 0, 90, "cover", nil, now, now))
	mock.ExpectQuery(q).WithArgs("r3").WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Notes) != 1 || got.Notes[0].Octave != 4 || got.MIDIKey != "recordings/u1/r1.mid" {
		t.Fatalf("unexpected recording: %+v", got)
	}

	got, err = repo.GetByID(context.Background(), "r2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MIDIKey != "" || got.Tempo != 90 {
		t.Fatalf("unexpected recording: %+v", got)
	}

	if _, err := repo.GetByID(context.Background(), "r3"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByIDForUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+recordings\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE`).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r1", "u1", "Take 1", "", []byte(`[]`), 0, 120, "practice", nil, now, now))

	got, err := repo.GetByIDForUpdate(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("unexpected recording: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestList_CountsAndPages(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT\s+count\(\*\)\s+FROM\s+recordings\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+\(\$2\s*=\s*''\s+OR\s+category\s*=\s*\$2\)`).
		WithArgs("u1", "cover").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(`(?s)FROM\s+recordings.*ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$3\s+OFFSET\s+\$4`).
		WithArgs("u1", "cover", 10, 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r21", "u1", "Last", "", []byte(`[]`), 0, 120, "cover", nil, now, now))

	got, total, err := repo.List(context.Background(), "u1", models.RecordingFilter{Category: "cover", Page: 3, PerPage: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 21 || len(got) != 1 || got[0].ID != "r21" {
		t.Fatalf("unexpected page: total=%d rows=%+v", total, got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestList_CountError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`count\(\*\)`).WillReturnError(errors.New("down"))

	_, _, err := repo.List(context.Background(), "u1", models.RecordingFilter{Page: 1, PerPage: 20})
	if err == nil || !regexp.MustCompile(`db error: .*down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestCategories(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+DISTINCT\s+category\s+FROM\s+recordings`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("cover").AddRow("practice"))

	got, err := repo.Categories(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "cover" || got[1] != "practice" {
		t.Fatalf("unexpected categories: %v", got)
	}
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)UPDATE\s+recordings\s+SET\s+title\s*=\s*\$2,\s*description\s*=\s*\$3,\s*tempo\s*=\s*\$4,\s*category\s*=\s*\$5`
	mock.ExpectQuery(q).WithArgs("r1", "Renamed", "d", 100, "cover").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectQuery(q).WithArgs("r2", "Renamed", "d", 100, "cover").
		WillReturnError(sql.ErrNoRows)

	rec := &models.Recording{ID: "r1", Title: "Renamed", Description: "d", Tempo: 100, Category: "cover"}
	if err := repo.Update(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.ID = "r2"
	if err := repo.Update(context.Background(), rec); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+recordings\s+WHERE\s+id\s*=\s*\$1`).WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "r1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestSetMIDIKey(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `UPDATE\s+recordings\s+SET\s+midi_key\s*=\s*\$2`
	mock.ExpectExec(q).WithArgs("r1", "k").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("r2", "k").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("r3", "k").WillReturnError(errors.New("down"))

	if err := repo.SetMIDIKey(context.Background(), "r1", "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.SetMIDIKey(context.Background(), "r2", "k"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := repo.SetMIDIKey(context.Background(), "r3", "k"); err == nil || !regexp.MustCompile(`failed to set midi key: .*down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
