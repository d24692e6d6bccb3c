package sqlx_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "lingokit/adapters/sqlx"
	"lingokit/core"
	"lingokit/engine"
)

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, "postgres"), storage.DriverPostgres)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

var profileColumns = []string{
	"user_id", "xp", "level", "streak", "last_activity_date", "total_lessons",
	"completed_lessons", "achievements", "total_points", "version", "updated_at",
}

func TestSQLMock_GetProfile(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	updated := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM profiles WHERE user_id`).
		WithArgs(core.UserID("alice")).
		WillReturnRows(sqlmock.NewRows(profileColumns).
			AddRow("alice", 655, 2, 3, "2024-03-15", 4,
				`["emails","intro"]`, `["first_lesson"]`, 655, int64(7), updated))

	p, err := store.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, 655, p.XP)
	require.Equal(t, int64(7), p.Version)
	require.True(t, p.HasCompleted("emails"))
	require.True(t, p.HasAchievement("first_lesson"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetProfile_NotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM profiles WHERE user_id`).
		WithArgs(core.UserID("ghost")).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, engine.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveProfile_Insert(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	p := core.NewUserProgress("alice")
	p.XP = 175

	mock.ExpectExec(`INSERT INTO profiles`).
		WithArgs(p.UserID, 175, 1, 0, "", 0,
			sqlmock.AnyArg(), sqlmock.AnyArg(), 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SaveProfile(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveProfile_UpdateGuardedByVersion(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	p := core.NewUserProgress("alice")
	p.XP = 655
	p.Level = 2
	p.Version = 7

	mock.ExpectExec(`UPDATE profiles SET`).
		WithArgs(655, 2, 0, "", 0,
			sqlmock.AnyArg(), sqlmock.AnyArg(), 0, sqlmock.AnyArg(),
			p.UserID, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveProfile(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveProfile_VersionConflict(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	p := core.NewUserProgress("alice")
	p.Version = 7

	mock.ExpectExec(`UPDATE profiles SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SaveProfile(context.Background(), p)
	require.ErrorIs(t, err, engine.ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_InsertLesson(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	rec := core.LessonRecord{
		LessonID:    "emails",
		Title:       "Business Emails",
		Level:       "Business English",
		Link:        "/business/emails/",
		VocabCount:  12,
		CompletedAt: time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(core.UserID("alice"), rec.Title).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO lessons`).
		WithArgs(core.UserID("alice"), rec.LessonID, rec.Title, rec.Level, rec.Link,
			rec.VocabCount, rec.GrammarCount, rec.CompletedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	inserted, err := store.InsertLesson(context.Background(), "alice", rec)
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_InsertLesson_Duplicate(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(core.UserID("alice"), "Business Emails").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	inserted, err := store.InsertLesson(context.Background(), "alice", core.LessonRecord{Title: "Business Emails"})
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_LessonsAndVocabTotal(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	at := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM lessons WHERE user_id`).
		WithArgs(core.UserID("alice")).
		WillReturnRows(sqlmock.NewRows([]string{
			"lesson_id", "title", "level_label", "link", "vocab_count", "grammar_count", "completed_at",
		}).AddRow("emails", "Business Emails", "Business English", "/business/emails/", 12, 2, at))

	lessons, err := store.Lessons(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	require.Equal(t, core.LessonID("emails"), lessons[0].LessonID)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(vocab_count\), 0\) FROM lessons`).
		WithArgs(core.UserID("alice")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(12))

	total, err := store.VocabTotal(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, 12, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_LogUnlock(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	at := time.Now().UTC()
	mock.ExpectExec(`INSERT INTO achievement_log`).
		WithArgs(core.UserID("alice"), core.AchievementID("first_lesson"), at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.LogUnlock(context.Background(), "alice", "first_lesson", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_ChallengeState(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT day, challenge_id, progress, completed FROM challenge_state`).
		WithArgs(core.UserID("alice")).
		WillReturnError(sql.ErrNoRows)

	st, err := store.GetChallengeState(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, core.ChallengeState{}, st)

	mock.ExpectExec(`INSERT INTO challenge_state`).
		WithArgs(core.UserID("alice"), "2024-03-18", core.ChallengeID("vocab_learner"), 7, false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SaveChallengeState(context.Background(), "alice", core.ChallengeState{
		Date: "2024-03-18", ChallengeID: "vocab_learner", Progress: 7,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}
