// Package sqlx implements engine.Storage on a relational database via
// jmoiron/sqlx. Postgres and MySQL are supported.
package sqlx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"lingokit/core"
	"lingokit/engine"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds database connection configuration.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver string) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store implements engine.Storage backed by SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New connects to the database and verifies the connection.
func New(cfg Config) (*Store, error) {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverMySQL {
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return NewWithDB(db, cfg.Driver), nil
}

// NewWithDB wraps an existing sqlx handle (useful for testing).
func NewWithDB(db *sqlx.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id            VARCHAR(128) PRIMARY KEY,
			xp                 INT NOT NULL DEFAULT 0,
			level              INT NOT NULL DEFAULT 1,
			streak             INT NOT NULL DEFAULT 0,
			last_activity_date VARCHAR(10) NOT NULL DEFAULT '',
			total_lessons      INT NOT NULL DEFAULT 0,
			completed_lessons  TEXT NOT NULL,
			achievements       TEXT NOT NULL,
			total_points       INT NOT NULL DEFAULT 0,
			version            BIGINT NOT NULL DEFAULT 0,
			updated_at         TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS lessons (
			user_id       VARCHAR(128) NOT NULL,
			lesson_id     VARCHAR(256) NOT NULL,
			title         VARCHAR(256) NOT NULL,
			level_label   VARCHAR(128) NOT NULL DEFAULT '',
			link          VARCHAR(512) NOT NULL DEFAULT '',
			vocab_count   INT NOT NULL DEFAULT 0,
			grammar_count INT NOT NULL DEFAULT 0,
			completed_at  TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, title)
		)`,
		`CREATE TABLE IF NOT EXISTS achievement_log (
			user_id        VARCHAR(128) NOT NULL,
			achievement_id VARCHAR(128) NOT NULL,
			unlocked_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS challenge_state (
			user_id      VARCHAR(128) PRIMARY KEY,
			day          VARCHAR(10) NOT NULL,
			challenge_id VARCHAR(128) NOT NULL,
			progress     INT NOT NULL DEFAULT 0,
			completed    BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

type profileRow struct {
	UserID           string    `db:"user_id"`
	XP               int       `db:"xp"`
	Level            int       `db:"level"`
	Streak           int       `db:"streak"`
	LastActivityDate string    `db:"last_activity_date"`
	TotalLessons     int       `db:"total_lessons"`
	CompletedLessons string    `db:"completed_lessons"`
	Achievements     string    `db:"achievements"`
	TotalPoints      int       `db:"total_points"`
	Version          int64     `db:"version"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r profileRow) toProgress() (core.UserProgress, error) {
	p := core.UserProgress{
		UserID:           core.UserID(r.UserID),
		XP:               r.XP,
		Level:            r.Level,
		Streak:           r.Streak,
		LastActivityDate: r.LastActivityDate,
		TotalLessons:     r.TotalLessons,
		CompletedLessons: map[core.LessonID]struct{}{},
		Achievements:     map[core.AchievementID]struct{}{},
		TotalPoints:      r.TotalPoints,
		Version:          r.Version,
		Updated:          r.UpdatedAt,
	}
	var lessons []core.LessonID
	if err := json.Unmarshal([]byte(r.CompletedLessons), &lessons); err != nil {
		return core.UserProgress{}, fmt.Errorf("decode completed lessons: %w", err)
	}
	for _, id := range lessons {
		p.CompletedLessons[id] = struct{}{}
	}
	var achievements []core.AchievementID
	if err := json.Unmarshal([]byte(r.Achievements), &achievements); err != nil {
		return core.UserProgress{}, fmt.Errorf("decode achievements: %w", err)
	}
	for _, id := range achievements {
		p.Achievements[id] = struct{}{}
	}
	return p, nil
}

func encodeSet[K ~string](set map[K]struct{}) (string, error) {
	ids := make([]K, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *Store) GetProfile(ctx context.Context, user core.UserID) (core.UserProgress, error) {
	var row profileRow
	q := s.db.Rebind(`SELECT user_id, xp, level, streak, last_activity_date, total_lessons,
		completed_lessons, achievements, total_points, version, updated_at
		FROM profiles WHERE user_id = ?`)
	err := s.db.GetContext(ctx, &row, q, user)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProgress{}, engine.ErrNotFound
	}
	if err != nil {
		return core.UserProgress{}, fmt.Errorf("get profile: %w", err)
	}
	return row.toProgress()
}

// SaveProfile writes the profile under optimistic concurrency: an UPDATE
// guarded by the version column, or an INSERT for a brand-new user. Zero
// rows affected means another writer got there first.
func (s *Store) SaveProfile(ctx context.Context, p core.UserProgress) error {
	lessons, err := encodeSet(p.CompletedLessons)
	if err != nil {
		return fmt.Errorf("encode completed lessons: %w", err)
	}
	achievements, err := encodeSet(p.Achievements)
	if err != nil {
		return fmt.Errorf("encode achievements: %w", err)
	}

	if p.Version == 0 {
		q := s.db.Rebind(`INSERT INTO profiles
			(user_id, xp, level, streak, last_activity_date, total_lessons,
			 completed_lessons, achievements, total_points, version, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`)
		if _, err := s.db.ExecContext(ctx, q,
			p.UserID, p.XP, p.Level, p.Streak, p.LastActivityDate, p.TotalLessons,
			lessons, achievements, p.TotalPoints, p.Updated,
		); err != nil {
			// A duplicate key here means the row appeared between read
			// and write, which is exactly a version conflict.
			return fmt.Errorf("%w: %v", engine.ErrVersionConflict, err)
		}
		return nil
	}

	q := s.db.Rebind(`UPDATE profiles SET
		xp = ?, level = ?, streak = ?, last_activity_date = ?, total_lessons = ?,
		completed_lessons = ?, achievements = ?, total_points = ?,
		version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`)
	res, err := s.db.ExecContext(ctx, q,
		p.XP, p.Level, p.Streak, p.LastActivityDate, p.TotalLessons,
		lessons, achievements, p.TotalPoints, p.Updated,
		p.UserID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if n == 0 {
		return engine.ErrVersionConflict
	}
	return nil
}

func (s *Store) InsertLesson(ctx context.Context, user core.UserID, lesson core.LessonRecord) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("insert lesson: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	q := tx.Rebind(`SELECT EXISTS(SELECT 1 FROM lessons WHERE user_id = ? AND title = ?)`)
	if err := tx.GetContext(ctx, &exists, q, user, lesson.Title); err != nil {
		return false, fmt.Errorf("check lesson: %w", err)
	}
	if exists {
		return false, tx.Commit()
	}

	q = tx.Rebind(`INSERT INTO lessons
		(user_id, lesson_id, title, level_label, link, vocab_count, grammar_count, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, q,
		user, lesson.LessonID, lesson.Title, lesson.Level, lesson.Link,
		lesson.VocabCount, lesson.GrammarCount, lesson.CompletedAt,
	); err != nil {
		return false, fmt.Errorf("insert lesson: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("insert lesson: %w", err)
	}
	return true, nil
}

type lessonRow struct {
	LessonID     string    `db:"lesson_id"`
	Title        string    `db:"title"`
	LevelLabel   string    `db:"level_label"`
	Link         string    `db:"link"`
	VocabCount   int       `db:"vocab_count"`
	GrammarCount int       `db:"grammar_count"`
	CompletedAt  time.Time `db:"completed_at"`
}

func (s *Store) Lessons(ctx context.Context, user core.UserID) ([]core.LessonRecord, error) {
	var rows []lessonRow
	q := s.db.Rebind(`SELECT lesson_id, title, level_label, link, vocab_count, grammar_count, completed_at
		FROM lessons WHERE user_id = ? ORDER BY completed_at`)
	if err := s.db.SelectContext(ctx, &rows, q, user); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	out := make([]core.LessonRecord, len(rows))
	for i, r := range rows {
		out[i] = core.LessonRecord{
			LessonID:     core.LessonID(r.LessonID),
			Title:        r.Title,
			Level:        r.LevelLabel,
			Link:         r.Link,
			VocabCount:   r.VocabCount,
			GrammarCount: r.GrammarCount,
			CompletedAt:  r.CompletedAt,
		}
	}
	return out, nil
}

func (s *Store) VocabTotal(ctx context.Context, user core.UserID) (int, error) {
	var total int
	q := s.db.Rebind(`SELECT COALESCE(SUM(vocab_count), 0) FROM lessons WHERE user_id = ?`)
	if err := s.db.GetContext(ctx, &total, q, user); err != nil {
		return 0, fmt.Errorf("vocab total: %w", err)
	}
	return total, nil
}

func (s *Store) LogUnlock(ctx context.Context, user core.UserID, id core.AchievementID, at time.Time) error {
	q := s.db.Rebind(`INSERT INTO achievement_log (user_id, achievement_id, unlocked_at) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, user, id, at); err != nil {
		return fmt.Errorf("log unlock: %w", err)
	}
	return nil
}

type challengeRow struct {
	Day         string `db:"day"`
	ChallengeID string `db:"challenge_id"`
	Progress    int    `db:"progress"`
	Completed   bool   `db:"completed"`
}

func (s *Store) GetChallengeState(ctx context.Context, user core.UserID) (core.ChallengeState, error) {
	var row challengeRow
	q := s.db.Rebind(`SELECT day, challenge_id, progress, completed FROM challenge_state WHERE user_id = ?`)
	err := s.db.GetContext(ctx, &row, q, user)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ChallengeState{}, nil
	}
	if err != nil {
		return core.ChallengeState{}, fmt.Errorf("get challenge state: %w", err)
	}
	return core.ChallengeState{
		Date:        row.Day,
		ChallengeID: core.ChallengeID(row.ChallengeID),
		Progress:    row.Progress,
		Completed:   row.Completed,
	}, nil
}

func (s *Store) SaveChallengeState(ctx context.Context, user core.UserID, st core.ChallengeState) error {
	var q string
	if s.driver == DriverMySQL {
		q = `INSERT INTO challenge_state (user_id, day, challenge_id, progress, completed)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE day = VALUES(day), challenge_id = VALUES(challenge_id),
				progress = VALUES(progress), completed = VALUES(completed)`
	} else {
		q = s.db.Rebind(`INSERT INTO challenge_state (user_id, day, challenge_id, progress, completed)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET day = EXCLUDED.day,
				challenge_id = EXCLUDED.challenge_id,
				progress = EXCLUDED.progress, completed = EXCLUDED.completed`)
	}
	if _, err := s.db.ExecContext(ctx, q, user, st.Date, st.ChallengeID, st.Progress, st.Completed); err != nil {
		return fmt.Errorf("save challenge state: %w", err)
	}
	return nil
}

var _ engine.Storage = (*Store)(nil)
