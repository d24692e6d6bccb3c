// Package redis implements engine.Storage on Redis.
//
// Data layout:
//   - user:{id}:profile   -> JSON UserProgress (version inside the blob)
//   - user:{id}:lessons   -> hash, field = lesson title, value = JSON record
//   - user:{id}:vocab     -> int64 running word total
//   - user:{id}:unlocks   -> list of JSON unlock rows
//   - user:{id}:challenge -> JSON ChallengeState
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lingokit/core"
	"lingokit/engine"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements the engine.Storage interface using Redis as the backend.
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func profileKey(user core.UserID) string   { return fmt.Sprintf("user:%s:profile", user) }
func lessonsKey(user core.UserID) string   { return fmt.Sprintf("user:%s:lessons", user) }
func vocabKey(user core.UserID) string     { return fmt.Sprintf("user:%s:vocab", user) }
func unlocksKey(user core.UserID) string   { return fmt.Sprintf("user:%s:unlocks", user) }
func challengeKey(user core.UserID) string { return fmt.Sprintf("user:%s:challenge", user) }

// saveProfileScript is a compare-and-swap on the version embedded in the
// stored JSON blob. The payload arrives with the version already bumped;
// ARGV[1] carries the version the caller read.
var saveProfileScript = redis.NewScript(`
	local key = KEYS[1]
	local expected = tonumber(ARGV[1])
	local payload = ARGV[2]
	local cur = redis.call('GET', key)
	if cur then
		local decoded = cjson.decode(cur)
		if tonumber(decoded.version) ~= expected then
			return redis.error_reply('version conflict')
		end
	end
	redis.call('SET', key, payload)
	return 1
`)

// insertLessonScript deduplicates by title and keeps the vocab counter in
// step with the lesson hash in one atomic unit.
var insertLessonScript = redis.NewScript(`
	local lessons = KEYS[1]
	local vocab = KEYS[2]
	local title = ARGV[1]
	local payload = ARGV[2]
	local words = tonumber(ARGV[3])
	if redis.call('HEXISTS', lessons, title) == 1 then
		return 0
	end
	redis.call('HSET', lessons, title, payload)
	if words > 0 then
		redis.call('INCRBY', vocab, words)
	end
	return 1
`)

func (s *Store) GetProfile(ctx context.Context, user core.UserID) (core.UserProgress, error) {
	data, err := s.client.Get(ctx, profileKey(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.UserProgress{}, engine.ErrNotFound
	}
	if err != nil {
		return core.UserProgress{}, fmt.Errorf("get profile: %w", err)
	}
	var p core.UserProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return core.UserProgress{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p core.UserProgress) error {
	stored := p.Clone()
	stored.Version = p.Version + 1
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	err = saveProfileScript.Run(ctx, s.client, []string{profileKey(p.UserID)}, p.Version, payload).Err()
	if err != nil {
		if strings.Contains(err.Error(), "version conflict") {
			return engine.ErrVersionConflict
		}
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *Store) InsertLesson(ctx context.Context, user core.UserID, lesson core.LessonRecord) (bool, error) {
	payload, err := json.Marshal(lesson)
	if err != nil {
		return false, fmt.Errorf("encode lesson: %w", err)
	}
	res, err := insertLessonScript.Run(ctx, s.client,
		[]string{lessonsKey(user), vocabKey(user)},
		lesson.Title, payload, lesson.VocabCount,
	).Int()
	if err != nil {
		return false, fmt.Errorf("insert lesson: %w", err)
	}
	return res == 1, nil
}

func (s *Store) Lessons(ctx context.Context, user core.UserID) ([]core.LessonRecord, error) {
	rows, err := s.client.HVals(ctx, lessonsKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	out := make([]core.LessonRecord, 0, len(rows))
	for _, row := range rows {
		var rec core.LessonRecord
		if err := json.Unmarshal([]byte(row), &rec); err != nil {
			continue // skip corrupt entries
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) VocabTotal(ctx context.Context, user core.UserID) (int, error) {
	n, err := s.client.Get(ctx, vocabKey(user)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("vocab total: %w", err)
	}
	return n, nil
}

type unlockRow struct {
	ID core.AchievementID `json:"id"`
	At time.Time          `json:"at"`
}

func (s *Store) LogUnlock(ctx context.Context, user core.UserID, id core.AchievementID, at time.Time) error {
	payload, err := json.Marshal(unlockRow{ID: id, At: at})
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, unlocksKey(user), payload).Err(); err != nil {
		return fmt.Errorf("log unlock: %w", err)
	}
	return nil
}

func (s *Store) GetChallengeState(ctx context.Context, user core.UserID) (core.ChallengeState, error) {
	data, err := s.client.Get(ctx, challengeKey(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.ChallengeState{}, nil
	}
	if err != nil {
		return core.ChallengeState{}, fmt.Errorf("get challenge state: %w", err)
	}
	var st core.ChallengeState
	if err := json.Unmarshal(data, &st); err != nil {
		return core.ChallengeState{}, fmt.Errorf("decode challenge state: %w", err)
	}
	return st, nil
}

func (s *Store) SaveChallengeState(ctx context.Context, user core.UserID, st core.ChallengeState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	// Challenge state is day-scoped; let it age out on its own.
	if err := s.client.Set(ctx, challengeKey(user), payload, 48*time.Hour).Err(); err != nil {
		return fmt.Errorf("save challenge state: %w", err)
	}
	return nil
}

var _ engine.Storage = (*Store)(nil)
