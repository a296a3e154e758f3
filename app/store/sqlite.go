package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pitchlab/app/config"
	"pitchlab/app/domain"

	"github.com/samber/do"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteStore)(nil)
var _ do.Shutdownable = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(di *do.Injector) (Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return Open(cfg.DB.Path)
}

// Open creates or opens the sqlite database at the given path.
func Open(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS star_ratings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		group_number INTEGER NOT NULL,
		stars INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS word_cloud (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		group_number INTEGER NOT NULL,
		word TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS voting_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		is_open INTEGER NOT NULL,
		open_time INTEGER,
		close_time INTEGER
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// compositeID makes the (user, group) key that enforces one record per user
// per group: a second write lands on the same row.
func compositeID(userID string, group domain.GroupNumber) string {
	return fmt.Sprintf("%s:%d", userID, group)
}

func (s *SQLiteStore) UpsertStarRating(ctx context.Context, rating domain.StarRating) error {
	query := `
		INSERT INTO star_ratings (id, user_id, group_number, stars, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET stars = excluded.stars, created_at = excluded.created_at`

	_, err := s.db.ExecContext(ctx, query,
		compositeID(rating.UserID, rating.GroupNumber),
		rating.UserID, rating.GroupNumber, rating.Stars, rating.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert star rating: %w", err)
	}

	return nil
}

func (s *SQLiteStore) ListStarRatings(ctx context.Context) ([]domain.StarRating, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, group_number, stars, created_at FROM star_ratings`)
	if err != nil {
		return nil, fmt.Errorf("list star ratings: %w", err)
	}
	defer rows.Close()

	var result []domain.StarRating
	for rows.Next() {
		var rating domain.StarRating
		var createdAt int64

		if err := rows.Scan(&rating.UserID, &rating.GroupNumber, &rating.Stars, &createdAt); err != nil {
			return nil, fmt.Errorf("scan star rating: %w", err)
		}

		rating.CreatedAt = time.Unix(createdAt, 0)
		result = append(result, rating)
	}

	return result, rows.Err()
}

func (s *SQLiteStore) UpsertWordEntry(ctx context.Context, entry domain.WordCloudEntry) error {
	query := `
		INSERT INTO word_cloud (id, user_id, group_number, word, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET word = excluded.word, created_at = excluded.created_at`

	_, err := s.db.ExecContext(ctx, query,
		compositeID(entry.UserID, entry.GroupNumber),
		entry.UserID, entry.GroupNumber, entry.Word, entry.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert word entry: %w", err)
	}

	return nil
}

func (s *SQLiteStore) ListWordEntries(ctx context.Context) ([]domain.WordCloudEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, group_number, word, created_at FROM word_cloud`)
	if err != nil {
		return nil, fmt.Errorf("list word entries: %w", err)
	}
	defer rows.Close()

	var result []domain.WordCloudEntry
	for rows.Next() {
		var entry domain.WordCloudEntry
		var createdAt int64

		if err := rows.Scan(&entry.UserID, &entry.GroupNumber, &entry.Word, &createdAt); err != nil {
			return nil, fmt.Errorf("scan word entry: %w", err)
		}

		entry.CreatedAt = time.Unix(createdAt, 0)
		result = append(result, entry)
	}

	return result, rows.Err()
}

func (s *SQLiteStore) GetVotingConfig(ctx context.Context) (domain.VotingConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT is_open, open_time, close_time FROM voting_config WHERE id = 1`)

	var isOpen int
	var openTime, closeTime sql.NullInt64

	err := row.Scan(&isOpen, &openTime, &closeTime)
	if err == sql.ErrNoRows {
		// voting is open until an admin says otherwise
		return domain.VotingConfig{IsOpen: true}, nil
	}
	if err != nil {
		return domain.VotingConfig{}, fmt.Errorf("scan voting config: %w", err)
	}

	cfg := domain.VotingConfig{IsOpen: isOpen != 0}
	if openTime.Valid {
		t := time.Unix(openTime.Int64, 0)
		cfg.OpenTime = &t
	}
	if closeTime.Valid {
		t := time.Unix(closeTime.Int64, 0)
		cfg.CloseTime = &t
	}

	return cfg, nil
}

func (s *SQLiteStore) SetVotingConfig(ctx context.Context, cfg domain.VotingConfig) error {
	var openTime, closeTime any
	if cfg.OpenTime != nil {
		openTime = cfg.OpenTime.Unix()
	}
	if cfg.CloseTime != nil {
		closeTime = cfg.CloseTime.Unix()
	}

	query := `
		INSERT INTO voting_config (id, is_open, open_time, close_time)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			is_open = excluded.is_open,
			open_time = excluded.open_time,
			close_time = excluded.close_time`

	_, err := s.db.ExecContext(ctx, query, boolToInt(cfg.IsOpen), openTime, closeTime)
	if err != nil {
		return fmt.Errorf("upsert voting config: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Shutdown() error {
	return s.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
