package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// querier is satisfied by both *pgxpool.Pool and pgx.Tx. Begin on a pgx.Tx
// opens a savepoint.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore is a PostgreSQL-backed Store and UserStore.
type PostgresStore struct {
	q querier
}

// NewPostgresStore creates a store on top of an open pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{q: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS learning_modules (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL,
	order_index INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS topics (
	id                BIGSERIAL PRIMARY KEY,
	module_id         BIGINT NOT NULL REFERENCES learning_modules(id) ON DELETE CASCADE,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	difficulty        TEXT NOT NULL,
	estimated_minutes INT NOT NULL,
	content           TEXT NOT NULL,
	order_index       INT NOT NULL,
	published         BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (module_id, title)
);

CREATE TABLE IF NOT EXISTS practice_questions (
	id          BIGSERIAL PRIMARY KEY,
	topic_id    BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	solution    TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	difficulty  TEXT NOT NULL,
	order_index INT NOT NULL
);

CREATE INDEX IF NOT EXISTS practice_questions_topic_order_idx
	ON practice_questions (topic_id, order_index);

CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	full_name     TEXT NOT NULL DEFAULT '',
	roles         TEXT[] NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id                UUID PRIMARY KEY,
	module            TEXT NOT NULL,
	final_state       TEXT NOT NULL,
	files_seen        INT NOT NULL DEFAULT 0,
	files_failed      INT NOT NULL DEFAULT 0,
	topics_created    INT NOT NULL DEFAULT 0,
	topics_skipped    INT NOT NULL DEFAULT 0,
	questions_created INT NOT NULL DEFAULT 0,
	questions_skipped INT NOT NULL DEFAULT 0,
	questions_failed  INT NOT NULL DEFAULT 0,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the catalog tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate catalog schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindModulesByCategory(ctx context.Context, category ModuleType) ([]Module, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.q.Query(ctx,
		`SELECT id, name, description, category, order_index
		 FROM learning_modules
		 WHERE category = $1
		 ORDER BY id ASC`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	return collectModules(rows)
}

func (s *PostgresStore) FindTopicByModuleAndTitle(ctx context.Context, moduleID int64, title string) (*Topic, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t := &Topic{}
	err := s.q.QueryRow(ctx,
		`SELECT id, module_id, title, description, difficulty, estimated_minutes, content, order_index, published
		 FROM topics
		 WHERE module_id = $1 AND title = $2
		 LIMIT 1`,
		moduleID,
		title,
	).Scan(&t.ID, &t.ModuleID, &t.Title, &t.Description, &t.Difficulty, &t.EstimatedMinutes, &t.Content, &t.OrderIndex, &t.Published)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get topic: %w", err)
	}
	return t, true, nil
}

func (s *PostgresStore) FindQuestionsByTopicOrdered(ctx context.Context, topicID int64) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.q.Query(ctx,
		`SELECT id, topic_id, title, description, solution, type, difficulty, order_index
		 FROM practice_questions
		 WHERE topic_id = $1
		 ORDER BY order_index ASC`,
		topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.TopicID, &q.Title, &q.Description, &q.Solution, &q.Type, &q.Difficulty, &q.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveModule(ctx context.Context, m *Module) error {
	if !m.Category.Valid() {
		return fmt.Errorf("invalid module category %q", m.Category)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.q.QueryRow(ctx,
		`INSERT INTO learning_modules (name, description, category, order_index)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		m.Name,
		m.Description,
		string(m.Category),
		m.OrderIndex,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert module: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveTopic(ctx context.Context, t *Topic) error {
	if t.Title == "" {
		return fmt.Errorf("topic title is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.q.QueryRow(ctx,
		`INSERT INTO topics (module_id, title, description, difficulty, estimated_minutes, content, order_index, published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		t.ModuleID,
		t.Title,
		t.Description,
		string(t.Difficulty),
		t.EstimatedMinutes,
		t.Content,
		t.OrderIndex,
		t.Published,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveQuestion(ctx context.Context, q *Question) error {
	if q.Title == "" {
		return fmt.Errorf("question title is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.q.QueryRow(ctx,
		`INSERT INTO practice_questions (topic_id, title, description, solution, type, difficulty, order_index)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		q.TopicID,
		q.Title,
		q.Description,
		q.Solution,
		string(q.Type),
		string(q.Difficulty),
		q.OrderIndex,
	).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListModules(ctx context.Context) ([]Module, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.q.Query(ctx,
		`SELECT id, name, description, category, order_index
		 FROM learning_modules
		 ORDER BY order_index ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	return collectModules(rows)
}

func (s *PostgresStore) ListTopics(ctx context.Context, moduleID int64) ([]Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.q.Query(ctx,
		`SELECT id, module_id, title, description, difficulty, estimated_minutes, content, order_index, published
		 FROM topics
		 WHERE module_id = $1
		 ORDER BY order_index ASC, id ASC`,
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var out []Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.ModuleID, &t.Title, &t.Description, &t.Difficulty, &t.EstimatedMinutes, &t.Content, &t.OrderIndex, &t.Published); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := s.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after Commit is a no-op. On error or panic it releases the
	// savepoint or the pooled connection.
	defer tx.Rollback(context.WithoutCancel(ctx))

	if err := fn(&PostgresStore{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	u := &User{}
	err := s.q.QueryRow(ctx,
		`SELECT id, username, email, password_hash, full_name, roles, created_at, updated_at
		 FROM users
		 WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, u *User) error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}

	err := s.q.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, full_name, roles, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.FullName,
		roles,
		u.CreatedAt,
		u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func collectModules(rows pgx.Rows) ([]Module, error) {
	defer rows.Close()

	var out []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return out, nil
}
