package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/groblegark/tangle/internal/model"
	"github.com/groblegark/tangle/internal/store"
)

// userColumns is the column list used for SELECT statements on the users table.
const userColumns = `id, username, email, password_hash, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// translateUnique maps a PostgreSQL unique-violation error to store.ErrConflict.
func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%v: %w", pqErr.Constraint, store.ErrConflict)
	}
	return err
}

func queryCreateUser(ctx context.Context, db executor, u *model.User) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		u.ID, u.Username, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt)
	return translateUnique(err)
}

func queryGetUser(ctx context.Context, db executor, id string) (*model.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func queryGetUserByUsername(ctx context.Context, db executor, username string) (*model.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func queryCreateSession(ctx context.Context, db executor, s *model.Session) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		s.Token, s.UserID, s.ExpiresAt,
	).Scan(&s.CreatedAt)
}

// queryGetSessionUser resolves a live session and its user in one round-trip.
// Expired sessions behave exactly like missing ones.
func queryGetSessionUser(ctx context.Context, db executor, token string) (*model.Session, *model.User, error) {
	row := db.QueryRowContext(ctx, `
		SELECT s.token, s.user_id, s.created_at, s.expires_at,
			u.id, u.username, u.email, u.password_hash, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > NOW()`,
		token,
	)

	var sess model.Session
	var u model.User
	err := row.Scan(
		&sess.Token,
		&sess.UserID,
		&sess.CreatedAt,
		&sess.ExpiresAt,
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, nil, err
	}
	return &sess, &u, nil
}

func queryDeleteSession(ctx context.Context, db executor, token string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryDeleteExpiredSessions(ctx context.Context, db executor, before time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, user_id, entity_id, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic, e.UserID, e.EntityID, jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, userID string, afterID int64, limit int) ([]*model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, user_id, entity_id, payload, created_at
		FROM events
		WHERE user_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3`,
		userID, afterID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func queryListAllUsers(ctx context.Context, db executor) ([]*model.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func queryListAllTags(ctx context.Context, db executor) ([]*model.Tag, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTags(rows)
}

func queryListAllTasks(ctx context.Context, db executor) ([]*model.Task, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func queryListAllTaskTags(ctx context.Context, db executor) ([]*model.TaskTag, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT task_id, tag_id FROM task_tags ORDER BY task_id, tag_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*model.TaskTag
	for rows.Next() {
		var tt model.TaskTag
		if err := rows.Scan(&tt.TaskID, &tt.TagID); err != nil {
			return nil, err
		}
		links = append(links, &tt)
	}
	return links, rows.Err()
}
