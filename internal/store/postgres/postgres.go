// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/groblegark/tangle/internal/model"
	"github.com/groblegark/tangle/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Ping checks connectivity to the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *model.User) error {
	return queryCreateUser(ctx, s.db, user)
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return queryGetUser(ctx, s.db, id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return queryGetUserByUsername(ctx, s.db, username)
}

func (s *PostgresStore) CreateSession(ctx context.Context, session *model.Session) error {
	return queryCreateSession(ctx, s.db, session)
}

func (s *PostgresStore) GetSessionUser(ctx context.Context, token string) (*model.Session, *model.User, error) {
	return queryGetSessionUser(ctx, s.db, token)
}

func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	return queryDeleteSession(ctx, s.db, token)
}

func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return queryDeleteExpiredSessions(ctx, s.db, before)
}

func (s *PostgresStore) CreateTask(ctx context.Context, task *model.Task, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return queryCreateTask(ctx, s.db, task)
	}
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.CreateTask(ctx, task, tagIDs)
	})
}

func (s *PostgresStore) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	return queryGetTask(ctx, s.db, userID, id)
}

func (s *PostgresStore) ListTasks(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, int, error) {
	return queryListTasks(ctx, s.db, userID, filter)
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task *model.Task) error {
	return queryUpdateTask(ctx, s.db, task)
}

func (s *PostgresStore) DeleteTask(ctx context.Context, userID, id string) error {
	return queryDeleteTask(ctx, s.db, userID, id)
}

func (s *PostgresStore) RelatedTasks(ctx context.Context, userID, id string) ([]*model.Task, error) {
	return queryRelatedTasks(ctx, s.db, userID, id)
}

func (s *PostgresStore) SetTaskTags(ctx context.Context, userID, taskID string, tagIDs []string) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.SetTaskTags(ctx, userID, taskID, tagIDs)
	})
}

func (s *PostgresStore) AddTaskTag(ctx context.Context, userID, taskID, tagID string) error {
	return queryAddTaskTag(ctx, s.db, userID, taskID, tagID)
}

func (s *PostgresStore) RemoveTaskTag(ctx context.Context, userID, taskID, tagID string) error {
	return queryRemoveTaskTag(ctx, s.db, userID, taskID, tagID)
}

func (s *PostgresStore) CreateTag(ctx context.Context, tag *model.Tag) error {
	return queryCreateTag(ctx, s.db, tag)
}

func (s *PostgresStore) GetTag(ctx context.Context, userID, id string) (*model.Tag, error) {
	return queryGetTag(ctx, s.db, userID, id)
}

func (s *PostgresStore) GetTagByName(ctx context.Context, userID, name string) (*model.Tag, error) {
	return queryGetTagByName(ctx, s.db, userID, name)
}

func (s *PostgresStore) ListTags(ctx context.Context, userID string) ([]*model.Tag, error) {
	return queryListTags(ctx, s.db, userID)
}

func (s *PostgresStore) UpdateTag(ctx context.Context, tag *model.Tag) error {
	return queryUpdateTag(ctx, s.db, tag)
}

func (s *PostgresStore) DeleteTag(ctx context.Context, userID, id string) error {
	return queryDeleteTag(ctx, s.db, userID, id)
}

func (s *PostgresStore) MergeTags(ctx context.Context, userID, fromID, intoID string) (*model.Tag, error) {
	var merged *model.Tag
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		merged, err = tx.MergeTags(ctx, userID, fromID, intoID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *PostgresStore) RelatedTags(ctx context.Context, userID, id string, limit int) ([]*model.Tag, error) {
	return queryRelatedTags(ctx, s.db, userID, id, limit)
}

func (s *PostgresStore) AutocompleteTags(ctx context.Context, userID, prefix string, limit int) ([]*model.Tag, error) {
	return queryAutocompleteTags(ctx, s.db, userID, prefix, limit)
}

func (s *PostgresStore) GraphSnapshot(ctx context.Context, userID string, filter model.GraphFilter) (*model.GraphSnapshot, error) {
	return queryGraphSnapshot(ctx, s.db, userID, filter)
}

func (s *PostgresStore) UserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	return queryUserStats(ctx, s.db, userID)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvents(ctx context.Context, userID string, afterID int64, limit int) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.db, userID, afterID, limit)
}

func (s *PostgresStore) ListAllUsers(ctx context.Context) ([]*model.User, error) {
	return queryListAllUsers(ctx, s.db)
}

func (s *PostgresStore) ListAllTags(ctx context.Context) ([]*model.Tag, error) {
	return queryListAllTags(ctx, s.db)
}

func (s *PostgresStore) ListAllTasks(ctx context.Context) ([]*model.Task, error) {
	return queryListAllTasks(ctx, s.db)
}

func (s *PostgresStore) ListAllTaskTags(ctx context.Context) ([]*model.TaskTag, error) {
	return queryListAllTaskTags(ctx, s.db)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateUser(ctx context.Context, user *model.User) error {
	return queryCreateUser(ctx, s.tx, user)
}

func (s *txStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return queryGetUser(ctx, s.tx, id)
}

func (s *txStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return queryGetUserByUsername(ctx, s.tx, username)
}

func (s *txStore) CreateSession(ctx context.Context, session *model.Session) error {
	return queryCreateSession(ctx, s.tx, session)
}

func (s *txStore) GetSessionUser(ctx context.Context, token string) (*model.Session, *model.User, error) {
	return queryGetSessionUser(ctx, s.tx, token)
}

func (s *txStore) DeleteSession(ctx context.Context, token string) error {
	return queryDeleteSession(ctx, s.tx, token)
}

func (s *txStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return queryDeleteExpiredSessions(ctx, s.tx, before)
}

func (s *txStore) CreateTask(ctx context.Context, task *model.Task, tagIDs []string) error {
	if err := queryCreateTask(ctx, s.tx, task); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	return querySetTaskTags(ctx, s.tx, task.UserID, task.ID, tagIDs)
}

func (s *txStore) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	return queryGetTask(ctx, s.tx, userID, id)
}

func (s *txStore) ListTasks(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, int, error) {
	return queryListTasks(ctx, s.tx, userID, filter)
}

func (s *txStore) UpdateTask(ctx context.Context, task *model.Task) error {
	return queryUpdateTask(ctx, s.tx, task)
}

func (s *txStore) DeleteTask(ctx context.Context, userID, id string) error {
	return queryDeleteTask(ctx, s.tx, userID, id)
}

func (s *txStore) RelatedTasks(ctx context.Context, userID, id string) ([]*model.Task, error) {
	return queryRelatedTasks(ctx, s.tx, userID, id)
}

func (s *txStore) SetTaskTags(ctx context.Context, userID, taskID string, tagIDs []string) error {
	return querySetTaskTags(ctx, s.tx, userID, taskID, tagIDs)
}

func (s *txStore) AddTaskTag(ctx context.Context, userID, taskID, tagID string) error {
	return queryAddTaskTag(ctx, s.tx, userID, taskID, tagID)
}

func (s *txStore) RemoveTaskTag(ctx context.Context, userID, taskID, tagID string) error {
	return queryRemoveTaskTag(ctx, s.tx, userID, taskID, tagID)
}

func (s *txStore) CreateTag(ctx context.Context, tag *model.Tag) error {
	return queryCreateTag(ctx, s.tx, tag)
}

func (s *txStore) GetTag(ctx context.Context, userID, id string) (*model.Tag, error) {
	return queryGetTag(ctx, s.tx, userID, id)
}

func (s *txStore) GetTagByName(ctx context.Context, userID, name string) (*model.Tag, error) {
	return queryGetTagByName(ctx, s.tx, userID, name)
}

func (s *txStore) ListTags(ctx context.Context, userID string) ([]*model.Tag, error) {
	return queryListTags(ctx, s.tx, userID)
}

func (s *txStore) UpdateTag(ctx context.Context, tag *model.Tag) error {
	return queryUpdateTag(ctx, s.tx, tag)
}

func (s *txStore) DeleteTag(ctx context.Context, userID, id string) error {
	return queryDeleteTag(ctx, s.tx, userID, id)
}

func (s *txStore) MergeTags(ctx context.Context, userID, fromID, intoID string) (*model.Tag, error) {
	return queryMergeTags(ctx, s.tx, userID, fromID, intoID)
}

func (s *txStore) RelatedTags(ctx context.Context, userID, id string, limit int) ([]*model.Tag, error) {
	return queryRelatedTags(ctx, s.tx, userID, id, limit)
}

func (s *txStore) AutocompleteTags(ctx context.Context, userID, prefix string, limit int) ([]*model.Tag, error) {
	return queryAutocompleteTags(ctx, s.tx, userID, prefix, limit)
}

func (s *txStore) GraphSnapshot(ctx context.Context, userID string, filter model.GraphFilter) (*model.GraphSnapshot, error) {
	return queryGraphSnapshot(ctx, s.tx, userID, filter)
}

func (s *txStore) UserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	return queryUserStats(ctx, s.tx, userID)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) GetEvents(ctx context.Context, userID string, afterID int64, limit int) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.tx, userID, afterID, limit)
}

func (s *txStore) ListAllUsers(ctx context.Context) ([]*model.User, error) {
	return queryListAllUsers(ctx, s.tx)
}

func (s *txStore) ListAllTags(ctx context.Context) ([]*model.Tag, error) {
	return queryListAllTags(ctx, s.tx)
}

func (s *txStore) ListAllTasks(ctx context.Context) ([]*model.Task, error) {
	return queryListAllTasks(ctx, s.tx)
}

func (s *txStore) ListAllTaskTags(ctx context.Context) ([]*model.TaskTag, error) {
	return queryListAllTaskTags(ctx, s.tx)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Ping is a no-op for a transaction store; the transaction is already live.
func (s *txStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
