package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/existflow/taskcore/internal/model"
)

// ErrUserExists is returned when a username or email is already registered
var ErrUserExists = errors.New("user already exists")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store persists users and tasks in postgres or SQLite
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// OpenStore opens the database named by dsn. postgres:// and
// postgresql:// URLs use lib/pq; sqlite://path, file: and bare paths use
// SQLite.
func OpenStore(dsn string) (*Store, error) {
	st := &Store{}
	var driver string

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver = "postgres"
		st.dialect = dialectPostgres
	default:
		driver = "sqlite"
		dsn = strings.TrimPrefix(dsn, "sqlite://")
		if path := strings.TrimPrefix(dsn, "file:"); path != ":memory:" && !strings.HasPrefix(path, ":memory:") {
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return nil, fmt.Errorf("failed to create database directory: %w", err)
				}
			}
		}
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if st.dialect == dialectSQLite {
		db.SetMaxOpenConns(1)
	}
	st.db = db

	if err := st.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// Close closes the database connection
func (st *Store) Close() error {
	return st.db.Close()
}

// Ping checks the database is reachable
func (st *Store) Ping(ctx context.Context) error {
	return st.db.PingContext(ctx)
}

type userRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	FirstName    string `db:"first_name"`
	LastName     string `db:"last_name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
}

func (r userRow) user() model.User {
	return model.User{
		ID:        r.ID,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
	}
}

// CreateUser inserts a user with an already hashed password
func (st *Store) CreateUser(ctx context.Context, reg model.Registration, hash string) (model.User, error) {
	var n int
	err := st.db.GetContext(ctx, &n, st.db.Rebind(
		`SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`), reg.Username, reg.Email)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to check user: %w", err)
	}
	if n > 0 {
		return model.User{}, ErrUserExists
	}

	var id int64
	err = st.db.QueryRowxContext(ctx, st.db.Rebind(`
		INSERT INTO users (username, first_name, last_name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		reg.Username, reg.FirstName, reg.LastName, reg.Email, hash, formatTime(time.Now()),
	).Scan(&id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return model.User{}, ErrUserExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return model.User{
		ID:        id,
		Username:  reg.Username,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     reg.Email,
	}, nil
}

// UserByUsername returns a user and its password hash
func (st *Store) UserByUsername(ctx context.Context, username string) (model.User, string, error) {
	var row userRow
	err := st.db.GetContext(ctx, &row, st.db.Rebind(`SELECT * FROM users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, "", fmt.Errorf("%w: user %s", model.ErrNotFound, username)
	}
	if err != nil {
		return model.User{}, "", fmt.Errorf("failed to load user: %w", err)
	}
	return row.user(), row.PasswordHash, nil
}

// ListUsers returns every user ordered by id
func (st *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	if err := st.db.SelectContext(ctx, &rows, `SELECT * FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

type taskRow struct {
	ID          int64          `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Status      string         `db:"status"`
	CreatedBy   int64          `db:"created_by"`
	AssignedTo  sql.NullInt64  `db:"assigned_to"`
	Category    string         `db:"category"`
	DueDate     string         `db:"due_date"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
	CompletedAt sql.NullString `db:"completed_at"`
}

func (r taskRow) task() model.Task {
	t := model.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      model.Status(r.Status),
		CreatedBy:   r.CreatedBy,
		Category:    r.Category,
		DueDate:     r.DueDate,
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
	if r.AssignedTo.Valid {
		v := r.AssignedTo.Int64
		t.AssignedTo = &v
	}
	if r.CompletedAt.Valid {
		t.CompletedAt = parseTime(r.CompletedAt.String)
	}
	return t
}

type assigneeRow struct {
	TaskID int64 `db:"task_id"`
	UserID int64 `db:"user_id"`
}

// CreateTask inserts t and returns it with its id
func (st *Store) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	tx, err := st.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO tasks (title, description, status, created_by, assigned_to, category, due_date, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		t.Title, t.Description, string(t.Status), t.CreatedBy, nullInt(t.AssignedTo),
		t.Category, t.DueDate, formatTimePtr(t.CreatedAt), formatTimePtr(t.UpdatedAt), nullTime(t.CompletedAt),
	).Scan(&t.ID)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to create task: %w", err)
	}

	if err := writeAssignees(ctx, tx, t.ID, t.AssignedUsers); err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, fmt.Errorf("failed to commit task: %w", err)
	}
	return t, nil
}

// GetTask returns one task
func (st *Store) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var row taskRow
	err := st.db.GetContext(ctx, &row, st.db.Rebind(`SELECT * FROM tasks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, fmt.Errorf("%w: task %d", model.ErrNotFound, id)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to load task: %w", err)
	}

	tasks, err := st.withAssignees(ctx, []taskRow{row})
	if err != nil {
		return model.Task{}, err
	}
	return tasks[0], nil
}

// TasksVisibleTo returns the tasks userID created or is assigned to
func (st *Store) TasksVisibleTo(ctx context.Context, userID int64) ([]model.Task, error) {
	var rows []taskRow
	err := st.db.SelectContext(ctx, &rows, st.db.Rebind(`
		SELECT * FROM tasks
		WHERE created_by = ?
		   OR assigned_to = ?
		   OR id IN (SELECT task_id FROM task_assignees WHERE user_id = ?)
		ORDER BY id`), userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return st.withAssignees(ctx, rows)
}

// UpdateTask replaces the stored fields of t
func (st *Store) UpdateTask(ctx context.Context, t model.Task) error {
	tx, err := st.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE tasks
		SET title = ?, description = ?, status = ?, assigned_to = ?, category = ?,
		    due_date = ?, updated_at = ?, completed_at = ?
		WHERE id = ?`),
		t.Title, t.Description, string(t.Status), nullInt(t.AssignedTo), t.Category,
		t.DueDate, formatTimePtr(t.UpdatedAt), nullTime(t.CompletedAt), t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: task %d", model.ErrNotFound, t.ID)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM task_assignees WHERE task_id = ?`), t.ID); err != nil {
		return fmt.Errorf("failed to clear assignees: %w", err)
	}
	if err := writeAssignees(ctx, tx, t.ID, t.AssignedUsers); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task: %w", err)
	}
	return nil
}

// DeleteTask removes a task and its assignees
func (st *Store) DeleteTask(ctx context.Context, id int64) error {
	tx, err := st.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM task_assignees WHERE task_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete assignees: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: task %d", model.ErrNotFound, id)
	}
	return tx.Commit()
}

func writeAssignees(ctx context.Context, tx *sqlx.Tx, taskID int64, users []int64) error {
	for i, uid := range users {
		_, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO task_assignees (task_id, user_id, position) VALUES (?, ?, ?)`), taskID, uid, i)
		if err != nil {
			return fmt.Errorf("failed to assign user %d: %w", uid, err)
		}
	}
	return nil
}

// withAssignees converts rows to tasks and fills AssignedUsers in one query
func (st *Store) withAssignees(ctx context.Context, rows []taskRow) ([]model.Task, error) {
	tasks := make([]model.Task, len(rows))
	if len(rows) == 0 {
		return tasks, nil
	}

	ids := make([]int64, len(rows))
	index := make(map[int64]int, len(rows))
	for i, r := range rows {
		tasks[i] = r.task()
		ids[i] = r.ID
		index[r.ID] = i
	}

	query, args, err := sqlx.In(
		`SELECT task_id, user_id FROM task_assignees WHERE task_id IN (?) ORDER BY task_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build assignee query: %w", err)
	}
	var assignees []assigneeRow
	if err := st.db.SelectContext(ctx, &assignees, st.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load assignees: %w", err)
	}
	for _, a := range assignees {
		t := &tasks[index[a.TaskID]]
		t.AssignedUsers = append(t.AssignedUsers, a.UserID)
	}
	return tasks, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return formatTime(time.Now())
	}
	return formatTime(*t)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func parseTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
