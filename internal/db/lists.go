package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/taskcore/internal/model"
)

// List is a row of the lists table
type List struct {
	UserID    int64  `db:"user_id"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
}

// ListNames returns the lists of userID sorted by name
func (db *DB) ListNames(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := db.SelectContext(ctx, &names,
		`SELECT name FROM lists WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	return names, nil
}

// Lists returns the full rows of userID
func (db *DB) Lists(ctx context.Context, userID int64) ([]List, error) {
	var lists []List
	err := db.SelectContext(ctx, &lists,
		`SELECT user_id, name, created_at FROM lists WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	return lists, nil
}

// AddList stores a list name. It reports false when the list already existed.
func (db *DB) AddList(ctx context.Context, userID int64, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, model.NewValidationError("name", "list name is required")
	}
	if name == model.DefaultCategory {
		return false, model.NewValidationError("name", "the default list always exists")
	}

	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO lists (user_id, name, created_at) VALUES (?, ?, ?)`,
		userID, name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("failed to add list: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveList deletes a list name. It reports false when it did not exist.
func (db *DB) RemoveList(ctx context.Context, userID int64, name string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM lists WHERE user_id = ? AND name = ?`, userID, strings.TrimSpace(name))
	if err != nil {
		return false, fmt.Errorf("failed to remove list: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
