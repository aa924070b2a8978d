package server

import (
	"fmt"
	"strings"
)

// migrate runs database migrations
func (st *Store) migrate() error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if st.dialect == dialectPostgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	migrations := []string{
		migrationUsers,
		migrationTasks,
		migrationTaskAssignees,
	}

	for i, m := range migrations {
		if _, err := st.db.Exec(strings.ReplaceAll(m, "{{pk}}", pk)); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const migrationUsers = `
CREATE TABLE IF NOT EXISTS users (
    id {{pk}},
    username TEXT UNIQUE NOT NULL,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`

const migrationTasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id {{pk}},
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    created_by BIGINT NOT NULL REFERENCES users(id),
    assigned_to BIGINT,
    category TEXT NOT NULL DEFAULT '',
    due_date TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_created_by ON tasks(created_by);
CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks(assigned_to);
`

const migrationTaskAssignees = `
CREATE TABLE IF NOT EXISTS task_assignees (
    task_id BIGINT NOT NULL REFERENCES tasks(id),
    user_id BIGINT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (task_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_task_assignees_user ON task_assignees(user_id);
`
