package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jengzang/taskrank-backend-go/internal/database"
	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// TaskSetRepository stores the current task set in SQLite. The set is
// replaced as a whole on every analysis, so rows carry their batch position
// and are rewritten inside one transaction.
type TaskSetRepository struct {
	db *sql.DB
}

// NewTaskSetRepository creates a new task set repository
func NewTaskSetRepository(db *sql.DB) *TaskSetRepository {
	return &TaskSetRepository{db: db}
}

// Current returns the stored tasks in batch order
func (r *TaskSetRepository) Current(ctx context.Context) ([]models.Task, error) {
	query := `
		SELECT id, title, due_date, estimated_hours, importance, dependencies_json
		FROM current_tasks
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query current tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var (
			task     models.Task
			dueDate  sql.NullString
			depsJSON string
		)
		if err := rows.Scan(&task.ID, &task.Title, &dueDate, &task.EstimatedHours, &task.Importance, &depsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if dueDate.Valid && dueDate.String != "" {
			d, err := models.ParseDate(dueDate.String)
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", task.ID, err)
			}
			task.DueDate = &d
		}
		if err := json.Unmarshal([]byte(depsJSON), &task.Dependencies); err != nil {
			return nil, fmt.Errorf("task %s: failed to decode dependencies: %w", task.ID, err)
		}
		if task.Dependencies == nil {
			task.Dependencies = []string{}
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// Replace swaps the stored set for tasks
func (r *TaskSetRepository) Replace(ctx context.Context, tasks []models.Task) error {
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM current_tasks"); err != nil {
			return fmt.Errorf("failed to clear current tasks: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO current_tasks (
				position, id, title, due_date, estimated_hours, importance, dependencies_json
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, task := range tasks {
			var dueDate sql.NullString
			if task.DueDate != nil {
				dueDate = sql.NullString{String: task.DueDate.String(), Valid: true}
			}
			deps := task.Dependencies
			if deps == nil {
				deps = []string{}
			}
			depsJSON, err := json.Marshal(deps)
			if err != nil {
				return fmt.Errorf("failed to encode dependencies of %s: %w", task.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, i, task.ID, task.Title, dueDate, task.EstimatedHours, task.Importance, string(depsJSON)); err != nil {
				return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO task_set_meta (singleton, task_count, replaced_at)
			VALUES (1, ?, ?)
			ON CONFLICT(singleton) DO UPDATE SET
				task_count = excluded.task_count,
				replaced_at = excluded.replaced_at
		`, len(tasks), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to update task set metadata: %w", err)
		}
		return nil
	})
}

// Clear removes every stored task
func (r *TaskSetRepository) Clear(ctx context.Context) error {
	return r.Replace(ctx, nil)
}
