package repository

import (
	"context"
	"sync"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// MemoryTaskSetRepository keeps the current task set in process memory.
// It is lost on restart.
type MemoryTaskSetRepository struct {
	mu    sync.RWMutex
	tasks []models.Task
}

// NewMemoryTaskSetRepository creates an empty in-memory store
func NewMemoryTaskSetRepository() *MemoryTaskSetRepository {
	return &MemoryTaskSetRepository{}
}

// Current returns a copy of the stored tasks
func (r *MemoryTaskSetRepository) Current(ctx context.Context) ([]models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneTasks(r.tasks), nil
}

// Replace swaps the stored set for a copy of tasks
func (r *MemoryTaskSetRepository) Replace(ctx context.Context, tasks []models.Task) error {
	snapshot := cloneTasks(tasks)
	r.mu.Lock()
	r.tasks = snapshot
	r.mu.Unlock()
	return nil
}

// Clear removes every stored task
func (r *MemoryTaskSetRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.tasks = nil
	r.mu.Unlock()
	return nil
}

func cloneTasks(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		if t.DueDate != nil {
			d := *t.DueDate
			t.DueDate = &d
		}
		t.Dependencies = append([]string{}, t.Dependencies...)
		out[i] = t
	}
	return out
}
