package app

import (
	"time"

	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/repository"
)

// demoUserID owns the tasks assigned to the mock user
const demoUserID = 2

// seedDemo fills the mock repository so a fresh mock session has
// something to show, including one task assigned by another user
func seedDemo(repo *repository.Memory, me int64) {
	now := time.Now()
	due := now.AddDate(0, 0, 7).Format(model.DueDateLayout)
	other := int64(demoUserID)
	if other == me {
		other = me + 1
	}

	repo.Seed(
		model.Task{
			Title:     "Revisar tareas pendientes",
			Status:    model.StatusPending,
			CreatedBy: me,
			DueDate:   due,
			CreatedAt: &now,
			UpdatedAt: &now,
		},
		model.Task{
			Title:         "Preparar presentación",
			Description:   "Diapositivas para la reunión del lunes",
			Status:        model.StatusInProgress,
			CreatedBy:     other,
			AssignedUsers: []int64{me},
			Category:      "Trabajo",
			DueDate:       due,
			CreatedAt:     &now,
			UpdatedAt:     &now,
		},
		model.Task{
			Title:       "Comprar víveres",
			Status:      model.StatusCompleted,
			CreatedBy:   me,
			Category:    "Casa",
			CreatedAt:   &now,
			UpdatedAt:   &now,
			CompletedAt: &now,
		},
	)
}
