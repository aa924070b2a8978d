package server

import (
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
)

func (s *Server) handleListTasks(c echo.Context) error {
	tasks, err := s.store.TasksVisibleTo(c.Request().Context(), currentUser(c))
	if err != nil {
		s.log.Error("Failed to list tasks", logger.F("error", err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleGetTask(c echo.Context) error {
	t, err := s.visibleTask(c)
	if err != nil {
		return s.taskError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var t model.Task
	if err := c.Bind(&t); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if err := t.ValidateNew(false); err != nil {
		return s.taskError(c, err)
	}

	now := s.now()
	t.ID = 0
	t.CreatedBy = currentUser(c)
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	t.AssignedUsers = uniqueIDs(t.AssignedUsers)
	if t.AssignedTo != nil && *t.AssignedTo == 0 {
		t.AssignedTo = nil
	}
	t.CreatedAt = &now
	t.UpdatedAt = &now
	t.CompletedAt = nil
	if t.IsCompleted() {
		t.CompletedAt = &now
	}

	created, err := s.store.CreateTask(c.Request().Context(), t)
	if err != nil {
		return s.taskError(c, err)
	}

	s.log.Info("Task created", logger.F("task_id", created.ID), logger.F("user_id", created.CreatedBy))
	s.publish(model.FanOutCreated(created))
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var patch model.TaskPatch
	if err := c.Bind(&patch); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if err := patch.Validate(); err != nil {
		return s.taskError(c, err)
	}

	t, err := s.visibleTask(c)
	if err != nil {
		return s.taskError(c, err)
	}
	prev := t.Clone()
	t.Apply(patch, s.now())

	if err := s.store.UpdateTask(c.Request().Context(), t); err != nil {
		return s.taskError(c, err)
	}

	s.log.Info("Task updated", logger.F("task_id", t.ID), logger.F("user_id", currentUser(c)))
	s.publish(model.FanOutUpdated(prev, t))
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	t, err := s.visibleTask(c)
	if err != nil {
		return s.taskError(c, err)
	}
	if err := s.store.DeleteTask(c.Request().Context(), t.ID); err != nil {
		return s.taskError(c, err)
	}

	s.log.Info("Task deleted", logger.F("task_id", t.ID), logger.F("user_id", currentUser(c)))
	s.publish(model.FanOutDeleted(t))
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// visibleTask loads the :id task if the caller created it or is assigned
// to it. Other tasks are reported as missing.
func (s *Server) visibleTask(c echo.Context) (model.Task, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return model.Task{}, model.NewValidationError("id", "invalid task id")
	}
	t, err := s.store.GetTask(c.Request().Context(), id)
	if err != nil {
		return model.Task{}, err
	}
	me := currentUser(c)
	if t.CreatedBy != me && !t.IsAssignedTo(me) {
		return model.Task{}, model.ErrNotFound
	}
	return t, nil
}

func (s *Server) taskError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrValidation):
		return errorJSON(c, http.StatusBadRequest, "%s", err.Error())
	case errors.Is(err, model.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "task not found")
	default:
		s.log.Error("Task operation failed", logger.F("error", err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}
}

// publish delivers fan-out events. Failures are logged; the HTTP result
// does not depend on them.
func (s *Server) publish(deliveries []model.Delivery) {
	for _, d := range deliveries {
		if err := s.pub.Publish(d.UserID, d.Event); err != nil {
			s.log.Warn("Failed to publish event",
				logger.F("user_id", d.UserID),
				logger.F("type", d.Event.Type),
				logger.F("error", err))
		}
	}
}

func uniqueIDs(ids []int64) []int64 {
	var out []int64
	for _, id := range ids {
		if id != 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
