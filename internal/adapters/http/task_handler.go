package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/doloop/core/internal/application/services"
	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/ports"
)

// TaskHandler handles task requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// ListTasks godoc
// @Summary List the tasks of a loop in order
// @Tags tasks
// @Produce json
// @Param id path string true "Loop ID"
// @Success 200 {array} entities.Task
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops/{id}/tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), user.ID, loopID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// CreateTask godoc
// @Summary Append a task to a loop
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Loop ID"
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops/{id}/tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), user.ID, loopID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, task)
}

// UpdateTask godoc
// @Summary Update task fields
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Fields to change"
// @Success 200 {object} entities.Task
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	user := getUserFromContext(c)
	taskID, err := parseID(c, "id", entities.ErrTaskNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), user.ID, taskID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, task)
}

// CompleteTask godoc
// @Summary Mark a task completed
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} entities.Task
// @Security BearerAuth
// @Router /tasks/{id}/complete [put]
func (h *TaskHandler) CompleteTask(c echo.Context) error {
	user := getUserFromContext(c)
	taskID, err := parseID(c, "id", entities.ErrTaskNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	task, err := h.taskService.CompleteTask(c.Request().Context(), user.ID, taskID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} ports.MessageResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	user := getUserFromContext(c)
	taskID, err := parseID(c, "id", entities.ErrTaskNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), user.ID, taskID); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Task deleted"})
}
