package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crm-api/models"
	"crm-api/query"
	"crm-api/repository"
	"crm-api/types"
)

type TasksHandler struct {
	repo        *repository.TasksRepository
	clientsRepo *repository.ClientsRepository
	resolver    *query.Resolver
}

func NewTasksHandler(repo *repository.TasksRepository, clientsRepo *repository.ClientsRepository, resolver *query.Resolver) *TasksHandler {
	return &TasksHandler{repo: repo, clientsRepo: clientsRepo, resolver: resolver}
}

func validTaskStatus(s string) bool {
	return s == models.TaskStatusTodo || s == models.TaskStatusInProgress || s == models.TaskStatusDone
}

func validTaskPriority(p string) bool {
	return p == models.TaskPriorityLow || p == models.TaskPriorityMedium || p == models.TaskPriorityHigh
}

func (h *TasksHandler) List(c *gin.Context) {
	resolved, err := h.resolver.Resolve(query.Input{
		ViewID:      c.Query("view_id"),
		FiltersJSON: c.Query("filters"),
		SortJSON:    c.Query("sort"),
	}, query.Tasks, principal(c), time.Now())
	if err != nil {
		respondFilterError(c, err)
		return
	}

	var clientID *int
	if raw := c.Query("client_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid client_id"))
			return
		}
		clientID = &id
	}

	pagination := types.ParsePaginationParams(c)
	items, total, err := h.repo.List(resolved.Predicate, c.Query("search"), clientID,
		resolved.OrderBy(), pagination.PageSize, pagination.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(pagination.BuildResponse(items, total)))
}

func (h *TasksHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	task, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Task not found"))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(task))
}

func (h *TasksHandler) Create(c *gin.Context) {
	var req struct {
		Title        string     `json:"title" binding:"required"`
		Description  *string    `json:"description"`
		Status       string     `json:"status"`
		Priority     string     `json:"priority"`
		DueDate      *time.Time `json:"dueDate"`
		ClientID     int        `json:"clientId" binding:"required"`
		AssignedToID *int       `json:"assignedToId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if req.Status == "" {
		req.Status = models.TaskStatusTodo
	}
	if req.Priority == "" {
		req.Priority = models.TaskPriorityMedium
	}
	if !validTaskStatus(req.Status) || !validTaskPriority(req.Priority) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid status or priority"))
		return
	}
	client, err := h.clientsRepo.GetByID(req.ClientID)
	if err != nil || client == nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Client not found"))
		return
	}

	in := repository.TaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ClientID:     req.ClientID,
		AssignedToID: req.AssignedToID,
	}
	// Tasks born done are completed now.
	if req.Status == models.TaskStatusDone {
		now := time.Now()
		in.CompletedAt = &now
	}
	task, err := h.repo.Create(in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(task))
}

func (h *TasksHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	existing, err := h.repo.GetByID(id)
	if err != nil || existing == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Task not found"))
		return
	}
	var req struct {
		Title        *string    `json:"title"`
		Description  *string    `json:"description"`
		Status       *string    `json:"status"`
		Priority     *string    `json:"priority"`
		DueDate      *time.Time `json:"dueDate"`
		AssignedToID *int       `json:"assignedToId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if req.Status != nil && !validTaskStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid status"))
		return
	}
	if req.Priority != nil && !validTaskPriority(*req.Priority) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid priority"))
		return
	}

	// Completion tracking: entering done stamps completed_at, leaving done
	// clears it, everything else preserves it.
	completedAt := existing.CompletedAt
	if req.Status != nil {
		switch {
		case existing.Status != models.TaskStatusDone && *req.Status == models.TaskStatusDone:
			now := time.Now()
			completedAt = &now
		case existing.Status == models.TaskStatusDone && *req.Status != models.TaskStatusDone:
			completedAt = nil
		}
	}

	err = h.repo.Update(id, repository.TaskUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
		CompletedAt:  completedAt,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	updated, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(updated))
}

func (h *TasksHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	existing, err := h.repo.GetByID(id)
	if err != nil || existing == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Task not found"))
		return
	}
	if err := h.repo.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Task deleted successfully"}))
}
