package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crm-api/models"
	"crm-api/query"
	"crm-api/repository"
	"crm-api/types"
	"crm-api/workflow"
)

type WorkflowsHandler struct {
	repo   *repository.WorkflowsRepository
	engine *workflow.Engine
}

func NewWorkflowsHandler(repo *repository.WorkflowsRepository, engine *workflow.Engine) *WorkflowsHandler {
	return &WorkflowsHandler{repo: repo, engine: engine}
}

func validTrigger(t string) bool {
	return t == models.TriggerClientCreated
}

func validAction(a string) bool {
	return a == models.ActionCreateTask || a == models.ActionSendEmail
}

func (h *WorkflowsHandler) List(c *gin.Context) {
	items, err := h.repo.ListByOwner(c.GetInt("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(items))
}

func (h *WorkflowsHandler) Get(c *gin.Context) {
	wf := h.ownedWorkflow(c)
	if wf == nil {
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(wf))
}

func (h *WorkflowsHandler) Create(c *gin.Context) {
	var req struct {
		Name         string          `json:"name" binding:"required"`
		Description  *string         `json:"description"`
		TriggerType  string          `json:"triggerType" binding:"required"`
		ActionType   string          `json:"actionType" binding:"required"`
		ActionConfig json.RawMessage `json:"actionConfig"`
		Filters      json.RawMessage `json:"filters"`
		IsActive     *bool           `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if !validTrigger(req.TriggerType) || !validAction(req.ActionType) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid trigger or action type"))
		return
	}
	// Stored filters are validated against the client schema up front so a
	// workflow cannot be saved with a filter its trigger can never compile.
	if len(req.Filters) > 0 {
		if err := validateClientFilter(req.Filters, c.GetInt("userId")); err != nil {
			respondFilterError(c, err)
			return
		}
	} else {
		req.Filters = json.RawMessage(`{}`)
	}
	if req.ActionConfig == nil {
		req.ActionConfig = json.RawMessage(`{}`)
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	wf, err := h.repo.Create(c.GetInt("userId"), repository.WorkflowInput{
		Name:         req.Name,
		Description:  req.Description,
		TriggerType:  req.TriggerType,
		ActionType:   req.ActionType,
		ActionConfig: req.ActionConfig,
		Filters:      req.Filters,
		IsActive:     isActive,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(wf))
}

func (h *WorkflowsHandler) Update(c *gin.Context) {
	existing := h.ownedWorkflow(c)
	if existing == nil {
		return
	}
	var req struct {
		Name         *string          `json:"name"`
		Description  *string          `json:"description"`
		TriggerType  *string          `json:"triggerType"`
		ActionType   *string          `json:"actionType"`
		ActionConfig *json.RawMessage `json:"actionConfig"`
		Filters      *json.RawMessage `json:"filters"`
		IsActive     *bool            `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if req.TriggerType != nil && !validTrigger(*req.TriggerType) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid trigger type"))
		return
	}
	if req.ActionType != nil && !validAction(*req.ActionType) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid action type"))
		return
	}
	if req.Filters != nil && len(*req.Filters) > 0 {
		if err := validateClientFilter(*req.Filters, c.GetInt("userId")); err != nil {
			respondFilterError(c, err)
			return
		}
	}
	err := h.repo.Update(existing.ID, repository.WorkflowUpdate{
		Name:         req.Name,
		Description:  req.Description,
		TriggerType:  req.TriggerType,
		ActionType:   req.ActionType,
		ActionConfig: req.ActionConfig,
		Filters:      req.Filters,
		IsActive:     req.IsActive,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	updated, err := h.repo.GetByID(existing.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(updated))
}

func (h *WorkflowsHandler) Delete(c *gin.Context) {
	existing := h.ownedWorkflow(c)
	if existing == nil {
		return
	}
	if err := h.repo.Delete(existing.ID); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Workflow deleted successfully"}))
}

// PreviewCount compiles a caller-supplied filter and reports how many
// clients currently match, system-wide.
func (h *WorkflowsHandler) PreviewCount(c *gin.Context) {
	var req struct {
		Filters json.RawMessage `json:"filters"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	count, err := h.engine.PreviewCount(req.Filters, c.GetInt("userId"))
	if err != nil {
		respondFilterError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"count": count}))
}

// RunMatches executes the workflow's action retroactively for every
// currently matching client, honoring unsaved overrides from the request
// body without persisting them.
func (h *WorkflowsHandler) RunMatches(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	var req struct {
		Filters      json.RawMessage `json:"filters"`
		ActionConfig json.RawMessage `json:"actionConfig"`
		ActionType   string          `json:"actionType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if req.ActionType != "" && !validAction(req.ActionType) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid action type"))
		return
	}

	count, err := h.engine.RunMatches(c.Request.Context(), id, c.GetInt("userId"), workflow.Override{
		Filters:      req.Filters,
		ActionConfig: req.ActionConfig,
		ActionType:   req.ActionType,
	})
	if err != nil {
		if errors.Is(err, workflow.ErrNoFilters) {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
			return
		}
		respondFilterError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{
		"count":   count,
		"message": "Workflow executed for " + strconv.Itoa(count) + " clients",
	}))
}

// ownedWorkflow loads the path workflow scoped to the caller, writing the
// error response itself when absent.
func (h *WorkflowsHandler) ownedWorkflow(c *gin.Context) *models.Workflow {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return nil
	}
	wf, err := h.repo.GetByIDAndOwner(id, c.GetInt("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return nil
	}
	if wf == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Workflow not found"))
		return nil
	}
	return wf
}

// validateClientFilter parses and compiles a filter document against the
// client schema, discarding the result. Used to reject unsaveable filters.
func validateClientFilter(raw json.RawMessage, userID int) error {
	node, err := query.Parse(raw)
	if err != nil {
		return err
	}
	_, err = query.NewCompiler(query.Clients, &userID, time.Now()).Compile(node)
	return err
}
