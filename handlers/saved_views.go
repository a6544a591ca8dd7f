package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crm-api/models"
	"crm-api/repository"
	"crm-api/types"
)

type SavedViewsHandler struct {
	repo  *repository.SavedViewsRepository
	users *repository.UsersRepository
}

func NewSavedViewsHandler(repo *repository.SavedViewsRepository, users *repository.UsersRepository) *SavedViewsHandler {
	return &SavedViewsHandler{repo: repo, users: users}
}

// List returns the caller's own views plus all system views, ordered by
// (position, id), optionally narrowed by view type.
func (h *SavedViewsHandler) List(c *gin.Context) {
	viewType := c.Query("view_type")
	if viewType != "" && viewType != models.ViewTypeClient && viewType != models.ViewTypeTask {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid view_type"))
		return
	}
	items, err := h.repo.List(c.GetInt("userId"), viewType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(items))
}

func (h *SavedViewsHandler) Create(c *gin.Context) {
	var req struct {
		Name        string          `json:"name" binding:"required"`
		ViewType    string          `json:"viewType"`
		Filters     json.RawMessage `json:"filters"`
		ColumnOrder json.RawMessage `json:"columnOrder"`
		Sorting     json.RawMessage `json:"sorting"`
		Position    int             `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if req.ViewType == "" {
		req.ViewType = models.ViewTypeClient
	}
	if req.ViewType != models.ViewTypeClient && req.ViewType != models.ViewTypeTask {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid viewType"))
		return
	}
	if req.Filters == nil {
		req.Filters = json.RawMessage(`{}`)
	}
	view, err := h.repo.Create(c.GetInt("userId"), req.Name, req.ViewType,
		req.Filters, req.ColumnOrder, req.Sorting, req.Position)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(view))
}

// Update rejects edits to system views unless the caller is staff.
func (h *SavedViewsHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	existing, err := h.repo.GetByID(id)
	if err != nil || existing == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "View not found"))
		return
	}
	userID := c.GetInt("userId")
	if existing.IsSystem {
		user, err := h.users.GetByID(userID)
		if err != nil || user == nil || !user.IsStaff {
			c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Cannot update system views"))
			return
		}
	} else if existing.UserID == nil || *existing.UserID != userID {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Not your view"))
		return
	}

	var req struct {
		Name        *string          `json:"name"`
		Filters     *json.RawMessage `json:"filters"`
		ColumnOrder *json.RawMessage `json:"columnOrder"`
		Sorting     *json.RawMessage `json:"sorting"`
		Position    *int             `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if err := h.repo.Update(id, req.Name, req.Filters, req.ColumnOrder, req.Sorting, req.Position); err != nil {
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

// Delete refuses system views outright; they are seeded and protected.
func (h *SavedViewsHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	existing, err := h.repo.GetByID(id)
	if err != nil || existing == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "View not found"))
		return
	}
	if existing.IsSystem {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Cannot delete system views"))
		return
	}
	if existing.UserID == nil || *existing.UserID != c.GetInt("userId") {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Not your view"))
		return
	}
	if err := h.repo.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "View deleted successfully"}))
}
