package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crm-api/repository"
	"crm-api/types"
)

type NotesHandler struct {
	repo        *repository.NotesRepository
	clientsRepo *repository.ClientsRepository
}

func NewNotesHandler(repo *repository.NotesRepository, clientsRepo *repository.ClientsRepository) *NotesHandler {
	return &NotesHandler{repo: repo, clientsRepo: clientsRepo}
}

func (h *NotesHandler) Create(c *gin.Context) {
	var req struct {
		Content  string `json:"content" binding:"required"`
		ClientID int    `json:"clientId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	client, err := h.clientsRepo.GetByID(req.ClientID)
	if err != nil || client == nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Client not found"))
		return
	}
	note, err := h.repo.Create(req.Content, req.ClientID, principal(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(note))
}

func (h *NotesHandler) List(c *gin.Context) {
	clientID, err := strconv.Atoi(c.Query("client_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "client_id is required"))
		return
	}
	pagination := types.ParsePaginationParams(c)
	items, total, err := h.repo.ListByClient(clientID, pagination.PageSize, pagination.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(pagination.BuildResponse(items, total)))
}

func (h *NotesHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	existing, err := h.repo.GetByID(id)
	if err != nil || existing == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Note not found"))
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if err := h.repo.Update(id, req.Content); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Note updated successfully"}))
}

func (h *NotesHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	existing, err := h.repo.GetByID(id)
	if err != nil || existing == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Note not found"))
		return
	}
	if err := h.repo.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Note deleted successfully"}))
}
