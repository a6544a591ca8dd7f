package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crm-api/models"
	"crm-api/repository"
	"crm-api/types"
)

type EmailTemplatesHandler struct {
	repo *repository.EmailTemplatesRepository
}

func NewEmailTemplatesHandler(repo *repository.EmailTemplatesRepository) *EmailTemplatesHandler {
	return &EmailTemplatesHandler{repo: repo}
}

func (h *EmailTemplatesHandler) List(c *gin.Context) {
	items, err := h.repo.ListByOwner(c.GetInt("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(items))
}

func (h *EmailTemplatesHandler) Create(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Subject string `json:"subject" binding:"required"`
		Body    string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	tmpl, err := h.repo.Create(c.GetInt("userId"), req.Name, req.Subject, req.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(tmpl))
}

func (h *EmailTemplatesHandler) Update(c *gin.Context) {
	existing := h.ownedTemplate(c)
	if existing == nil {
		return
	}
	var req struct {
		Name    *string `json:"name"`
		Subject *string `json:"subject"`
		Body    *string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if err := h.repo.Update(existing.ID, req.Name, req.Subject, req.Body); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Template updated successfully"}))
}

func (h *EmailTemplatesHandler) Delete(c *gin.Context) {
	existing := h.ownedTemplate(c)
	if existing == nil {
		return
	}
	if err := h.repo.Delete(existing.ID); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Template deleted successfully"}))
}

func (h *EmailTemplatesHandler) ownedTemplate(c *gin.Context) *models.EmailTemplate {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return nil
	}
	tmpl, err := h.repo.GetByIDAndOwner(id, c.GetInt("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return nil
	}
	if tmpl == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Template not found"))
		return nil
	}
	return tmpl
}
