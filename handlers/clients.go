package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crm-api/query"
	"crm-api/repository"
	"crm-api/types"
	"crm-api/workflow"
)

type ClientsHandler struct {
	repo     *repository.ClientsRepository
	resolver *query.Resolver
	engine   *workflow.Engine
}

func NewClientsHandler(repo *repository.ClientsRepository, resolver *query.Resolver, engine *workflow.Engine) *ClientsHandler {
	return &ClientsHandler{repo: repo, resolver: resolver, engine: engine}
}

// List resolves the request's view selection (saved view, ad-hoc filters,
// legacy "my" mode, sort override) into one predicate and sort, then pages
// through the matches.
func (h *ClientsHandler) List(c *gin.Context) {
	resolved, err := h.resolver.Resolve(query.Input{
		ViewID:      c.Query("view_id"),
		FiltersJSON: c.Query("filters"),
		ViewMode:    c.Query("view"),
		SortJSON:    c.Query("sort"),
	}, query.Clients, principal(c), time.Now())
	if err != nil {
		respondFilterError(c, err)
		return
	}

	pagination := types.ParsePaginationParams(c)
	items, total, err := h.repo.List(resolved.Predicate, resolved.OrderBy(), pagination.PageSize, pagination.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(pagination.BuildResponse(items, total)))
}

func (h *ClientsHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	client, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if client == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Client not found"))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(client))
}

// Create inserts the client and fires the workflow trigger inline. The
// trigger dispatch isolates every workflow failure, so a broken workflow can
// never fail the creation itself.
func (h *ClientsHandler) Create(c *gin.Context) {
	var req struct {
		Name    string  `json:"name" binding:"required"`
		Email   string  `json:"email" binding:"required,email"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
		OwnerID *int    `json:"ownerId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	ownerID := req.OwnerID
	if ownerID == nil {
		ownerID = principal(c)
	}
	client, err := h.repo.Create(req.Name, req.Email, req.Phone, req.Address, ownerID)
	if err != nil {
		c.JSON(http.StatusConflict, types.NewErrorResponse(types.ErrorCodeConflict, "Could not create client: "+err.Error()))
		return
	}

	h.engine.OnClientCreated(c.Request.Context(), client)

	c.JSON(http.StatusCreated, types.NewSuccessResponse(client))
}

func (h *ClientsHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	existing, err := h.repo.GetByID(id)
	if err != nil || existing == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Client not found"))
		return
	}
	var req struct {
		Name    *string `json:"name"`
		Email   *string `json:"email"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
		OwnerID *int    `json:"ownerId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if err := h.repo.Update(id, req.Name, req.Email, req.Phone, req.Address, req.OwnerID); err != nil {
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

func (h *ClientsHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid ID"))
		return
	}
	existing, err := h.repo.GetByID(id)
	if err != nil || existing == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Client not found"))
		return
	}
	if err := h.repo.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Client deleted successfully"}))
}
