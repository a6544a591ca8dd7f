package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crm-api/mail"
	"crm-api/repository"
	"crm-api/types"
)

type EmailsHandler struct {
	repo        *repository.EmailsRepository
	clientsRepo *repository.ClientsRepository
	mailer      mail.Mailer
}

func NewEmailsHandler(repo *repository.EmailsRepository, clientsRepo *repository.ClientsRepository, mailer mail.Mailer) *EmailsHandler {
	return &EmailsHandler{repo: repo, clientsRepo: clientsRepo, mailer: mailer}
}

// Send delivers a message through the caller's linked Gmail account and
// records it, matched to a client by recipient address when possible.
func (h *EmailsHandler) Send(c *gin.Context) {
	var req struct {
		To      string `json:"to" binding:"required,email"`
		Subject string `json:"subject" binding:"required"`
		Body    string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	userID := c.GetInt("userId")

	sent, err := h.mailer.SendMessage(c.Request.Context(), userID, req.To, req.Subject, req.Body)
	if err != nil {
		c.JSON(http.StatusBadGateway, types.NewErrorResponse(types.ErrorCodeInternal, "Failed to send email: "+err.Error()))
		return
	}

	var clientID *int
	if client, err := h.clientsRepo.FindByEmail(req.To); err == nil && client != nil {
		clientID = &client.ID
	}
	record, err := h.repo.Insert(repository.EmailRecord{
		MessageID: sent.ID,
		ThreadID:  sent.ThreadID,
		Subject:   &req.Subject,
		Body:      &req.Body,
		FromEmail: "me",
		ToEmail:   req.To,
		Timestamp: time.Now(),
		ClientID:  clientID,
		UserID:    userID,
	})
	if err != nil {
		// The message is already out; a bookkeeping failure is not a send failure.
		c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"messageId": sent.ID}))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(record))
}

func (h *EmailsHandler) List(c *gin.Context) {
	var clientID *int
	if raw := c.Query("client_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid client_id"))
			return
		}
		clientID = &id
	}
	items, err := h.repo.ListByUser(c.GetInt("userId"), clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(items))
}
