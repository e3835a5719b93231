package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/bankrates/internal/contact"
	"github.com/rickgao/bankrates/internal/model"
	"github.com/rickgao/bankrates/internal/notify"
	"github.com/rickgao/bankrates/internal/store"
)

// ContactService accepts and lists contact-form submissions.
type ContactService interface {
	Submit(ctx context.Context, req contact.SubmitRequest) (model.ContactMessage, error)
	List(ctx context.Context, f store.ContactFilter) ([]model.ContactMessage, error)
}

type contactHandler struct {
	service ContactService
}

func (h *contactHandler) submit(c *gin.Context) {
	var req contact.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		var sendErr *notify.SendError
		switch {
		case errors.Is(err, contact.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &sendErr):
			loggerFrom(c).Error("forward contact message failed", "id", msg.ID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "message stored but could not be forwarded"})
		default:
			loggerFrom(c).Error("submit contact message failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit message"})
		}
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *contactHandler) list(c *gin.Context) {
	var f store.ContactFilter
	var err error

	f.Created, err = parseRange(c, "created", func(s string) (time.Time, error) {
		return time.Parse(time.RFC3339, s)
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.Limit, f.Offset, err = parsePage(c); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.Limit == 0 {
		f.Limit = store.DefaultListLimit
	}

	msgs, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		loggerFrom(c).Error("list contact messages failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": msgs,
		"limit":   f.Limit,
		"offset":  f.Offset,
	})
}
