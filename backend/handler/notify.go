package handler

import (
	"net/http"

	"github.com/SpikeIreland/clarence-sub004/backend/middleware"
	"github.com/SpikeIreland/clarence-sub004/backend/service"
	"github.com/SpikeIreland/clarence-sub004/backend/wizard"
	"github.com/gin-gonic/gin"
)

// NotifyHandler serves the out-of-focus chat alerts for a session: the
// workflow service posts incoming events here, the client lists and
// dismisses toasts and reports surface focus.
type NotifyHandler struct {
	store    *service.SessionStore
	registry *wizard.Registry
}

func NewNotifyHandler(registry *wizard.Registry) *NotifyHandler {
	return &NotifyHandler{
		store:    service.GetSessionStore(),
		registry: registry,
	}
}

type chatEventRequest struct {
	Sender string `json:"sender" binding:"required"`
	Body   string `json:"body" binding:"required"`
}

// Event receives a chat event. A toast is enqueued only while the chat
// surface is out of focus; focused surfaces see the message directly.
func (h *NotifyHandler) Event(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	var req chatEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	entry, queued := machine.Toasts().Notify(req.Sender, req.Body)
	c.JSON(http.StatusOK, gin.H{
		"queued": queued,
		"toast":  entry,
	})
}

// List returns the live toasts and the unread count.
func (h *NotifyHandler) List(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"toasts": machine.Toasts().Entries(),
		"unread": machine.Toasts().Unread(),
	})
}

// Dismiss removes a toast before its auto-dismiss timer fires.
func (h *NotifyHandler) Dismiss(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	if !machine.Toasts().Dismiss(c.Param("toastId")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Toast not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Toast dismissed"})
}

type focusRequest struct {
	Focused *bool `json:"focused" binding:"required"`
}

// Focus records whether the chat surface is visible.
func (h *NotifyHandler) Focus(c *gin.Context) {
	machine, ok := h.getMachine(c)
	if !ok {
		return
	}

	var req focusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	machine.Toasts().SetFocused(*req.Focused)
	c.JSON(http.StatusOK, gin.H{"focused": *req.Focused})
}

func (h *NotifyHandler) getMachine(c *gin.Context) (*wizard.Machine, bool) {
	id := c.Param("id")
	session := h.store.Get(id)
	if session == nil || session.Owner != middleware.GetUsername(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}

	machine := h.registry.Get(id)
	if machine == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return machine, true
}
