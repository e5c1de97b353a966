package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/api/dto"
	"github.com/ambermind/chat-controller/internal/api/middleware"
	"github.com/ambermind/chat-controller/internal/controller"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
	"github.com/ambermind/chat-controller/internal/render"
)

// ChatsHandler handles chat list, history, prompt and admin endpoints.
type ChatsHandler struct {
	ctrl     *controller.Controller
	renderer render.Service
}

// NewChatsHandler creates a new ChatsHandler.
func NewChatsHandler(ctrl *controller.Controller, renderer render.Service) *ChatsHandler {
	return &ChatsHandler{
		ctrl:     ctrl,
		renderer: renderer,
	}
}

// GetChats handles GET /chats.
func (h *ChatsHandler) GetChats(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ChatsResponse{
		Chats:        dto.FromChats(h.ctrl.Chats()),
		ActiveChatID: h.ctrl.ActiveChat(),
	})
}

// NewChat handles POST /new_chat.
func (h *ChatsHandler) NewChat(c *gin.Context) {
	chat, err := h.ctrl.NewChat(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewChatResponse{
		ChatID: chat.ChatID,
		Title:  chat.Title,
	})
}

// SelectChat handles POST /select_chat.
func (h *ChatsHandler) SelectChat(c *gin.Context) {
	var req dto.SelectChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	if err := h.ctrl.SelectChat(c.Request.Context(), req.ChatID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{
		ChatID:  req.ChatID,
		History: h.toHistory(c, h.ctrl.History()),
	})
}

// GetHistory handles GET /history/:chat_id. Selecting and fetching are
// one operation: the requested chat becomes the active chat.
func (h *ChatsHandler) GetHistory(c *gin.Context) {
	chatID := c.Param("chat_id")

	if err := h.ctrl.SelectChat(c.Request.Context(), chatID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{
		ChatID:  chatID,
		History: h.toHistory(c, h.ctrl.History()),
	})
}

// SendPrompt handles POST /chat/:chat_id.
func (h *ChatsHandler) SendPrompt(c *gin.Context) {
	chatID := c.Param("chat_id")

	var req dto.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	reply, err := h.ctrl.Send(c.Request.Context(), chatID, req.Prompt)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SendResponse{
		Response:     reply.Content,
		ResponseHTML: h.renderMessage(c, *reply),
		History:      h.toHistory(c, h.ctrl.History()),
	})
}

// GetAdmin handles GET /admin.
func (h *ChatsHandler) GetAdmin(c *gin.Context) {
	snap, err := h.ctrl.Admin(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AdminResponse{
		Users:     snap.Users,
		ChatStats: snap.ChatStats,
	})
}

func (h *ChatsHandler) toHistory(c *gin.Context, messages []models.Message) []dto.MessageResponse {
	history := make([]dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		history = append(history, dto.FromMessage(msg, h.renderMessage(c, msg)))
	}
	return history
}

func (h *ChatsHandler) renderMessage(c *gin.Context, msg models.Message) string {
	if h.renderer == nil || msg.Role != models.RoleAssistant {
		return ""
	}
	html, err := h.renderer.Render(c.Request.Context(), msg.Content)
	if err != nil {
		log.Debug().Err(err).Str("message_id", msg.ID).Msg("degraded message rendering")
	}
	return html
}
