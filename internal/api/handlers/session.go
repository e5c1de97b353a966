package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ambermind/chat-controller/internal/api/dto"
	"github.com/ambermind/chat-controller/internal/api/middleware"
	"github.com/ambermind/chat-controller/internal/controller"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
)

// SessionHandler handles signup, login and logout.
type SessionHandler struct {
	ctrl *controller.Controller
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(ctrl *controller.Controller) *SessionHandler {
	return &SessionHandler{ctrl: ctrl}
}

// Signup handles POST /signup.
func (h *SessionHandler) Signup(c *gin.Context) {
	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	result, err := h.ctrl.Signup(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SignupResponse{
		Message: result.Message,
		ChatID:  result.ChatID,
	})
}

// Login handles POST /login.
func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	result, err := h.ctrl.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	session := h.ctrl.Session()
	c.JSON(http.StatusOK, dto.LoginResponse{
		Message:  result.Message,
		Chats:    dto.FromChats(h.ctrl.Chats()),
		IsAdmin:  session.IsAdmin(),
		Greeting: h.ctrl.Greeting(),
	})
}

// Logout handles POST /logout.
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.ctrl.Logout(c.Request.Context()); err != nil {
		// local state is already reset; report the backend failure
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LogoutResponse{
		Message: "Logout successful!",
	})
}
