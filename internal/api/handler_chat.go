package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailpilot/internal/engine"
	"mailpilot/internal/model"
	"mailpilot/pkg/logger"
)

type ChatHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewChatHandler(eng *engine.Engine, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		engine: eng,
		logger: log,
	}
}

// Chat handles POST /chat. One request is one conversational turn; the
// response is always a well-formed envelope, even when the turn fails.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	userID := c.GetString("user_id")
	gmailToken := c.GetString("gmail_token")

	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)
	log.Info("chat turn", zap.String("user_id", userID))

	env := h.engine.HandleTurn(ctx, userID, gmailToken, req.Message)
	c.JSON(http.StatusOK, env)
}

// Status handles GET /chat/status.
func (h *ChatHandler) Status(c *gin.Context) {
	userID := c.GetString("user_id")
	status := h.engine.Status(c.Request.Context(), userID)
	c.JSON(http.StatusOK, status)
}

// CancelPending handles DELETE /chat/pending.
func (h *ChatHandler) CancelPending(c *gin.Context) {
	userID := c.GetString("user_id")
	cleared := h.engine.ClearPending(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
