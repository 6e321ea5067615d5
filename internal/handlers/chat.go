package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"nastia-backend/internal/gemini"
	"nastia-backend/internal/models"
)

type ChatModel interface {
	Chat(ctx context.Context, history []gemini.Turn, systemInstruction string) (string, error)
}

type ChatHandler struct {
	model ChatModel
}

func NewChatHandler(model ChatModel) *ChatHandler {
	return &ChatHandler{model: model}
}

// Chat godoc
// @Summary     Chat with a persona
// @Description Runs the conversation history through the chat model with a persona-specific system instruction.
// @Tags        chat
// @Accept      json
// @Produce     json
// @Param       request body models.ChatRequest true "Conversation history and persona"
// @Success     200 {object} models.ChatResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	history := make([]gemini.Turn, len(req.History))
	for i, turn := range req.History {
		history[i] = gemini.Turn{Role: turn.Role, Text: turn.Parts}
	}

	response, err := h.model.Chat(c.Request.Context(), history, personaInstruction(req.Persona))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "chat failed",
			Message: err.Error(),
		})
		return
	}

	if response == "" {
		response = "..."
	}
	c.JSON(http.StatusOK, models.ChatResponse{Response: response})
}

func personaInstruction(persona string) string {
	instruction := "Se for pedir imagem use 'PROMPT: '. "
	switch persona {
	case "criativo":
		instruction += "Você é Diretor de Arte."
	case "trafego":
		instruction += "Você é Gestor de Tráfego."
	case "copy":
		instruction += "Você é Copywriter."
	}
	return instruction
}
