package handlers

import (
	"net/http"
	"strings"

	"github.com/turtacn/datamigrate/internal/application/workflow"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// MessageHandler routes free-text requests to an agent and tool.
type MessageHandler struct {
	router *workflow.Router
}

// NewMessageHandler wires the intent router.
func NewMessageHandler(router *workflow.Router) *MessageHandler {
	return &MessageHandler{router: router}
}

// MessageRequest is the body of POST /api/v1/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// Route serves POST /api/v1/messages.  The response names the agent and
// tool the client should invoke next.
func (h *MessageHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeAppError(w, errors.New(errors.ErrCodeValidation, "message must not be empty"))
		return
	}

	route, err := h.router.Route(req.Message)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}
