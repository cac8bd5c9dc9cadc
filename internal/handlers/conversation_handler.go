package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"vocaflow/internal/conversation"
)

// ConversationHandler upgrades /ws/{level} and hands the socket to the
// conversation controller
type ConversationHandler struct {
	controller *conversation.Controller
	upgrader   websocket.Upgrader
	log        logrus.FieldLogger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(controller *conversation.Controller, log logrus.FieldLogger) *ConversationHandler {
	return &ConversationHandler{
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// the socket carries no credentials, so any origin may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Serve runs one conversation for the lifetime of the connection
func (h *ConversationHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		h.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	h.controller.Serve(r.Context(), conn, r.PathValue("level"))
}
