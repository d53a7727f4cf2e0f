package handler

import (
	"net/http"
	"strconv"

	"messagely/internal/api/middleware"
	"messagely/internal/app/service"
	"messagely/internal/common"

	"github.com/go-chi/chi/v5"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(ms *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: ms}
}

// RegisterRoutes expects to be mounted behind middleware.Authenticator.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.sendMessage)
	r.Get("/{messageID}", h.getMessage)
	r.Post("/{messageID}/read", h.markRead)
}

func (h *MessageHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetUsernameFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messageService.Send(r.Context(), caller, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

func (h *MessageHandler) getMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetUsernameFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	id, ok := messageIDParam(w, r)
	if !ok {
		return
	}

	detail, err := h.messageService.Get(r.Context(), caller, id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"message": detail})
}

func (h *MessageHandler) markRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetUsernameFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	id, ok := messageIDParam(w, r)
	if !ok {
		return
	}

	receipt, err := h.messageService.MarkRead(r.Context(), caller, id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"message": receipt})
}

func messageIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil || id <= 0 {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid message ID")
		return 0, false
	}
	return id, true
}
