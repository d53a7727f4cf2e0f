package handler

import (
	"net/http"

	"messagely/internal/api/middleware"
	"messagely/internal/app/service"
	"messagely/internal/common"
	"messagely/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService    *service.UserService
	messageService *service.MessageService
}

func NewUserHandler(us *service.UserService, ms *service.MessageService) *UserHandler {
	return &UserHandler{userService: us, messageService: ms}
}

// RegisterRoutes expects to be mounted behind middleware.Authenticator.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listUsers)

	r.Group(func(self chi.Router) {
		self.Use(middleware.EnsureCorrectUser)
		self.Get("/{username}", h.getUser)
		self.Get("/{username}/to", h.messagesTo)
		self.Get("/{username}/from", h.messagesFrom)
	})
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	summaries := make([]model.UserSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, users[i].Summary())
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"users": summaries})
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"user": user})
}

// messagesTo lists messages addressed to the user.
func (h *UserHandler) messagesTo(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messageService.ListReceivedBy(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// messagesFrom lists messages the user sent.
func (h *UserHandler) messagesFrom(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messageService.ListSentBy(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
