package auth

import (
	"net/http"

	"recipeshare/utils"

	"github.com/julienschmidt/httprouter"
)

// Handlers exposes the Service over HTTP.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req RegisterRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	token, err := h.svc.Register(r.Context(), req)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, TokenResponse{Token: token})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req LoginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	token, err := h.svc.Login(r.Context(), req)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, TokenResponse{Token: token})
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := h.svc.CurrentUser(r.Context(), utils.GetUserIDFromContext(r.Context()))
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}
