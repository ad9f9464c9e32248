package recipes

import (
	"net/http"

	"recipeshare/utils"

	"github.com/julienschmidt/httprouter"
)

// Handlers exposes the Service over HTTP. All routes expect an authenticated
// caller in the request context.
type Handlers struct {
	svc       *Service
	uploadDir string
}

func NewHandlers(svc *Service, uploadDir string) *Handlers {
	return &Handlers{svc: svc, uploadDir: uploadDir}
}

// Get all of the caller's recipes
func (h *Handlers) GetRecipes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	recipes, err := h.svc.List(r.Context(), utils.GetUserIDFromContext(r.Context()))
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, recipes)
}

// Get one recipe
func (h *Handlers) GetRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	recipe, err := h.svc.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, recipe)
}

func (h *Handlers) CreateRecipe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var fields RecipeFields
	if err := utils.DecodeJSON(w, r, &fields); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	recipe, err := h.svc.Create(r.Context(), utils.GetUserIDFromContext(r.Context()), fields)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, recipe)
}

// UpdateRecipe checks ownership before the body is read, so a non-author is
// refused whatever they send.
func (h *Handlers) UpdateRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.CanEdit(r.Context(), utils.GetUserIDFromContext(r.Context()), ps.ByName("id")); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	var fields RecipeFields
	if err := utils.DecodeJSON(w, r, &fields); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	recipe, err := h.svc.Update(r.Context(), utils.GetUserIDFromContext(r.Context()), ps.ByName("id"), fields)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, recipe)
}

func (h *Handlers) DeleteRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.Delete(r.Context(), utils.GetUserIDFromContext(r.Context()), ps.ByName("id")); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Recipe deleted successfully"})
}

// ShareRecipe and RateRecipe report rule conflicts as 400.
func (h *Handlers) ShareRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req ShareRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	recipe, err := h.svc.Share(r.Context(), utils.GetUserIDFromContext(r.Context()), ps.ByName("id"), req.Email)
	if err != nil {
		utils.RespondWithServiceErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, recipe)
}

func (h *Handlers) RateRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req RateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	recipe, err := h.svc.Rate(r.Context(), utils.GetUserIDFromContext(r.Context()), ps.ByName("id"), *req.Rating)
	if err != nil {
		utils.RespondWithServiceErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, recipe)
}

func (h *Handlers) CommentOnRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req CommentRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	recipe, err := h.svc.Comment(r.Context(), utils.GetUserIDFromContext(r.Context()), ps.ByName("id"), req.Text)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, recipe)
}
