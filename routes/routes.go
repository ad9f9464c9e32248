package routes

import (
	"net/http"

	"recipeshare/auth"
	"recipeshare/middleware"
	"recipeshare/notify"
	"recipeshare/recipes"
	"recipeshare/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func AddAuthRoutes(router *httprouter.Router, authn *middleware.Authenticator, h *auth.Handlers) {
	router.POST("/api/register", h.Register)
	router.POST("/api/login", h.Login)
	router.GET("/api/user", authn.Authenticate(h.GetUser))
}

func AddRecipeRoutes(router *httprouter.Router, authn *middleware.Authenticator, h *recipes.Handlers) {
	router.GET("/api/recipes", authn.Authenticate(h.GetRecipes))
	router.POST("/api/recipes", authn.Authenticate(h.CreateRecipe))
	router.GET("/api/recipes/:id", authn.Authenticate(h.GetRecipe))
	router.PUT("/api/recipes/:id", authn.Authenticate(h.UpdateRecipe))
	router.DELETE("/api/recipes/:id", authn.Authenticate(h.DeleteRecipe))
	router.POST("/api/recipes/:id/share", authn.Authenticate(h.ShareRecipe))
	router.POST("/api/recipes/:id/rate", authn.Authenticate(h.RateRecipe))
	router.POST("/api/recipes/:id/comments", authn.Authenticate(h.CommentOnRecipe))
	router.POST("/api/recipes/:id/image", authn.Authenticate(h.UploadImage))
}

func AddStaticRoutes(router *httprouter.Router, uploadDir string) {
	router.ServeFiles("/static/uploads/*filepath", http.Dir(uploadDir))
}

func AddNotificationRoutes(router *httprouter.Router, authn *middleware.Authenticator, hub *notify.Hub) {
	router.GET("/ws/notifications", authn.Authenticate(hub.HandleWebSocket))
}

func AddUtilityRoutes(router *httprouter.Router) {
	router.GET("/health", Health)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
}

func Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "ok"})
}
