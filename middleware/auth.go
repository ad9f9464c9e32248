package middleware

import (
	"context"
	"net/http"
	"strings"

	"recipeshare/auth"
	"recipeshare/globals"
	"recipeshare/utils"

	"github.com/julienschmidt/httprouter"
)

// TokenVerifier resolves a bearer token to a caller identity.
type TokenVerifier interface {
	VerifyToken(token string) (auth.Identity, error)
}

type Authenticator struct {
	verifier TokenVerifier
}

func NewAuthenticator(v TokenVerifier) *Authenticator {
	return &Authenticator{verifier: v}
}

// Authenticate rejects requests without a valid token and stores the caller
// identity in the request context.
func (a *Authenticator) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := tokenFromRequest(r)
		if token == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := a.verifier.VerifyToken(token)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), globals.UserIDKey, id.UserID)
		ctx = context.WithValue(ctx, globals.UserNameKey, id.Name)
		ctx = context.WithValue(ctx, globals.UserEmailKey, id.Email)
		next(w, r.WithContext(ctx), ps)
	}
}

// tokenFromRequest reads "Authorization: Bearer <token>", falling back to the
// token query parameter for websocket upgrades, which cannot set headers.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if r.Header.Get("Upgrade") != "" {
		return r.URL.Query().Get("token")
	}
	return ""
}
