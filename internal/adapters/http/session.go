package httpadapter

import (
	"net/http"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

// login keeps the access token inside the agent; callers only see the user.
func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decodeJSONBody(r, &creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	result, err := rt.deps.Session.Login(r.Context(), creds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token_type": result.TokenType,
		"user":       result.User,
	})
}

func (rt *Router) logout(w http.ResponseWriter, r *http.Request) {
	rt.deps.Session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) session(w http.ResponseWriter, r *http.Request) {
	if !rt.deps.Session.LoggedIn(r.Context()) {
		writeJSON(w, http.StatusOK, map[string]any{"logged_in": false})
		return
	}
	user, err := rt.deps.Session.Me(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logged_in": true, "user": user})
}

func (rt *Router) reviewRecords(w http.ResponseWriter, r *http.Request) {
	records, err := rt.deps.Review.Records(r.Context(), r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (rt *Router) userConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := rt.deps.UserConfig.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
