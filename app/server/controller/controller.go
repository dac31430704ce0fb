package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/osmcz/mapcampaign/app/server/types"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/api/health", http.HandlerFunc(c.HandleHealth)).Methods(http.MethodGet)

	r.HandleFunc("/api/stats", c.HandleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/ideas", c.HandleIdeasList).Methods(http.MethodGet)
	r.HandleFunc("/api/idea", c.HandleIdeaCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/vote", c.HandleVote).Methods(http.MethodPost)
	r.HandleFunc("/api/current-project", c.HandleCurrentProject).Methods(http.MethodGet)

	r.HandleFunc("/ws", c.HandleWebSocket)

	return r, nil
}
