package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"connected": c.App.Hub.Count(),
	})
}
