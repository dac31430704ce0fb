package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
)

// HandleStats returns the current statistics snapshot, recomputing it when the
// cache TTL lapsed. A source outage is invisible here: the cache keeps serving
// the last good snapshot.
func (c *Controller) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	snap := c.App.Stats.Get(r.Context())
	_ = json.NewEncoder(w).Encode(snap)
}
