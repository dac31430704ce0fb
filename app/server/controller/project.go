package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
)

// HandleCurrentProject returns the decided project, or an empty object while
// voting is still open.
func (c *Controller) HandleCurrentProject(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	project := c.App.Machine.Current()
	if project == nil {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{})
		return
	}
	_ = json.NewEncoder(w).Encode(project)
}
