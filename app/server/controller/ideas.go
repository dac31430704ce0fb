package controller

import (
	"errors"
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/osmcz/mapcampaign/pkg/hub"
	"github.com/osmcz/mapcampaign/pkg/ledger"
)

type ideaRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

type voteRequest struct {
	IdeaID int64  `json:"idea_id"`
	UserID string `json:"user_id"`
}

// HandleIdeasList returns all submitted ideas in submission order.
func (c *Controller) HandleIdeasList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.App.Ledger.Ideas())
}

// HandleIdeaCreate validates and stores a new idea and broadcasts it.
func (c *Controller) HandleIdeaCreate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req ideaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad json"})
		return
	}

	idea, err := c.App.Ledger.AddIdea(req.Title, req.Description, req.Author)
	if err != nil {
		var vErr *ledger.ValidationError
		if errors.As(err, &vErr) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": vErr.Message})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	c.App.Hub.Broadcast(hub.Event{Type: hub.EventNewIdea, Payload: idea})

	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "idea": idea})
}

// HandleVote records a vote and broadcasts the new count. Business-rule
// rejections come back as 400 with the reason; an unknown idea is 404.
func (c *Controller) HandleVote(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad json"})
		return
	}
	if req.IdeaID == 0 || req.UserID == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "missing idea_id or user_id"})
		return
	}

	votes, err := c.App.Ledger.Vote(req.IdeaID, req.UserID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ledger.ErrNotFound) {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	c.App.Hub.Broadcast(hub.Event{Type: hub.EventVoteUpdate, Payload: map[string]interface{}{
		"ideaId": req.IdeaID,
		"votes":  votes,
	}})

	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "votes": votes})
}
