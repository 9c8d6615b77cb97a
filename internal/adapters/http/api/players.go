package api

import (
	"net/http"

	"github.com/okian/ballotboard/pkg/logger"
)

// PlayersHandler serves roster registration and listing.
type PlayersHandler struct {
	deps   Dependencies
	logger logger.Logger
}

type registerRequest struct {
	VoterID string `json:"voter_id"`
	Name    string `json:"name"`
}

// HandleRegister handles POST /players.
func (h *PlayersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_player"
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	p, err := h.deps.RegisterPlayer(r.Context(), req.VoterID, req.Name)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleList handles GET /players.
func (h *PlayersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	players, err := h.deps.Players(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap("api.list_players", err))
		return
	}
	writeJSON(w, http.StatusOK, players)
}
