package api

import (
	"net/http"

	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/pkg/logger"
)

// IdempotencyHeader carries the client's replay key for POST /ballots.
const IdempotencyHeader = "Idempotency-Key"

// BallotsHandler serves ballot submission and prefill.
type BallotsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// ballotRequest mirrors the OpenAPI schema for POST /ballots.
type ballotRequest struct {
	VoterID   string   `json:"voter_id"`
	WeekID    string   `json:"week_id"`
	RankOrder []string `json:"rank_order"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandleSubmit handles POST /ballots. Accepted ballots are stored
// asynchronously and answered with 202; a replayed Idempotency-Key gets 200.
func (h *BallotsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_ballot"
	var req ballotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}

	b := model.Ballot{VoterID: req.VoterID, WeekID: req.WeekID, RankOrder: req.RankOrder}
	duplicate, err := h.deps.SubmitBallot(r.Context(), b, r.Header.Get(IdempotencyHeader))
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleGet handles GET /ballots/{week_id}/{voter_id}.
func (h *BallotsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.Ballot(r.Context(), r.PathValue("voter_id"), r.PathValue("week_id"))
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap("api.get_ballot", err))
		return
	}
	writeJSON(w, http.StatusOK, b)
}
