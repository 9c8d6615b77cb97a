package api

import (
	"net/http"
	"strconv"

	"github.com/okian/ballotboard/pkg/logger"
)

// StandingsHandler serves the weekly table and the rank series.
type StandingsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// HandleStandings handles GET /standings?week_id=. Without week_id the
// current week is used.
func (h *StandingsHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Standings(r.Context(), r.URL.Query().Get("week_id"))
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap("api.standings", err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleSeries handles GET /series?only_weeks_with_ballots=true|false.
func (h *StandingsHandler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	const op = "api.series"
	var only *bool
	if raw := r.URL.Query().Get("only_weeks_with_ballots"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(r.Context(), w, h.logger, WrapKind(op, ErrBadRequest, err))
			return
		}
		only = &v
	}
	s, err := h.deps.Series(r.Context(), only)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, s)
}
