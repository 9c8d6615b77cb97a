package api

import (
	"net/http"
	"strings"

	"github.com/okian/ballotboard/pkg/logger"
)

// WeeksHandler serves the week and season calendar.
type WeeksHandler struct {
	deps   Dependencies
	logger logger.Logger
}

type seasonRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type weekRequest struct {
	Date string `json:"date"`
}

// HandleCreateSeason handles POST /seasons.
func (h *WeeksHandler) HandleCreateSeason(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_season"
	var req seasonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	season, err := h.deps.CreateSeason(r.Context(), req.StartDate, req.EndDate)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, season)
}

// HandleCreateWeek handles POST /weeks.
func (h *WeeksHandler) HandleCreateWeek(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_week"
	var req weekRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	week, err := h.deps.CreateWeek(r.Context(), req.Date)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, week)
}

// HandleList handles GET /weeks. season=latest limits the list to the latest
// season.
func (h *WeeksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_weeks"
	var seasonOnly bool
	switch r.URL.Query().Get("season") {
	case "", "all":
	case "latest":
		seasonOnly = true
	default:
		writeError(r.Context(), w, h.logger, NewKind(op, ErrBadRequest))
		return
	}
	weeks, err := h.deps.Weeks(r.Context(), seasonOnly)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, weeks)
}

// HandleCurrent handles GET /weeks/current with an optional voter_id.
func (h *WeeksHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	voterID := strings.TrimSpace(r.URL.Query().Get("voter_id"))
	cur, err := h.deps.CurrentWeek(r.Context(), voterID)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap("api.current_week", err))
		return
	}
	writeJSON(w, http.StatusOK, cur)
}
